package services

import (
	"context"
	"log"
	"sync"
)

// ChangeListener держит подписку на поток событий своего участника и
// по любому событию перечитывает список заявок. Payload события к кешу
// не применяется: в нем нет подтянутых профилей, событие - только сигнал.
type ChangeListener struct {
	store *RequestStore
	sub   Subscriber

	mu     sync.Mutex
	cancel func() error
	stop   context.CancelFunc
}

func NewChangeListener(store *RequestStore, sub Subscriber) *ChangeListener {
	return &ChangeListener{store: store, sub: sub}
}

// Start устанавливает не более одной подписки на идентичность.
// Повторный вызов при живой подписке - no-op.
func (l *ChangeListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return nil
	}

	viewer := l.store.Viewer()
	routingKey := ClientRoutingKey(viewer.UserID)
	if viewer.IsCoach() {
		routingKey = CoachRoutingKey(viewer.CoachID)
	}

	subCtx, stop := context.WithCancel(ctx)
	cancel, err := l.sub.SubscribeRequestEvents(subCtx, routingKey, func(event RequestEvent) {
		l.store.Invalidate()
		if err := l.store.LoadForViewer(subCtx); err != nil {
			log.Printf("Failed to reload requests after %s event for request %d: %v", event.Action, event.RequestID, err)
		}
	})
	if err != nil {
		stop()
		return err
	}
	l.cancel = cancel
	l.stop = stop
	return nil
}

// Close снимает подписку; безопасно вызывать повторно
func (l *ChangeListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return nil
	}
	l.stop()
	err := l.cancel()
	l.cancel = nil
	l.stop = nil
	return err
}
