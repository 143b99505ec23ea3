package services

import (
	"context"
	"log"
)

// StartRequestEventNotifier слушает оба потока событий и пушит
// затронутым пользователям сигнал обновиться через WebSocket.
// Возвращает функцию, снимающую обе подписки.
func StartRequestEventNotifier(ctx context.Context, remote RemoteStore, sub Subscriber) (func() error, error) {
	clientCancel, err := sub.SubscribeRequestEvents(ctx, "client.*", func(event RequestEvent) {
		NotifyRequestChanged(event.ClientUserID, event)
	})
	if err != nil {
		return nil, err
	}

	coachCancel, err := sub.SubscribeRequestEvents(ctx, "coach.*", func(event RequestEvent) {
		coach, qerr := remote.QueryCoach(ctx, event.CoachID)
		if qerr != nil || coach == nil {
			log.Printf("Failed to resolve coach %d for ws push: %v", event.CoachID, qerr)
			return
		}
		NotifyRequestChanged(coach.UserID, event)
	})
	if err != nil {
		if cerr := clientCancel(); cerr != nil {
			log.Printf("Failed to cancel client event stream: %v", cerr)
		}
		return nil, err
	}

	return func() error {
		cerr := clientCancel()
		if err := coachCancel(); err != nil {
			return err
		}
		return cerr
	}, nil
}
