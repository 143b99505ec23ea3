package services

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// StoreRegistry выдает по одному RequestStore на идентичность и держит
// при каждом сторе подписку на события. Подписка живет, пока идентичность
// не освобождена через Release.
//
// Подписки стартуют на контексте самого реестра, а не вызывающей стороны:
// стор создается из обработчика HTTP запроса, чей контекст гаснет сразу
// после ответа, а слушатель должен пережить запрос.
type StoreRegistry struct {
	ctx      context.Context
	remote   RemoteStore
	profiles *ProfileDirectory
	repair   *QueueService
	sub      Subscriber

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	store    *RequestStore
	listener *ChangeListener
}

func NewStoreRegistry(ctx context.Context, remote RemoteStore, profiles *ProfileDirectory, repair *QueueService, sub Subscriber) *StoreRegistry {
	return &StoreRegistry{
		ctx:      ctx,
		remote:   remote,
		profiles: profiles,
		repair:   repair,
		sub:      sub,
		entries:  make(map[string]*registryEntry),
	}
}

func viewerKey(v Viewer) string {
	if v.IsCoach() {
		return fmt.Sprintf("coach:%d", v.CoachID)
	}
	return fmt.Sprintf("client:%d", v.UserID)
}

// StoreFor возвращает стор идентичности, создавая его лениво
func (r *StoreRegistry) StoreFor(viewer Viewer) *RequestStore {
	key := viewerKey(viewer)

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[key]; ok {
		return entry.store
	}

	store := NewRequestStore(r.remote, r.profiles, r.repair, viewer)
	entry := &registryEntry{store: store}
	if r.sub != nil {
		entry.listener = NewChangeListener(store, r.sub)
		if err := entry.listener.Start(r.ctx); err != nil {
			log.Printf("Failed to start change listener for %s: %v", key, err)
			entry.listener = nil
		}
	}
	r.entries[key] = entry
	return store
}

// Release снимает подписку идентичности и забывает ее стор
func (r *StoreRegistry) Release(viewer Viewer) {
	key := viewerKey(viewer)

	r.mu.Lock()
	entry, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok && entry.listener != nil {
		if err := entry.listener.Close(); err != nil {
			log.Printf("Failed to close change listener for %s: %v", key, err)
		}
	}
}

// Close снимает все подписки
func (r *StoreRegistry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for key, entry := range entries {
		if entry.listener != nil {
			if err := entry.listener.Close(); err != nil {
				log.Printf("Failed to close change listener for %s: %v", key, err)
			}
		}
	}
}
