package memory

import (
	"context"
	"sync"

	"github.com/khoahotran/profile-card/internal/application/service"
)

type EventRecorder struct {
	mu     sync.Mutex
	events []service.ProfileEventPayload
}

var _ service.EventPublisher = (*EventRecorder)(nil)

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) PublishProfileEvent(ctx context.Context, payload service.ProfileEventPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, payload)
	return nil
}

func (r *EventRecorder) Events() []service.ProfileEventPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.ProfileEventPayload{}, r.events...)
}
