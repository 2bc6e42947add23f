package service

import (
	"context"

	"github.com/google/uuid"
)

type ProfileEventType string

const (
	ProfileEventCreated ProfileEventType = "profile.created"
	ProfileEventUpdated ProfileEventType = "profile.updated"
	ProfileEventDeleted ProfileEventType = "profile.deleted"
)

type ProfileEventPayload struct {
	EventType  ProfileEventType `json:"event_type"`
	ProfileID  uuid.UUID        `json:"profile_id"`
	OwnerID    uuid.UUID        `json:"owner_id"`
	ShareToken string           `json:"share_token,omitempty"`
}

type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, payload ProfileEventPayload) error
}
