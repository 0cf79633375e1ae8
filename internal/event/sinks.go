package event

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"accommodation-portal/internal/model"
)

// ── Analytics ──

// UserEventStore persists analytics rows
type UserEventStore interface {
	Create(ctx context.Context, e *model.UserEvent) error
}

// AnalyticsSink writes one analytics_user_events row per event
type AnalyticsSink struct {
	store UserEventStore
}

// NewAnalyticsSink creates an AnalyticsSink
func NewAnalyticsSink(store UserEventStore) *AnalyticsSink {
	return &AnalyticsSink{store: store}
}

func (s *AnalyticsSink) Name() string { return "analytics" }

func (s *AnalyticsSink) Handle(ctx context.Context, e Event) error {
	resourceType, resourceID := e.Resource()

	meta := datatypes.JSONMap{}
	for k, v := range e.Metadata {
		meta[k] = v
	}
	if len(e.SubjectIDs) > 0 {
		subjects := make(map[string]any, len(e.SubjectIDs))
		for k, v := range e.SubjectIDs {
			subjects[k] = v
		}
		meta["subjects"] = subjects
	}

	row := &model.UserEvent{
		EventType:    string(e.Kind),
		Timestamp:    e.Timestamp,
		ResourceType: optional(resourceType),
		ResourceID:   optional(resourceID),
		Metadata:     meta,
		Success:      !e.Failed(),
		ErrorMessage: optional(e.Error),
	}
	if e.ActorID != "" {
		row.UserID = &e.ActorID
	}
	if info, ok := ClientInfoFrom(ctx); ok {
		row.IPAddress = optional(info.IP)
		row.UserAgent = optional(info.UserAgent)
	}

	return s.store.Create(ctx, row)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ── Notifications ──

// NotificationStore persists notifications
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

// NotificationSink tells the requester about review outcomes
type NotificationSink struct {
	store NotificationStore
}

// NewNotificationSink creates a NotificationSink
func NewNotificationSink(store NotificationStore) *NotificationSink {
	return &NotificationSink{store: store}
}

func (s *NotificationSink) Name() string { return "notification" }

func (s *NotificationSink) Handle(ctx context.Context, e Event) error {
	requester := e.SubjectIDs[SubjectRequester]
	requestID := e.SubjectIDs[SubjectRequest]
	if requester == "" || requestID == "" {
		return nil
	}

	n := &model.Notification{UserID: requester}
	switch e.Kind {
	case KindRequestApproved:
		n.Type = model.NotificationRequestApproved
		n.Title = "Accommodation request approved"
		n.Content = fmt.Sprintf("Your accommodation request #%s was approved.", requestID)
		if room := e.SubjectIDs[SubjectRoom]; room != "" {
			n.Content = fmt.Sprintf("Your accommodation request #%s was approved. A room has been allocated to you.", requestID)
		}
	case KindRequestRejected:
		n.Type = model.NotificationRequestRejected
		n.Title = "Accommodation request rejected"
		n.Content = fmt.Sprintf("Your accommodation request #%s was rejected.", requestID)
		if notes, _ := e.Metadata["review_notes"].(string); notes != "" {
			n.Content += " Notes: " + notes
		}
	default:
		return nil
	}

	relatedType := SubjectRequest
	n.RelatedType = &relatedType
	n.RelatedID = &requestID
	n.CreatedBy = optional(e.ActorID)

	return s.store.Create(ctx, n)
}

// ── Redis ──

// Publisher publishes raw payloads on a channel
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PublishSink publishes the JSON-encoded event
type PublishSink struct {
	pub     Publisher
	channel string
}

// NewPublishSink creates a PublishSink
func NewPublishSink(pub Publisher, channel string) *PublishSink {
	return &PublishSink{pub: pub, channel: channel}
}

func (s *PublishSink) Name() string { return "publish" }

func (s *PublishSink) Handle(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.pub.Publish(ctx, s.channel, payload)
}
