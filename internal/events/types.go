// Package events provides event types and publishing infrastructure for plank.
package events

import (
	"time"
)

// EventType defines the type of event.
type EventType string

const (
	// EventSnapshot carries a full consumer snapshot after the mirror changed.
	EventSnapshot EventType = "snapshot"
	// EventNotice is a transient user-facing message about an operation.
	EventNotice EventType = "notice"
	// EventChange describes a single confirmed entity mutation.
	EventChange EventType = "change"
	// EventFeed indicates the activity feed was replaced.
	EventFeed EventType = "feed"
	// EventLoading indicates a load cycle started or finished.
	EventLoading EventType = "loading"
)

// Event represents a published event. Topic is the id of the project the
// event concerns, or GlobalTopic for store-wide events.
type Event struct {
	Type  EventType `json:"type"`
	Topic string    `json:"topic"`
	Data  any       `json:"data"`
	Time  time.Time `json:"time"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, topic string, data any) Event {
	return Event{
		Type:  eventType,
		Topic: topic,
		Data:  data,
		Time:  time.Now(),
	}
}

// NoticeLevel is the severity of a notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is the payload of EventNotice.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Op      string      `json:"op"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

// Change is the payload of EventChange.
type Change struct {
	Action     string `json:"action"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	ProjectID  string `json:"projectId,omitempty"`
}

// FeedUpdate is the payload of EventFeed.
type FeedUpdate struct {
	Count int `json:"count"`
}

// LoadingUpdate is the payload of EventLoading.
type LoadingUpdate struct {
	Loading bool   `json:"loading"`
	ActorID string `json:"actorId,omitempty"`
}
