package events

// PublishHelper wraps event publishing with nil-safety and convenience methods.
// All methods are safe to call even when the underlying publisher is nil.
//
// Thread-safe: All methods can be called concurrently.
type PublishHelper struct {
	publisher Publisher
}

// NewPublishHelper creates a new PublishHelper wrapping the given publisher.
// If p is nil, all publish operations become no-ops.
func NewPublishHelper(p Publisher) *PublishHelper {
	return &PublishHelper{publisher: p}
}

// Publish sends an event to the underlying publisher.
func (ep *PublishHelper) Publish(ev Event) {
	if ep == nil || ep.publisher == nil {
		return
	}
	ep.publisher.Publish(ev)
}

// Snapshot publishes a full snapshot to global subscribers.
func (ep *PublishHelper) Snapshot(snapshot any) {
	ep.Publish(NewEvent(EventSnapshot, GlobalTopic, snapshot))
}

// Success publishes a success notice.
func (ep *PublishHelper) Success(op, message string) {
	ep.Publish(NewEvent(EventNotice, GlobalTopic, Notice{
		Level:   NoticeSuccess,
		Op:      op,
		Message: message,
	}))
}

// Failure publishes an error notice carrying the error code when known.
func (ep *PublishHelper) Failure(op, code string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	ep.Publish(NewEvent(EventNotice, GlobalTopic, Notice{
		Level:   NoticeError,
		Op:      op,
		Message: msg,
		Code:    code,
	}))
}

// Change publishes an entity mutation on the owning project's topic.
func (ep *PublishHelper) Change(c Change) {
	topic := c.ProjectID
	if topic == "" {
		topic = GlobalTopic
	}
	ep.Publish(NewEvent(EventChange, topic, c))
}

// Feed publishes that the activity feed was replaced.
func (ep *PublishHelper) Feed(count int) {
	ep.Publish(NewEvent(EventFeed, GlobalTopic, FeedUpdate{Count: count}))
}

// Loading publishes a load cycle transition.
func (ep *PublishHelper) Loading(loading bool, actorID string) {
	ep.Publish(NewEvent(EventLoading, GlobalTopic, LoadingUpdate{Loading: loading, ActorID: actorID}))
}
