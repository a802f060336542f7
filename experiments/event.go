package experiments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	opentracing "github.com/opentracing/opentracing-go"

	"github.com/driftwood/expengine/errorsbp"
	"github.com/driftwood/expengine/mqsend"
	"github.com/driftwood/expengine/timebp"
)

// BucketingTopic and BucketingType are the fixed topic/type every
// bucketing Event carries.
const (
	BucketingTopic = "bucketing_events"
	BucketingType  = "bucket"
)

// Event is a single bucketing event: a record that a subject has been
// exposed to an active variant.
type Event struct {
	ID        string                      `json:"uuid"`
	Topic     string                      `json:"topic"`
	Type      string                      `json:"type"`
	Timestamp timebp.TimestampMillisecond `json:"client_timestamp"`
	Fields    map[string]interface{}      `json:"fields"`
}

// NewBucketingEvent builds the Event for a single exposure. Mandatory
// fields (variant, experiment_id, experiment_name, owner) always win
// over extra, matching the "do not override mandatory fields" contract
// of the evaluation API.
func NewBucketingEvent(record *ExperimentRecord, variant string, extra map[string]interface{}) Event {
	fields := make(map[string]interface{}, len(extra)+4)
	for k, v := range extra {
		fields[k] = v
	}
	fields["variant"] = variant
	fields["experiment_id"] = record.ID
	fields["experiment_name"] = record.Name
	fields["owner"] = record.Owner

	id, err := uuid.NewV4()
	idStr := ""
	if err == nil {
		idStr = id.String()
	}

	return Event{
		ID:        idStr,
		Topic:     BucketingTopic,
		Type:      BucketingType,
		Timestamp: timebp.TimestampMillisecond(time.Now()),
		Fields:    fields,
	}
}

// EventLogger is implemented by collaborators that enqueue bucketing
// events into an external event pipeline. The only observable contract
// is that Log either returns nil, or an error that (optionally) wraps
// one of mqsend's queue errors; callers treat any error as best-effort
// and never fail evaluation because of it.
type EventLogger interface {
	Log(ctx context.Context, event Event) error
}

// DefaultMaxPutTimeout bounds how long QueueEventLogger.Log will block
// on a full queue before giving up.
const DefaultMaxPutTimeout = 50 * time.Millisecond

// QueueEventLogger adapts an mqsend.MessageQueue into an EventLogger by
// JSON-encoding events before enqueuing them.
//
// Unlike baseplate.go's events.Queue (which serializes into a specific
// thrift-generated event schema over TJSONProtocol), bucketing Events
// here are an open field map with no generated schema, so QueueEventLogger
// encodes them with encoding/json instead; the request-scoped timeout
// and cancellation handling below mirrors events.Queue.Put exactly.
type QueueEventLogger struct {
	Queue         mqsend.MessageQueue
	MaxPutTimeout time.Duration

	// Suppressor, when set, filters enqueue errors that the deployment
	// considers routine (e.g. timeouts on a full queue under load);
	// suppressed errors are dropped and Log returns nil. The nil value
	// suppresses nothing.
	Suppressor errorsbp.Suppressor
}

// Log serializes event to JSON and sends it to the underlying queue.
func (l *QueueEventLogger) Log(ctx context.Context, event Event) error {
	if ctx.Err() != nil {
		// The request context is already canceled; use Background so we
		// still get a chance to flush this event out.
		ctx = context.Background()
	}
	timeout := l.MaxPutTimeout
	if timeout <= 0 {
		timeout = DefaultMaxPutTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return l.Suppressor.Wrap(l.Queue.Send(ctx, data))
}

// annotateSpanError tags the active span (if any) found in ctx with
// error.kind describing a bucketing-event enqueue failure, mirroring
// how the rest of the ecosystem annotates spans on best-effort failures.
func annotateSpanError(ctx context.Context, err error) {
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.SetTag("error", true)
	span.SetTag("error.kind", enqueueErrorKind(err))
}

func enqueueErrorKind(err error) string {
	var tooLarge mqsend.MessageTooLargeError
	if errors.As(err, &tooLarge) {
		return "event_too_large"
	}
	var timedOut mqsend.TimedOutError
	if errors.As(err, &timedOut) {
		return "event_queue_full"
	}
	return "event_enqueue_error"
}
