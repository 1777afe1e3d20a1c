package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType names an auditable scheduling event
type EventType string

const (
	EventInterviewScheduled   EventType = "interview_scheduled"
	EventInterviewConfirmed   EventType = "interview_confirmed"
	EventInterviewRescheduled EventType = "interview_rescheduled"
	EventInterviewCancelled   EventType = "interview_cancelled"
	EventInterviewCompleted   EventType = "interview_completed"
	EventBookingConflict      EventType = "booking_conflict"
	EventActorMismatch        EventType = "actor_mismatch"
	EventInvalidTransition    EventType = "invalid_transition"
	EventReminderSent         EventType = "reminder_sent"
	EventAvailabilityReplaced EventType = "availability_replaced"
	EventRateLimitTriggered   EventType = "rate_limit_triggered"
)

// Event is one audit record
type Event struct {
	Timestamp   time.Time              `json:"timestamp"`
	Event       EventType              `json:"event"`
	ActorID     string                 `json:"actor_id,omitempty"` // hashed before logging
	InterviewID string                 `json:"interview_id,omitempty"`
	RequestID   string                 `json:"request_id,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Logger writes the scheduling audit trail with zap, separate from the
// application log.
type Logger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

// New builds a production zap logger writing JSON to stdout
func New(serviceName, environment string) *Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return &Logger{zapLogger: logger, serviceName: serviceName, environment: environment}
}

// NewWithZap wraps an existing zap logger (tests use zaptest/observer).
func NewWithZap(z *zap.Logger) *Logger {
	return &Logger{zapLogger: z, serviceName: "test", environment: "test"}
}

// Nop discards everything
func Nop() *Logger {
	return NewWithZap(zap.NewNop())
}

// Log writes one event
func (l *Logger) Log(ctx context.Context, event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	level := zapcore.InfoLevel
	switch event.Event {
	case EventBookingConflict, EventInvalidTransition, EventRateLimitTriggered:
		level = zapcore.WarnLevel
	case EventActorMismatch:
		level = zapcore.ErrorLevel
	}

	fields := []zap.Field{
		zap.String("service", l.serviceName),
		zap.String("env", l.environment),
		zap.String("event", string(event.Event)),
		zap.Time("event_time", event.Timestamp),
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor", HashValue(event.ActorID)))
	}
	if event.InterviewID != "" {
		fields = append(fields, zap.String("interview_id", event.InterviewID))
	}
	if event.RequestID == "" {
		event.RequestID = requestIDFrom(ctx)
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	l.zapLogger.Log(level, string(event.Event), fields...)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.zapLogger.Sync()
}

// HashValue creates a short SHA256 digest so user ids stay out of the trail
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}

type requestIDKey struct{}

// WithRequestID stores the request id for events logged further down the call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
