// Package audit persists per-request classification records for monitoring
// and investigation.
//
// Writes are best-effort and fire-and-forget: the request path issues the
// write and deliberately does not await its outcome, so a sink failure can
// never affect an HTTP response that has already been computed. This is an
// accepted at-most-once delivery guarantee, not a bug.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shroudlabs/shroud/internal/cloak"
)

// RetentionPeriod is how long audit records are kept before the store
// expires them.
const RetentionPeriod = 7 * 24 * time.Hour

// writeTimeout bounds a single background write.
const writeTimeout = 5 * time.Second

// Record is one classified request.
type Record struct {
	RequestID  string           `bson:"requestId" json:"requestId"`
	IP         string           `bson:"ip" json:"ip"`
	UserAgent  string           `bson:"userAgent" json:"userAgent"`
	URL        string           `bson:"url" json:"url"`
	Method     string           `bson:"method" json:"method"`
	Verdict    string           `bson:"verdict" json:"verdict"`
	FromCache  bool             `bson:"fromCache" json:"fromCache"`
	Blocked    bool             `bson:"blocked" json:"blocked"`
	StatusCode int              `bson:"statusCode" json:"statusCode"`
	Checks     cloak.CheckFlags `bson:"checks" json:"checks"`
	Comment    string           `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt  time.Time        `bson:"createdAt" json:"createdAt"`
	ExpiresAt  time.Time        `bson:"expiresAt" json:"-"`
}

// Sink stores audit records.
type Sink interface {
	// Insert persists one record. Called from a background goroutine.
	Insert(ctx context.Context, rec Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Logger issues fire-and-forget audit writes to a Sink.
type Logger struct {
	sink Sink
	log  *slog.Logger

	// onRecord, if set, is invoked for every completed record. The web
	// layer uses it to broadcast live events to monitoring clients.
	onRecord func(Record)
}

// NewLogger creates an audit logger over the sink. A nil sink disables
// persistence but still fills in record metadata and fires callbacks.
func NewLogger(sink Sink, log *slog.Logger) *Logger {
	return &Logger{sink: sink, log: log}
}

// SetOnRecord registers a callback invoked for every audited record.
// Must be set before the logger is shared between goroutines.
func (l *Logger) SetOnRecord(fn func(Record)) {
	l.onRecord = fn
}

// Log issues a best-effort, non-blocking audit write. Missing metadata is
// filled in (request ID, timestamps, retention expiry) before the record is
// handed to the sink in a background goroutine with its own timeout.
func (l *Logger) Log(rec Record) {
	if rec.RequestID == "" {
		rec.RequestID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ExpiresAt = rec.CreatedAt.Add(RetentionPeriod)

	if l.onRecord != nil {
		l.onRecord(rec)
	}

	if l.sink == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := l.sink.Insert(ctx, rec); err != nil {
			if l.log != nil {
				l.log.Error("audit_write_failed", "request_id", rec.RequestID, "error", err)
			}
			return
		}
		if l.log != nil {
			l.log.Debug("request_logged", "request_id", rec.RequestID,
				"verdict", rec.Verdict, "ip", rec.IP)
		}
	}()
}

// Recent returns up to limit records from the sink, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Record, error) {
	if l.sink == nil {
		return nil, nil
	}
	return l.sink.Recent(ctx, limit)
}
