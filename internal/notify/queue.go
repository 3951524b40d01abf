package notify

import (
	"log/slog"
	"time"
)

// Queue wraps a Transport with quiet-hours awareness. Between QuietStart and
// QuietEnd (operator timezone, start >= end wraps midnight) plain messages
// are parked in the pending table instead of being sent; FlushDue drains the
// backlog once the window reopens.
//
// Only plain text defers. Messages with keyboards or topic targets are
// workflow surfaces and always go out immediately.
type Queue struct {
	transport Transport
	pending   PendingRepository
	logger    *slog.Logger

	loc        *time.Location
	quietStart int
	quietEnd   int
	throttle   time.Duration

	now func() time.Time
}

func NewQueue(transport Transport, pending PendingRepository, logger *slog.Logger, loc *time.Location, quietStart, quietEnd int, throttle time.Duration) *Queue {
	return &Queue{
		transport:  transport,
		pending:    pending,
		logger:     logger,
		loc:        loc,
		quietStart: quietStart,
		quietEnd:   quietEnd,
		throttle:   throttle,
		now:        time.Now,
	}
}

// WithClock overrides the queue clock, for tests.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// InQuietHours reports whether t falls in the do-not-disturb window.
func (q *Queue) InQuietHours(t time.Time) bool {
	h := t.In(q.loc).Hour()
	if q.quietStart > q.quietEnd {
		return h >= q.quietStart || h < q.quietEnd
	}
	return h >= q.quietStart && h < q.quietEnd
}

// Deliver sends text to a chat, deferring to the pending queue during quiet
// hours. Transport failures are logged and swallowed: a lost reminder never
// aborts the workflow that produced it.
func (q *Queue) Deliver(chatID int64, text string, opts MessageOptions) {
	deferrable := len(opts.Keyboard) == 0 && opts.TopicID == nil
	if deferrable && q.InQuietHours(q.now()) {
		if err := q.pending.Create(&PendingNotification{ChatID: chatID, Text: text}); err != nil {
			q.logger.Error("failed to park notification", "chat_id", chatID, "error", err)
		} else {
			q.logger.Debug("notification parked for quiet hours", "chat_id", chatID)
		}
		return
	}

	if _, err := q.transport.SendMessage(chatID, text, opts); err != nil {
		q.logger.Error("notification send failed", "chat_id", chatID, "error", err)
	}
}

// SendNow sends immediately regardless of the quiet window and returns the
// transport message id for later in-place edits. For actionable messages
// whose buttons must stay pressable the moment they exist.
func (q *Queue) SendNow(chatID int64, text string, opts MessageOptions) (int, error) {
	return q.transport.SendMessage(chatID, text, opts)
}

// FlushDue drains the pending backlog oldest first. Rows are deleted only
// after the transport accepts them; a failed send leaves the row for the
// next flush and moves on. No-op inside quiet hours.
func (q *Queue) FlushDue() {
	if q.InQuietHours(q.now()) {
		return
	}

	rows, err := q.pending.ListOldestFirst()
	if err != nil {
		q.logger.Error("failed to list pending notifications", "error", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	q.logger.Info("flushing pending notifications", "count", len(rows))

	for i, row := range rows {
		if _, err := q.transport.SendMessage(row.ChatID, row.Text, MessageOptions{}); err != nil {
			q.logger.Error("pending send failed, keeping row", "id", row.ID, "chat_id", row.ChatID, "error", err)
			continue
		}
		if err := q.pending.Delete(row.ID); err != nil {
			q.logger.Error("failed to delete sent notification", "id", row.ID, "error", err)
		}
		if q.throttle > 0 && i < len(rows)-1 {
			time.Sleep(q.throttle)
		}
	}
}
