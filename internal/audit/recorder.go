package audit

import (
	"context"
	"log/slog"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/core/events"
	"github.com/shifterhq/shifter/internal/user"
)

// Recorder subscribes to workflow events and appends one audit row per
// event. Services never write audit entries directly.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// SubscribeAll registers the recorder for every workflow event type.
func (r *Recorder) SubscribeAll(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventTypeRequestSubmitted,
		events.EventTypeRequestApproved,
		events.EventTypeRequestRejected,
		events.EventTypeTransferApproved,
		events.EventTypeUserRegistered,
		events.EventTypeUserApproved,
		events.EventTypeUserBlocked,
		events.EventTypeShiftReplaced,
		events.EventTypeShiftRemoved,
		events.EventTypeTaskAssigned,
		events.EventTypeTaskRemoved,
		events.EventTypeNewsPublished,
	} {
		bus.Subscribe(eventType, r.handle)
	}
}

func (r *Recorder) handle(ctx context.Context, event events.Event) error {
	we, ok := event.(*events.WorkflowEvent)
	if !ok {
		r.logger.Warn("unexpected event shape", "event_type", event.EventType())
		return nil
	}

	entry := &Entry{
		EventType: we.EventType(),
		Actor:     we.Actor,
		Action:    we.Action,
		StoreID:   we.StoreID,
	}
	if err := r.repo.Append(entry); err != nil {
		r.logger.Error("failed to append audit entry", "event_type", we.EventType(), "error", err)
		return err
	}
	return nil
}

// Service exposes the manager-only audit listing.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the last 50 entries the actor may see.
func (s *Service) List(actor *user.User) ([]*Entry, error) {
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}
	scope := actor.StoreID
	if actor.IsAdmin() {
		scope = nil
	}
	return s.repo.ListRecent(50, scope)
}
