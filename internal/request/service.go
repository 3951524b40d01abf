package request

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/core/events"
	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/store"
	"github.com/shifterhq/shifter/internal/user"
)

// Repository defines the data access methods for requests
type Repository interface {
	Create(req *Request) error
	GetByID(id int64) (*Request, error)
	List(storeID *int64) ([]*Request, error)
	FindTransfer(createdBy string, targetStoreID int64) (*Request, error)
	Delete(id int64) error
}

// Scheduler is the apply surface: approved payloads and direct manager
// mutations both land here.
type Scheduler interface {
	ReplaceShift(date, name, start, end string, storeID *int64) error
	DeleteShiftByID(id int64) (*schedule.Shift, error)
	GetShift(id int64) (*schedule.Shift, error)
	CreateTask(date, name, title, description, start string, allDay bool, storeID *int64) error
	DeleteTaskByID(id int64) (*schedule.Task, error)
}

// Roster resolves accounts for routing, store stamping and task fan-out.
type Roster interface {
	ListManagersByStore(storeID int64) ([]*user.User, error)
	AssignableNames(storeID *int64) ([]string, error)
	StoreIDByName(name string) (*int64, error)
	MoveToStore(userID, storeID int64) error
}

// StoreFinder resolves transfer targets.
type StoreFinder interface {
	GetByCode(code string) (*store.Store, error)
}

// Notifier is the messaging surface the workflow needs.
type Notifier interface {
	NotifyUser(name, text string)
	NotifyChatButtons(chatID int64, text string, buttons [][]notify.Button) (int, error)
}

// Service is the request workflow engine. Every schedule mutation funnels
// through Submit: managers commit directly, employees produce a pending
// request routed to their store's managers, read-only roles are refused.
type Service struct {
	repo      Repository
	scheduler Scheduler
	roster    Roster
	stores    StoreFinder
	notifier  Notifier
	eventBus  *events.EventBus
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, scheduler Scheduler, roster Roster, stores StoreFinder, notifier Notifier, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		roster:    roster,
		stores:    stores,
		notifier:  notifier,
		eventBus:  eventBus,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit classifies the actor and either applies the mutation, records it
// as a pending request, or refuses. Refusals are answers, not errors: the
// envelope carries success=false.
func (s *Service) Submit(actor *user.User, kind Kind, payload MutationPayload) (Result, error) {
	if err := payload.ValidateFor(kind); err != nil {
		return Result{}, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidPayload)
	}

	switch user.Classify(actor.Role) {
	case user.CapabilityAllowed:
		if err := s.apply(kind, payload, actor.Name, s.affectedStore(payload.Name, actor.StoreID)); err != nil {
			return Result{}, err
		}
		return Result{Success: true}, nil

	case user.CapabilityPending:
		return s.propose(actor, kind, payload)

	case user.CapabilityForbidden:
		s.logger.Warn("mutation refused", "actor", actor.Name, "role", actor.Role, "kind", kind)
		return Result{Success: false, Message: "роль не має права змінювати графік"}, nil

	default:
		return Result{}, internal.NewUnauthorizedError("unknown role", internal.ErrCodeForbiddenRole)
	}
}

func (s *Service) propose(actor *user.User, kind Kind, payload MutationPayload) (Result, error) {
	storeID := s.affectedStore(payload.Name, actor.StoreID)
	if storeID == nil {
		return Result{}, internal.ErrStoreNotFound
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Result{}, internal.NewInternalError("failed to encode payload", err)
	}

	req := &Request{Kind: kind, Payload: raw, CreatedBy: actor.Name, StoreID: storeID}
	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to create request", "actor", actor.Name, "kind", kind, "error", err)
		return Result{}, err
	}

	s.logger.Info("request created", "request_id", req.ID, "kind", kind, "actor", actor.Name)
	s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
		events.EventTypeRequestSubmitted, actor.Name,
		fmt.Sprintf("submitted request #%d: %s", req.ID, req.Describe()), storeID))

	s.routeToManagers(req, *storeID,
		fmt.Sprintf("🔔 Запит від <b>%s</b>: %s", req.CreatedBy, req.Describe()),
		[][]notify.Button{{
			{Label: "✅ Схвалити", Action: fmt.Sprintf("approve_req_%d", req.ID)},
			{Label: "❌ Відхилити", Action: fmt.Sprintf("reject_req_%d", req.ID)},
		}})

	return Result{Success: true, Pending: true}, nil
}

// affectedStore resolves the store of the employee named in a mutation, so
// the row is stamped and routed where that employee works. Mutations without
// a resolvable name (deletes by id, the "all" fan-out target, unknown names)
// fall back to the actor's own store.
func (s *Service) affectedStore(name string, fallback *int64) *int64 {
	if name == "" || name == TaskTargetAll {
		return fallback
	}
	storeID, err := s.roster.StoreIDByName(name)
	if err != nil || storeID == nil {
		return fallback
	}
	return storeID
}

func (s *Service) routeToManagers(req *Request, storeID int64, text string, buttons [][]notify.Button) {
	managers, err := s.roster.ListManagersByStore(storeID)
	if err != nil {
		s.logger.Error("failed to list managers for routing", "request_id", req.ID, "store_id", storeID, "error", err)
		return
	}
	for _, m := range managers {
		if m.TelegramChatID == nil {
			continue
		}
		if _, err := s.notifier.NotifyChatButtons(*m.TelegramChatID, text, buttons); err != nil {
			s.logger.Error("failed to route request", "request_id", req.ID, "manager_id", m.ID, "error", err)
		}
	}
}

// apply executes a schedule mutation with full authority. Add-shift is an
// idempotent replace; task target "all" expands to one row per roster name.
// Affected employees are notified when the date is today or later.
func (s *Service) apply(kind Kind, p MutationPayload, actor string, storeID *int64) error {
	switch kind {
	case KindAddShift:
		if err := s.scheduler.ReplaceShift(p.Date, p.Name, p.Start, p.End, storeID); err != nil {
			return err
		}
		s.audit(events.EventTypeShiftReplaced, actor,
			fmt.Sprintf("shift %s %s %s-%s", p.Date, p.Name, p.Start, p.End), storeID)
		s.notifyIfUpcoming(p.Date, p.Name,
			fmt.Sprintf("📅 Вам призначено зміну %s: %s–%s", p.Date, p.Start, p.End))
		return nil

	case KindDeleteShift:
		shift, err := s.scheduler.DeleteShiftByID(p.ID)
		if err != nil {
			return err
		}
		s.audit(events.EventTypeShiftRemoved, actor,
			fmt.Sprintf("removed shift %s %s", shift.Date, shift.Name), storeID)
		s.notifyIfUpcoming(shift.Date, shift.Name,
			fmt.Sprintf("❌ Вашу зміну %s видалено", shift.Date))
		return nil

	case KindAddTask:
		if p.Name == TaskTargetAll {
			names, err := s.roster.AssignableNames(storeID)
			if err != nil {
				return err
			}
			for _, name := range names {
				if err := s.scheduler.CreateTask(p.Date, name, p.Title, p.Description, p.Start, p.AllDay, storeID); err != nil {
					return err
				}
				s.notifyIfUpcoming(p.Date, name,
					fmt.Sprintf("📝 Нова задача на %s: %s", p.Date, p.Title))
			}
			s.audit(events.EventTypeTaskAssigned, actor,
				fmt.Sprintf("task %q on %s for all (%d)", p.Title, p.Date, len(names)), storeID)
			return nil
		}
		if err := s.scheduler.CreateTask(p.Date, p.Name, p.Title, p.Description, p.Start, p.AllDay, storeID); err != nil {
			return err
		}
		s.audit(events.EventTypeTaskAssigned, actor,
			fmt.Sprintf("task %q on %s for %s", p.Title, p.Date, p.Name), storeID)
		s.notifyIfUpcoming(p.Date, p.Name,
			fmt.Sprintf("📝 Нова задача на %s: %s", p.Date, p.Title))
		return nil

	case KindDeleteTask:
		task, err := s.scheduler.DeleteTaskByID(p.ID)
		if err != nil {
			return err
		}
		s.audit(events.EventTypeTaskRemoved, actor,
			fmt.Sprintf("removed task %q %s %s", task.Title, task.Date, task.Name), storeID)
		s.notifyIfUpcoming(task.Date, task.Name,
			fmt.Sprintf("❌ Задачу «%s» на %s скасовано", task.Title, task.Date))
		return nil
	}
	return internal.NewValidationError("unknown request kind", internal.ErrCodeInvalidPayload)
}

func (s *Service) audit(eventType, actor, action string, storeID *int64) {
	s.eventBus.PublishSync(context.Background(),
		events.NewWorkflowEvent(eventType, actor, action, storeID))
}

func (s *Service) notifyIfUpcoming(date, name, text string) {
	today := s.now().Format(schedule.DateLayout)
	if date >= today {
		s.notifier.NotifyUser(name, text)
	}
}

// Resolve applies or discards one pending request. A vanished request is an
// idempotent no-op answering success=false, which is what a double-clicked
// button produces.
func (s *Service) Resolve(requestID int64, approve bool, approver *user.User) (Result, error) {
	if !approver.IsManager() {
		return Result{}, internal.ErrForbiddenRole
	}

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		s.logger.Info("resolve on missing request", "request_id", requestID, "approver", approver.Name)
		return Result{Success: false, Message: "запит вже оброблено"}, nil
	}
	if req.Kind == KindTransfer {
		return Result{}, internal.NewValidationError("transfer requests have their own resolution flow", internal.ErrCodeInvalidPayload)
	}
	if !approver.SameStore(req.StoreID) {
		return Result{}, internal.ErrNotYourStore
	}

	if approve {
		var p MutationPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return Result{}, internal.NewInternalError("corrupt request payload", err)
		}
		if err := s.apply(req.Kind, p, approver.Name, req.StoreID); err != nil {
			return Result{}, err
		}
		s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
			events.EventTypeRequestApproved, approver.Name,
			fmt.Sprintf("approved request #%d: %s", req.ID, req.Describe()), req.StoreID))
		s.notifier.NotifyUser(req.CreatedBy,
			fmt.Sprintf("✅ Схвалено (SM: %s): %s", approver.Name, req.Describe()))
	} else {
		s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
			events.EventTypeRequestRejected, approver.Name,
			fmt.Sprintf("rejected request #%d: %s", req.ID, req.Describe()), req.StoreID))
		s.notifier.NotifyUser(req.CreatedBy,
			fmt.Sprintf("❌ Відхилено (SM: %s): %s", approver.Name, req.Describe()))
	}

	if err := s.repo.Delete(req.ID); err != nil {
		s.logger.Error("failed to delete resolved request", "request_id", req.ID, "error", err)
		return Result{}, err
	}

	s.logger.Info("request resolved", "request_id", req.ID, "approved", approve, "approver", approver.Name)
	return Result{Success: true}, nil
}

// ResolveAll approves every pending schedule request the approver can see.
// Failures are isolated per request; each requester gets one aggregated
// notification instead of a burst.
func (s *Service) ResolveAll(approver *user.User) (Result, error) {
	if !approver.IsManager() {
		return Result{}, internal.ErrForbiddenRole
	}

	scope := approver.StoreID
	if approver.IsAdmin() {
		scope = nil
	}

	reqs, err := s.repo.List(scope)
	if err != nil {
		return Result{}, err
	}

	approved := 0
	perRequester := make(map[string]int)
	for _, req := range reqs {
		if req.Kind == KindTransfer {
			continue
		}
		var p MutationPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			s.logger.Error("skipping corrupt request", "request_id", req.ID, "error", err)
			continue
		}
		if err := s.apply(req.Kind, p, approver.Name, req.StoreID); err != nil {
			s.logger.Error("bulk approval failed for request", "request_id", req.ID, "error", err)
			continue
		}
		if err := s.repo.Delete(req.ID); err != nil {
			s.logger.Error("failed to delete bulk-approved request", "request_id", req.ID, "error", err)
			continue
		}
		approved++
		perRequester[req.CreatedBy]++
	}

	for requester, n := range perRequester {
		s.notifier.NotifyUser(requester,
			fmt.Sprintf("✅ Схвалено запитів: %d (SM: %s)", n, approver.Name))
	}

	s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
		events.EventTypeRequestApproved, approver.Name,
		fmt.Sprintf("bulk-approved %d requests", approved), scope))

	s.logger.Info("bulk approval finished", "approved", approved, "approver", approver.Name)
	return Result{Success: true, Message: fmt.Sprintf("схвалено: %d", approved)}, nil
}

// RequestTransfer opens a store transfer request, routed to the managers of
// the target store.
func (s *Service) RequestTransfer(actor *user.User, targetStoreCode string) (Result, error) {
	target, err := s.stores.GetByCode(targetStoreCode)
	if err != nil {
		return Result{}, internal.ErrStoreNotFound
	}
	targetID, targetName := target.ID, target.Name
	if actor.StoreID != nil && *actor.StoreID == targetID {
		return Result{}, internal.ErrSameStore
	}
	if existing, err := s.repo.FindTransfer(actor.Name, targetID); err == nil && existing != nil {
		return Result{}, internal.ErrDuplicateTransfer
	}

	raw, err := json.Marshal(TransferPayload{UserID: actor.ID, TargetStoreID: targetID, TargetStoreName: targetName})
	if err != nil {
		return Result{}, internal.NewInternalError("failed to encode payload", err)
	}

	req := &Request{Kind: KindTransfer, Payload: raw, CreatedBy: actor.Name, StoreID: &targetID}
	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to create transfer request", "actor", actor.Name, "error", err)
		return Result{}, err
	}

	s.logger.Info("transfer requested", "request_id", req.ID, "actor", actor.Name, "target_store_id", targetID)

	s.routeToManagers(req, targetID,
		fmt.Sprintf("🔄 <b>%s</b> просить перевід до вашого магазину", actor.Name),
		[][]notify.Button{{
			{Label: "✅ Прийняти", Action: fmt.Sprintf("transfer_approve_%d", req.ID)},
			{Label: "❌ Відхилити", Action: fmt.Sprintf("transfer_reject_%d", req.ID)},
		}})

	return Result{Success: true, Pending: true}, nil
}

// RespondTransfer resolves a transfer request. Approval moves the account
// to the target store directly.
func (s *Service) RespondTransfer(requestID int64, approve bool, approver *user.User) (Result, error) {
	if !approver.IsManager() {
		return Result{}, internal.ErrForbiddenRole
	}

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return Result{Success: false, Message: "запит вже оброблено"}, nil
	}
	if req.Kind != KindTransfer {
		return Result{}, internal.NewValidationError("not a transfer request", internal.ErrCodeInvalidPayload)
	}

	var p TransferPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return Result{}, internal.NewInternalError("corrupt request payload", err)
	}
	if !approver.SameStore(&p.TargetStoreID) {
		return Result{}, internal.ErrNotYourStore
	}

	if approve {
		if err := s.roster.MoveToStore(p.UserID, p.TargetStoreID); err != nil {
			s.logger.Error("failed to move user to store", "user_id", p.UserID, "store_id", p.TargetStoreID, "error", err)
			return Result{}, err
		}
		s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
			events.EventTypeTransferApproved, approver.Name,
			fmt.Sprintf("transferred %s to store %s", req.CreatedBy, p.TargetStoreName), &p.TargetStoreID))
		s.notifier.NotifyUser(req.CreatedBy,
			fmt.Sprintf("✅ Перевід до магазину %s схвалено (SM: %s)", p.TargetStoreName, approver.Name))
	} else {
		s.notifier.NotifyUser(req.CreatedBy,
			fmt.Sprintf("❌ Перевід до магазину %s відхилено (SM: %s)", p.TargetStoreName, approver.Name))
	}

	if err := s.repo.Delete(req.ID); err != nil {
		s.logger.Error("failed to delete resolved transfer", "request_id", req.ID, "error", err)
		return Result{}, err
	}

	s.logger.Info("transfer resolved", "request_id", req.ID, "approved", approve, "approver", approver.Name)
	return Result{Success: true}, nil
}

// List returns the pending requests the approver can act on.
func (s *Service) List(actor *user.User) ([]*Request, error) {
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}
	scope := actor.StoreID
	if actor.IsAdmin() {
		scope = nil
	}
	return s.repo.List(scope)
}

// Get loads one request, for stale-button rendering.
func (s *Service) Get(requestID int64) (*Request, error) {
	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, internal.ErrRequestNotFound
	}
	return req, nil
}
