package schedule

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/user"
)

// Repository defines the data access methods for shifts and tasks
type Repository interface {
	ReplaceShift(s *Shift) error
	GetShiftByID(id int64) (*Shift, error)
	DeleteShift(id int64) error
	ListShiftsByMonth(month string, storeID *int64) ([]*Shift, error)
	ListShiftsByDate(date string, storeID *int64) ([]*Shift, error)
	ListShiftsForName(name, fromDate string) ([]*Shift, error)
	ListShiftsFrom(date string) ([]*Shift, error)

	CreateTask(t *Task) error
	GetTaskByID(id int64) (*Task, error)
	DeleteTask(id int64) error
	ListTasksByMonth(month string, storeID *int64) ([]*Task, error)
	ListTasksByDate(date string, storeID *int64) ([]*Task, error)

	ClearDay(date string, storeID *int64) error
	ClearMonth(month string, storeID *int64) error
	PurgeUserFuture(name, fromDate string) error
}

// Service owns shift and task data. It carries no approval logic: callers
// with direct authority reach it through the workflow engine's commit path,
// everyone else through an approved request replay.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ReplaceShift writes one schedule cell, removing whatever row occupied the
// same (date, name) first.
func (s *Service) ReplaceShift(date, name, start, end string, storeID *int64) error {
	dto := ShiftDTO{Date: date, Name: name, Start: start, End: end}
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	shift := &Shift{Date: date, Name: name, Start: start, End: end, StoreID: storeID}
	if err := s.repo.ReplaceShift(shift); err != nil {
		s.logger.Error("failed to replace shift", "date", date, "name", name, "error", err)
		return err
	}
	s.logger.Info("shift written", "date", date, "name", name, "start", start, "end", end)
	return nil
}

// GetShift loads one shift row.
func (s *Service) GetShift(id int64) (*Shift, error) {
	shift, err := s.repo.GetShiftByID(id)
	if err != nil {
		return nil, internal.ErrShiftNotFound
	}
	return shift, nil
}

// GetTask loads one task row.
func (s *Service) GetTask(id int64) (*Task, error) {
	task, err := s.repo.GetTaskByID(id)
	if err != nil {
		return nil, internal.ErrTaskNotFound
	}
	return task, nil
}

// DeleteShiftByID removes a shift and returns the deleted row so the caller
// can notify its owner.
func (s *Service) DeleteShiftByID(id int64) (*Shift, error) {
	shift, err := s.repo.GetShiftByID(id)
	if err != nil {
		return nil, internal.ErrShiftNotFound
	}
	if err := s.repo.DeleteShift(id); err != nil {
		s.logger.Error("failed to delete shift", "shift_id", id, "error", err)
		return nil, err
	}
	s.logger.Info("shift deleted", "shift_id", id, "date", shift.Date, "name", shift.Name)
	return shift, nil
}

// CreateTask writes one task row.
func (s *Service) CreateTask(date, name, title, description, start string, allDay bool, storeID *int64) error {
	dto := TaskDTO{Date: date, Name: name, Title: title, Description: description, Start: start, AllDay: allDay}
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	task := &Task{Date: date, Name: name, Title: title, Description: description, Start: start, AllDay: allDay, StoreID: storeID}
	if err := s.repo.CreateTask(task); err != nil {
		s.logger.Error("failed to create task", "date", date, "name", name, "error", err)
		return err
	}
	s.logger.Info("task written", "date", date, "name", name, "title", title)
	return nil
}

// DeleteTaskByID removes a task and returns the deleted row.
func (s *Service) DeleteTaskByID(id int64) (*Task, error) {
	task, err := s.repo.GetTaskByID(id)
	if err != nil {
		return nil, internal.ErrTaskNotFound
	}
	if err := s.repo.DeleteTask(id); err != nil {
		s.logger.Error("failed to delete task", "task_id", id, "error", err)
		return nil, err
	}
	s.logger.Info("task deleted", "task_id", id, "date", task.Date, "name", task.Name)
	return task, nil
}

// ListShifts returns a month of shifts visible to the actor.
func (s *Service) ListShifts(actor *user.User, month string) ([]*Shift, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	return s.repo.ListShiftsByMonth(month, s.visibleStore(actor))
}

// ListTasks returns a month of tasks visible to the actor.
func (s *Service) ListTasks(actor *user.User, month string) ([]*Task, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	return s.repo.ListTasksByMonth(month, s.visibleStore(actor))
}

// BulkImport writes a batch of shifts, each an idempotent replace. Partial
// failures stop the import and report how far it got.
func (s *Service) BulkImport(actor *user.User, rows []ShiftDTO) (int, error) {
	if !actor.IsManager() {
		return 0, internal.ErrForbiddenRole
	}
	for i, dto := range rows {
		if err := dto.Validate(); err != nil {
			return i, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
		}
		shift := &Shift{Date: dto.Date, Name: dto.Name, Start: dto.Start, End: dto.End, StoreID: actor.StoreID}
		if err := s.repo.ReplaceShift(shift); err != nil {
			s.logger.Error("bulk import stopped", "row", i, "date", dto.Date, "name", dto.Name, "error", err)
			return i, err
		}
	}
	s.logger.Info("bulk import finished", "rows", len(rows), "actor", actor.Name)
	return len(rows), nil
}

// ClearDay wipes one day of the actor's store schedule.
func (s *Service) ClearDay(actor *user.User, date string) error {
	if !actor.IsManager() {
		return internal.ErrForbiddenRole
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return internal.NewValidationError("date must be in YYYY-MM-DD format", internal.ErrCodeInvalidDate)
	}
	if err := s.repo.ClearDay(date, actor.StoreID); err != nil {
		s.logger.Error("failed to clear day", "date", date, "error", err)
		return err
	}
	s.logger.Info("day cleared", "date", date, "actor", actor.Name)
	return nil
}

// ClearMonth wipes a whole month of the actor's store schedule.
func (s *Service) ClearMonth(actor *user.User, month string) error {
	if !actor.IsManager() {
		return internal.ErrForbiddenRole
	}
	if err := validMonth(month); err != nil {
		return err
	}
	if err := s.repo.ClearMonth(month, actor.StoreID); err != nil {
		s.logger.Error("failed to clear month", "month", month, "error", err)
		return err
	}
	s.logger.Info("month cleared", "month", month, "actor", actor.Name)
	return nil
}

// MonthHours aggregates worked hours per employee for a month. Status rows
// contribute nothing.
func (s *Service) MonthHours(actor *user.User, month string) (map[string]float64, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	shifts, err := s.repo.ListShiftsByMonth(month, s.visibleStore(actor))
	if err != nil {
		return nil, err
	}

	hours := make(map[string]float64)
	for _, shift := range shifts {
		if h := shift.Hours(); h > 0 {
			hours[shift.Name] += h
		}
	}
	return hours, nil
}

// ShiftsForName lists an employee's shifts from a date onward, for the bot
// "my shifts" and "my days off" views.
func (s *Service) ShiftsForName(name, fromDate string) ([]*Shift, error) {
	return s.repo.ListShiftsForName(name, fromDate)
}

// OnDuty lists who is working on a date at a store.
func (s *Service) OnDuty(date string, storeID *int64) ([]*Shift, error) {
	shifts, err := s.repo.ListShiftsByDate(date, storeID)
	if err != nil {
		return nil, err
	}
	working := shifts[:0]
	for _, shift := range shifts {
		if shift.IsWorking() {
			working = append(working, shift)
		}
	}
	return working, nil
}

// PurgeUserFuture drops all shifts and tasks for a name from the given day
// on. Used when an account is blocked.
func (s *Service) PurgeUserFuture(name string, from time.Time) error {
	fromDate := from.Format(DateLayout)
	if err := s.repo.PurgeUserFuture(name, fromDate); err != nil {
		s.logger.Error("failed to purge user schedule", "name", name, "from", fromDate, "error", err)
		return err
	}
	s.logger.Info("user schedule purged", "name", name, "from", fromDate)
	return nil
}

func (s *Service) visibleStore(actor *user.User) *int64 {
	if actor.IsAdmin() || (actor.Role == user.RoleRegional && actor.StoreID == nil) {
		return nil
	}
	return actor.StoreID
}

func validMonth(month string) error {
	if len(month) != 7 || strings.Count(month, "-") != 1 {
		return internal.NewValidationError("month must be in YYYY-MM format", internal.ErrCodeInvalidDate)
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return internal.NewValidationError("month must be in YYYY-MM format", internal.ErrCodeInvalidDate)
	}
	return nil
}
