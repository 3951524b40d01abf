package store

import (
	"log/slog"
	"time"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/user"
)

// Repository defines the data access methods for stores
type Repository interface {
	Create(s *Store) error
	GetByID(id int64) (*Store, error)
	GetByCode(code string) (*Store, error)
	GetByChatID(chatID int64) (*Store, error)
	List() ([]*Store, error)
	Update(s *Store) error
}

// Service handles store administration and telegram channel binding.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List is public: the registration form needs store names and codes.
func (s *Service) List() ([]*Store, error) {
	return s.repo.List()
}

func (s *Service) GetByID(id int64) (*Store, error) {
	st, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrStoreNotFound
	}
	return st, nil
}

func (s *Service) Create(actor *user.User, dto CreateStoreDTO) (*Store, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrForbiddenRole
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	st := &Store{
		Name:         dto.Name,
		Code:         dto.Code,
		Type:         dto.Type,
		ReportTime:   defaultClock(dto.ReportTime, "21:00"),
		OpenTime:     defaultClock(dto.OpenTime, "09:00"),
		CloseTime:    defaultClock(dto.CloseTime, "21:00"),
		BreakMinutes: dto.BreakMinutes,
	}
	if st.BreakMinutes == 0 {
		st.BreakMinutes = 60
	}

	if err := s.repo.Create(st); err != nil {
		s.logger.Error("failed to create store", "code", dto.Code, "error", err)
		return nil, err
	}
	s.logger.Info("store created", "store_id", st.ID, "code", st.Code, "actor", actor.Name)
	return st, nil
}

func (s *Service) Update(actor *user.User, storeID int64, dto UpdateStoreDTO) (*Store, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}
	if !actor.SameStore(&storeID) {
		return nil, internal.ErrNotYourStore
	}

	st, err := s.repo.GetByID(storeID)
	if err != nil {
		return nil, internal.ErrStoreNotFound
	}

	if dto.Name != nil {
		st.Name = *dto.Name
	}
	if dto.Type != nil {
		st.Type = *dto.Type
	}
	if dto.ReportTime != nil {
		st.ReportTime = *dto.ReportTime
	}
	if dto.OpenTime != nil {
		st.OpenTime = *dto.OpenTime
	}
	if dto.CloseTime != nil {
		st.CloseTime = *dto.CloseTime
	}
	if dto.BreakMinutes != nil {
		st.BreakMinutes = *dto.BreakMinutes
	}

	if err := s.repo.Update(st); err != nil {
		s.logger.Error("failed to update store", "store_id", storeID, "error", err)
		return nil, err
	}
	s.logger.Info("store updated", "store_id", storeID, "actor", actor.Name)
	return st, nil
}

// LinkChat binds a telegram group chat to the store behind a join code.
// Run by a manager from inside the group.
func (s *Service) LinkChat(actor *user.User, code string, chatID int64) (*Store, error) {
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}

	st, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, internal.ErrStoreNotFound
	}
	if !actor.SameStore(&st.ID) {
		return nil, internal.ErrNotYourStore
	}

	st.ChatID = &chatID
	if err := s.repo.Update(st); err != nil {
		s.logger.Error("failed to link store chat", "store_id", st.ID, "error", err)
		return nil, err
	}
	s.logger.Info("store chat linked", "store_id", st.ID, "chat_id", chatID, "actor", actor.Name)
	return st, nil
}

// SetNewsTopic marks the current forum topic as the store's news channel.
func (s *Service) SetNewsTopic(actor *user.User, chatID int64, topicID *int64) (*Store, error) {
	return s.setTopic(actor, chatID, topicID, func(st *Store, id *int64) { st.NewsTopicID = id })
}

// SetEveningTopic marks the current forum topic as the evening report channel.
func (s *Service) SetEveningTopic(actor *user.User, chatID int64, topicID *int64) (*Store, error) {
	return s.setTopic(actor, chatID, topicID, func(st *Store, id *int64) { st.EveningTopicID = id })
}

func (s *Service) setTopic(actor *user.User, chatID int64, topicID *int64, assign func(*Store, *int64)) (*Store, error) {
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}

	st, err := s.repo.GetByChatID(chatID)
	if err != nil {
		return nil, internal.ErrStoreNotFound
	}
	if !actor.SameStore(&st.ID) {
		return nil, internal.ErrNotYourStore
	}

	assign(st, topicID)
	if err := s.repo.Update(st); err != nil {
		s.logger.Error("failed to set store topic", "store_id", st.ID, "error", err)
		return nil, err
	}
	s.logger.Info("store topic set", "store_id", st.ID, "actor", actor.Name)
	return st, nil
}

// SetReportTime changes when the evening schedule report fires.
func (s *Service) SetReportTime(actor *user.User, chatID int64, clock string) (*Store, error) {
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}
	if !validClock(clock) {
		return nil, internal.NewValidationError("time must be in HH:MM format", internal.ErrCodeInvalidTime)
	}

	st, err := s.repo.GetByChatID(chatID)
	if err != nil {
		return nil, internal.ErrStoreNotFound
	}
	if !actor.SameStore(&st.ID) {
		return nil, internal.ErrNotYourStore
	}

	st.ReportTime = clock
	if err := s.repo.Update(st); err != nil {
		s.logger.Error("failed to set report time", "store_id", st.ID, "error", err)
		return nil, err
	}
	s.logger.Info("report time set", "store_id", st.ID, "report_time", clock, "actor", actor.Name)
	return st, nil
}

func defaultClock(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func validClock(clock string) bool {
	_, err := time.Parse("15:04", clock)
	return err == nil
}
