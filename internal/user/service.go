package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/core/events"
	"github.com/shifterhq/shifter/internal/notify"
)

// Repository defines the data access methods for users
type Repository interface {
	Create(u *User) error
	GetByID(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByChatID(chatID int64) (*User, error)
	List(storeID *int64) ([]*User, error)
	ListManagersByStore(storeID int64) ([]*User, error)
	Update(u *User) error
	UpdateReminderPref(id int64, pref string) error
	Delete(id int64) error
}

// StoreDirectory resolves store join codes, implemented by the store
// repository.
type StoreDirectory interface {
	StoreIDByCode(code string) (int64, error)
}

// Notifier is the messaging surface the service needs.
type Notifier interface {
	NotifyChat(chatID int64, text string)
	NotifyChatButtons(chatID int64, text string, buttons [][]notify.Button) (int, error)
}

// SchedulePurger removes a user's future schedule rows when the account is
// blocked.
type SchedulePurger interface {
	PurgeUserFuture(name string, from time.Time) error
}

// Service handles account lifecycle: registration, approval, administration
// and telegram linking.
type Service struct {
	repo       Repository
	stores     StoreDirectory
	notifier   Notifier
	purger     SchedulePurger
	eventBus   *events.EventBus
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, stores StoreDirectory, notifier Notifier, purger SchedulePurger, eventBus *events.EventBus, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		stores:     stores,
		notifier:   notifier,
		purger:     purger,
		eventBus:   eventBus,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Register creates a pending guest account bound to the store behind the
// join code and routes approve/reject buttons to that store's managers.
func (s *Service) Register(dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if existing, err := s.repo.GetByUsername(dto.Username); err == nil && existing != nil {
		return nil, internal.ErrUsernameTaken
	}

	storeID, err := s.stores.StoreIDByCode(dto.StoreCode)
	if err != nil {
		s.logger.Warn("registration with unknown store code", "store_code", dto.StoreCode)
		return nil, internal.ErrStoreNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Username:     dto.Username,
		PasswordHash: string(hash),
		Name:         dto.Name,
		FullName:     dto.FullName,
		Phone:        dto.Phone,
		Role:         RoleGuest,
		Status:       StatusPending,
		Grade:        1,
		StoreID:      &storeID,
		ReminderPref: "20:00",
	}
	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "username", dto.Username, "error", err)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username, "store_id", storeID)
	s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
		events.EventTypeUserRegistered, u.Username,
		fmt.Sprintf("registered for store %d", storeID), &storeID))

	s.routeRegistrationToManagers(u, storeID)

	return u, nil
}

func (s *Service) routeRegistrationToManagers(u *User, storeID int64) {
	managers, err := s.repo.ListManagersByStore(storeID)
	if err != nil {
		s.logger.Error("failed to list managers for registration", "store_id", storeID, "error", err)
		return
	}

	text := fmt.Sprintf("👤 Нова заявка на реєстрацію:\n<b>%s</b> (%s)", u.Name, u.Username)
	buttons := [][]notify.Button{{
		{Label: "✅ Прийняти", Action: fmt.Sprintf("approve_user_%d", u.ID)},
		{Label: "❌ Відхилити", Action: fmt.Sprintf("reject_user_%d", u.ID)},
	}}

	for _, m := range managers {
		if m.TelegramChatID == nil {
			continue
		}
		if _, err := s.notifier.NotifyChatButtons(*m.TelegramChatID, text, buttons); err != nil {
			s.logger.Error("failed to route registration", "manager_id", m.ID, "error", err)
		}
	}
}

// ApproveUser activates a pending account as a regular employee.
func (s *Service) ApproveUser(actor *User, userID int64) (*User, error) {
	target, err := s.authorizeAccountAction(actor, userID)
	if err != nil {
		return nil, err
	}

	target.Status = StatusActive
	target.Role = RoleEmployee
	target.Grade = 1
	if err := s.repo.Update(target); err != nil {
		s.logger.Error("failed to activate user", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("user approved", "user_id", userID, "approver", actor.Name)
	s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
		events.EventTypeUserApproved, actor.Name,
		fmt.Sprintf("approved account %s", target.Username), target.StoreID))

	if target.TelegramChatID != nil {
		s.notifier.NotifyChat(*target.TelegramChatID, "✅ Ваш акаунт підтверджено. Ласкаво просимо!")
	}
	return target, nil
}

// RejectUser deletes a pending account.
func (s *Service) RejectUser(actor *User, userID int64) (*User, error) {
	target, err := s.authorizeAccountAction(actor, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(userID); err != nil {
		s.logger.Error("failed to delete rejected user", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("user rejected", "user_id", userID, "approver", actor.Name)
	if target.TelegramChatID != nil {
		s.notifier.NotifyChat(*target.TelegramChatID, "❌ Вашу заявку на реєстрацію відхилено.")
	}
	return target, nil
}

func (s *Service) authorizeAccountAction(actor *User, userID int64) (*User, error) {
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}
	target, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	if !actor.SameStore(target.StoreID) {
		return nil, internal.ErrNotYourStore
	}
	return target, nil
}

// Update applies profile and administrative edits. Store managers edit only
// their own store; moving an account between stores is admin-only. Blocking
// an account purges its future shifts and tasks.
func (s *Service) Update(actor *User, userID int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	target, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	selfEdit := actor.ID == userID
	if !selfEdit {
		if !actor.IsManager() {
			return nil, internal.ErrForbiddenRole
		}
		if !actor.SameStore(target.StoreID) {
			return nil, internal.ErrNotYourStore
		}
	}

	// Role, status and store moves are administrative even on self.
	if (dto.Role != nil || dto.Status != nil) && !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}
	if dto.StoreID != nil && !actor.IsAdmin() {
		return nil, internal.ErrForbiddenRole
	}

	wasBlocked := target.Status == StatusBlocked

	if dto.Name != nil {
		target.Name = *dto.Name
	}
	if dto.FullName != nil {
		target.FullName = *dto.FullName
	}
	if dto.Email != nil {
		target.Email = *dto.Email
	}
	if dto.Phone != nil {
		target.Phone = *dto.Phone
	}
	if dto.Position != nil {
		target.Position = *dto.Position
	}
	if dto.Grade != nil {
		target.Grade = *dto.Grade
	}
	if dto.SortOrder != nil {
		target.SortOrder = *dto.SortOrder
	}
	if dto.Avatar != nil {
		target.Avatar = dto.Avatar
	}
	if dto.Role != nil {
		target.Role = *dto.Role
	}
	if dto.Status != nil {
		target.Status = *dto.Status
	}
	if dto.StoreID != nil {
		target.StoreID = dto.StoreID
	}

	if err := s.repo.Update(target); err != nil {
		s.logger.Error("failed to update user", "user_id", userID, "error", err)
		return nil, err
	}

	if !wasBlocked && target.Status == StatusBlocked {
		if err := s.purger.PurgeUserFuture(target.Name, time.Now()); err != nil {
			s.logger.Error("failed to purge schedule for blocked user", "user_id", userID, "error", err)
		}
		s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
			events.EventTypeUserBlocked, actor.Name,
			fmt.Sprintf("blocked account %s", target.Username), target.StoreID))
		if target.TelegramChatID != nil {
			s.notifier.NotifyChat(*target.TelegramChatID, "⛔️ Ваш акаунт заблоковано.")
		}
	}

	s.logger.Info("user updated", "user_id", userID, "actor", actor.Name)
	return target, nil
}

// SetReminderPref stores the shift reminder preference for a user.
func (s *Service) SetReminderPref(userID int64, pref string) error {
	if !ValidReminderPref(pref) {
		return internal.NewValidationError("unknown reminder preference", internal.ErrCodeInvalidTime)
	}
	if err := s.repo.UpdateReminderPref(userID, pref); err != nil {
		s.logger.Error("failed to set reminder preference", "user_id", userID, "error", err)
		return err
	}
	s.logger.Info("reminder preference set", "user_id", userID, "preference", pref)
	return nil
}

// LinkByCredentials verifies a username/password pair and binds the telegram
// chat to the account. Used by the bot /login flow.
func (s *Service) LinkByCredentials(username, password string, chatID int64) (*User, error) {
	u, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	if !u.CanLinkTelegram() {
		return nil, internal.ErrUserBlocked
	}

	u.TelegramChatID = &chatID
	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to link telegram chat", "user_id", u.ID, "error", err)
		return nil, err
	}
	s.logger.Info("telegram chat linked", "user_id", u.ID, "chat_id", chatID)
	return u, nil
}

func (s *Service) GetByID(userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) GetByChatID(chatID int64) (*User, error) {
	u, err := s.repo.GetByChatID(chatID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

// List returns the accounts the actor may see: everything for admins and
// store-less regionals, otherwise the actor's own store.
func (s *Service) List(actor *User) ([]*User, error) {
	if actor.IsAdmin() || (actor.Role == RoleRegional && actor.StoreID == nil) {
		return s.repo.List(nil)
	}
	if actor.StoreID == nil {
		return nil, internal.ErrStoreNotFound
	}
	return s.repo.List(actor.StoreID)
}
