package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/user"
)

// UserRepository implements user.Repository using GORM. It also serves the
// notification directory lookups keyed on schedule display names.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(username string) (*user.User, error) {
	var u user.User
	err := r.db.Where("username = ?", username).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByChatID(chatID int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("telegram_chat_id = ?", chatID).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns accounts ordered for roster display. A nil storeID means all
// stores.
func (r *UserRepository) List(storeID *int64) ([]*user.User, error) {
	var users []*user.User
	q := r.db.Order("sort_order ASC, name ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Find(&users).Error
	return users, err
}

func (r *UserRepository) ListManagersByStore(storeID int64) ([]*user.User, error) {
	var users []*user.User
	err := r.db.Where("store_id = ? AND role = ?", storeID, user.RoleStoreManager).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(u *user.User) error {
	u.UpdatedAt = time.Now()
	return r.db.Save(u).Error
}

func (r *UserRepository) UpdateReminderPref(id int64, pref string) error {
	return r.db.Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reminder_pref": pref,
			"updated_at":    time.Now(),
		}).Error
}

// MoveToStore reassigns an account to another store, used when a transfer
// request is approved.
func (r *UserRepository) MoveToStore(userID, storeID int64) error {
	return r.db.Model(&user.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"store_id":   storeID,
			"updated_at": time.Now(),
		}).Error
}

func (r *UserRepository) Delete(id int64) error {
	return r.db.Delete(&user.User{}, id).Error
}

// ChatIDByName implements notify.UserDirectory. Returns false when the name
// is unknown or the account never linked a chat.
func (r *UserRepository) ChatIDByName(name string) (int64, bool, error) {
	var u user.User
	err := r.db.Select("telegram_chat_id").Where("name = ?", name).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	if u.TelegramChatID == nil {
		return 0, false, nil
	}
	return *u.TelegramChatID, true, nil
}

// StoreIDByName resolves the store of the account behind a schedule display
// name, so mutations land in the store where that employee works. Unknown
// names resolve to nil rather than an error.
func (r *UserRepository) StoreIDByName(name string) (*int64, error) {
	var u user.User
	err := r.db.Select("store_id").Where("name = ?", name).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return u.StoreID, nil
}

// ListLinked returns active accounts with a telegram chat, the reminder
// scanner's working set.
func (r *UserRepository) ListLinked() ([]*user.User, error) {
	var users []*user.User
	err := r.db.Where("telegram_chat_id IS NOT NULL AND status = ?", user.StatusActive).
		Find(&users).Error
	return users, err
}

// AssignableNames lists schedule names eligible for task fan-out: active
// accounts outside the admin and regional roles, optionally restricted to a
// store.
func (r *UserRepository) AssignableNames(storeID *int64) ([]string, error) {
	var names []string
	q := r.db.Model(&user.User{}).
		Where("status = ?", user.StatusActive).
		Where("role NOT IN ?", []user.Role{user.RoleAdmin, user.RoleRegional}).
		Order("sort_order ASC, name ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Pluck("name", &names).Error
	return names, err
}
