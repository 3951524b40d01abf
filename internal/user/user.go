package user

import (
	"time"
)

// Role is the closed set of access levels. Values are stored verbatim, the
// short forms are historical and survive in existing databases.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleStoreManager   Role = "SM"
	RoleSeniorEmployee Role = "SSE"
	RoleEmployee       Role = "SE"
	RoleRegional       Role = "RRP"
	RoleGuest          Role = "guest"
)

const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// Capability classifies what happens when a role tries to mutate the
// schedule: managers commit directly, employees produce a pending request,
// read-only roles are refused.
type Capability int

const (
	CapabilityUnauthorized Capability = iota
	CapabilityForbidden
	CapabilityPending
	CapabilityAllowed
)

// Classify maps a role to its schedule-mutation capability. Unknown roles
// are unauthorized rather than forbidden so a corrupted role value never
// silently gains access.
func Classify(role Role) Capability {
	switch role {
	case RoleAdmin, RoleStoreManager:
		return CapabilityAllowed
	case RoleSeniorEmployee, RoleEmployee:
		return CapabilityPending
	case RoleRegional, RoleGuest:
		return CapabilityForbidden
	default:
		return CapabilityUnauthorized
	}
}

// User is the account entity. Name is the short display name schedules are
// keyed on, FullName is the formal one shown in profiles.
type User struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"column:password_hash;not null"`
	Name           string    `json:"name" gorm:"not null"`
	FullName       string    `json:"full_name" gorm:"column:full_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Role           Role      `json:"role" gorm:"default:guest"`
	Status         string    `json:"status" gorm:"default:pending"`
	Position       string    `json:"position"`
	Grade          int       `json:"grade" gorm:"default:1"`
	SortOrder      int       `json:"sort_order" gorm:"column:sort_order;default:0"`
	Avatar         *string   `json:"avatar,omitempty"`
	StoreID        *int64    `json:"store_id,omitempty" gorm:"column:store_id"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty" gorm:"column:telegram_chat_id"`
	ReminderPref   string    `json:"reminder_pref" gorm:"column:reminder_pref;default:20:00"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsManager reports whether the user may approve requests and administer
// accounts. Regional users observe, they do not manage.
func (u *User) IsManager() bool {
	return u.Role == RoleAdmin || u.Role == RoleStoreManager
}

func (u *User) IsActiveUser() bool {
	return u.Status == StatusActive
}

// SameStore reports whether the user belongs to the given store. Admins
// have no store binding and match everything.
func (u *User) SameStore(storeID *int64) bool {
	if u.Role == RoleAdmin {
		return true
	}
	if u.StoreID == nil || storeID == nil {
		return false
	}
	return *u.StoreID == *storeID
}

// CanLinkTelegram is true for every real account. Pending guests still link
// so their approval verdict can reach them.
func (u *User) CanLinkTelegram() bool {
	return u.Status != StatusBlocked
}
