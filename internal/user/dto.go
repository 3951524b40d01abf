package user

import (
	"errors"
	"strings"
	"time"
)

// RegisterDTO is the public sign-up payload. StoreCode is the join code
// printed for each store, it decides which managers review the account.
type RegisterDTO struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required,min=6"`
	Name      string `json:"name" validate:"required,max=64"`
	FullName  string `json:"full_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	StoreCode string `json:"store_code" validate:"required"`
}

func (dto RegisterDTO) Validate() error {
	if len(strings.TrimSpace(dto.Username)) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if len(dto.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(dto.StoreCode) == "" {
		return errors.New("store code is required")
	}
	return nil
}

// UpdateUserDTO carries profile and administrative edits. Nil fields are
// left untouched.
type UpdateUserDTO struct {
	Name      *string `json:"name,omitempty"`
	FullName  *string `json:"full_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Position  *string `json:"position,omitempty"`
	Grade     *int    `json:"grade,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
	Role      *Role   `json:"role,omitempty"`
	Status    *string `json:"status,omitempty"`
	StoreID   *int64  `json:"store_id,omitempty"`
}

func (dto UpdateUserDTO) Validate() error {
	if dto.Role != nil {
		switch *dto.Role {
		case RoleAdmin, RoleStoreManager, RoleSeniorEmployee, RoleEmployee, RoleRegional, RoleGuest:
		default:
			return errors.New("unknown role")
		}
	}
	if dto.Status != nil {
		switch *dto.Status {
		case StatusPending, StatusActive, StatusBlocked:
		default:
			return errors.New("unknown status")
		}
	}
	if dto.Grade != nil && (*dto.Grade < 1 || *dto.Grade > 10) {
		return errors.New("grade out of range")
	}
	return nil
}

// SetReminderDTO selects a shift reminder preference.
type SetReminderDTO struct {
	Preference string `json:"preference" validate:"required"`
}

// Relative reminder modes. Anything else is a fixed HH:MM clock fired the
// evening before a shift.
const (
	ReminderNone       = "none"
	ReminderAtStart    = "start"
	ReminderHourBefore = "1h"
	ReminderHalfDay    = "12h"
)

// ValidReminderPref accepts the relative modes plus a fixed HH:MM clock.
func ValidReminderPref(pref string) bool {
	switch pref {
	case ReminderNone, ReminderAtStart, ReminderHourBefore, ReminderHalfDay:
		return true
	}
	_, err := time.Parse("15:04", pref)
	return err == nil
}
