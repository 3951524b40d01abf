package store

import (
	"errors"
	"strings"
	"time"
)

// Store is a retail location. ChatID binds the store's telegram group,
// NewsTopicID and EveningTopicID are forum topics inside it used for
// announcements and the evening schedule report.
type Store struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Code           string    `json:"code" gorm:"uniqueIndex;not null"`
	Type           string    `json:"type"`
	ChatID         *int64    `json:"chat_id,omitempty" gorm:"column:chat_id"`
	NewsTopicID    *int64    `json:"news_topic_id,omitempty" gorm:"column:news_topic_id"`
	EveningTopicID *int64    `json:"evening_topic_id,omitempty" gorm:"column:evening_topic_id"`
	ReportTime     string    `json:"report_time" gorm:"column:report_time;default:21:00"`
	OpenTime       string    `json:"open_time" gorm:"column:open_time;default:09:00"`
	CloseTime      string    `json:"close_time" gorm:"column:close_time;default:21:00"`
	BreakMinutes   int       `json:"break_minutes" gorm:"column:break_minutes;default:60"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Store) TableName() string {
	return "stores"
}

// CreateStoreDTO is the admin payload for adding a location.
type CreateStoreDTO struct {
	Name         string `json:"name" validate:"required"`
	Code         string `json:"code" validate:"required"`
	Type         string `json:"type,omitempty"`
	ReportTime   string `json:"report_time,omitempty"`
	OpenTime     string `json:"open_time,omitempty"`
	CloseTime    string `json:"close_time,omitempty"`
	BreakMinutes int    `json:"break_minutes,omitempty"`
}

func (dto CreateStoreDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(dto.Code) == "" {
		return errors.New("code is required")
	}
	for _, clock := range []string{dto.ReportTime, dto.OpenTime, dto.CloseTime} {
		if clock == "" {
			continue
		}
		if _, err := time.Parse("15:04", clock); err != nil {
			return errors.New("times must be in HH:MM format")
		}
	}
	return nil
}

// UpdateStoreDTO carries partial store edits.
type UpdateStoreDTO struct {
	Name         *string `json:"name,omitempty"`
	Type         *string `json:"type,omitempty"`
	ReportTime   *string `json:"report_time,omitempty"`
	OpenTime     *string `json:"open_time,omitempty"`
	CloseTime    *string `json:"close_time,omitempty"`
	BreakMinutes *int    `json:"break_minutes,omitempty"`
}

func (dto UpdateStoreDTO) Validate() error {
	for _, clock := range []*string{dto.ReportTime, dto.OpenTime, dto.CloseTime} {
		if clock == nil {
			continue
		}
		if _, err := time.Parse("15:04", *clock); err != nil {
			return errors.New("times must be in HH:MM format")
		}
	}
	return nil
}
