package note

import (
	"errors"
	"strings"
	"time"
)

// Note is a short memo. Private notes are visible to their author only,
// public ones to the whole store.
type Note struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"not null"`
	Author    string    `json:"author" gorm:"not null"`
	StoreID   *int64    `json:"store_id,omitempty" gorm:"column:store_id"`
	Public    bool      `json:"public" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Note) TableName() string {
	return "notes"
}

// CreateNoteDTO is the payload for a new note.
type CreateNoteDTO struct {
	Text   string `json:"text" validate:"required"`
	Public bool   `json:"public,omitempty"`
}

func (dto CreateNoteDTO) Validate() error {
	if strings.TrimSpace(dto.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}
