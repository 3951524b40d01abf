package news

import (
	"errors"
	"strings"
	"time"
)

// Post is a text announcement broadcast to store news channels. ReadBy
// collects the display names that pressed the acknowledgement button.
type Post struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title"`
	Text      string    `json:"text" gorm:"not null"`
	Author    string    `json:"author" gorm:"not null"`
	StoreID   *int64    `json:"store_id,omitempty" gorm:"column:store_id"`
	ReadBy    []string  `json:"read_by" gorm:"column:read_by;serializer:json"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Post) TableName() string {
	return "news_posts"
}

// MarkRead records an acknowledgement once per name.
func (p *Post) MarkRead(name string) bool {
	for _, n := range p.ReadBy {
		if n == name {
			return false
		}
	}
	p.ReadBy = append(p.ReadBy, name)
	return true
}

// PublishDTO is the payload for a new announcement.
type PublishDTO struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text" validate:"required"`
}

func (dto PublishDTO) Validate() error {
	if strings.TrimSpace(dto.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}
