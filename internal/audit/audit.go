package audit

import "time"

// Entry is one append-only audit row. Entries are the only history the
// request workflow keeps; resolved requests themselves are deleted.
type Entry struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	EventType string    `json:"event_type" gorm:"column:event_type;not null"`
	Actor     string    `json:"actor" gorm:"not null"`
	Action    string    `json:"action" gorm:"not null"`
	StoreID   *int64    `json:"store_id,omitempty" gorm:"column:store_id"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Entry) TableName() string {
	return "audit_logs"
}

// Repository persists audit entries.
type Repository interface {
	Append(e *Entry) error
	ListRecent(limit int, storeID *int64) ([]*Entry, error)
}
