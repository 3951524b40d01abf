package notify

import "time"

// PendingNotification is a message deferred by the quiet-hours window. Rows
// are deleted once the send succeeds, so the table doubles as the retry
// backlog after transport outages.
type PendingNotification struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ChatID    int64     `json:"chat_id" gorm:"column:chat_id;not null"`
	Text      string    `json:"text" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (PendingNotification) TableName() string {
	return "pending_notifications"
}

// PendingRepository persists the deferred queue.
type PendingRepository interface {
	Create(n *PendingNotification) error
	ListOldestFirst() ([]*PendingNotification, error)
	Delete(id int64) error
}
