package postgres

import (
	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal/notify"
)

// PendingRepository implements notify.PendingRepository using GORM
type PendingRepository struct {
	db *gorm.DB
}

func NewPendingRepository(db *gorm.DB) notify.PendingRepository {
	return &PendingRepository{db: db}
}

func (r *PendingRepository) Create(n *notify.PendingNotification) error {
	return r.db.Create(n).Error
}

// ListOldestFirst returns the full backlog in insertion order.
func (r *PendingRepository) ListOldestFirst() ([]*notify.PendingNotification, error) {
	var rows []*notify.PendingNotification
	err := r.db.Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *PendingRepository) Delete(id int64) error {
	return r.db.Delete(&notify.PendingNotification{}, id).Error
}
