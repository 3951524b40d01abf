package postgres

import (
	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal/audit"
)

// AuditRepository implements audit.Repository using GORM
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(e *audit.Entry) error {
	return r.db.Create(e).Error
}

func (r *AuditRepository) ListRecent(limit int, storeID *int64) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	q := r.db.Order("created_at DESC, id DESC").Limit(limit)
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Find(&entries).Error
	return entries, err
}
