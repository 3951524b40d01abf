package postgres

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/request"
)

// RequestRepository implements request.Repository using GORM
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) request.Repository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(req *request.Request) error {
	return r.db.Create(req).Error
}

func (r *RequestRepository) GetByID(id int64) (*request.Request, error) {
	var req request.Request
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// List returns pending requests oldest first, optionally scoped to a store.
func (r *RequestRepository) List(storeID *int64) ([]*request.Request, error) {
	var reqs []*request.Request
	q := r.db.Order("created_at ASC, id ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Find(&reqs).Error
	return reqs, err
}

// FindTransfer looks for an outstanding transfer by the same person to the
// same target store. Payload matching happens in Go to stay portable
// across postgres jsonb and the sqlite test driver.
func (r *RequestRepository) FindTransfer(createdBy string, targetStoreID int64) (*request.Request, error) {
	var reqs []*request.Request
	err := r.db.Where("kind = ? AND created_by = ?", request.KindTransfer, createdBy).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		var p request.TransferPayload
		if json.Unmarshal(req.Payload, &p) == nil && p.TargetStoreID == targetStoreID {
			return req, nil
		}
	}
	return nil, internal.ErrRequestNotFound
}

func (r *RequestRepository) Delete(id int64) error {
	return r.db.Delete(&request.Request{}, id).Error
}
