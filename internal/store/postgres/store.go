package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/store"
)

// StoreRepository implements store.Repository using GORM, plus the broadcast
// channel and report-time lookups the notify and reminder layers need.
type StoreRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Create(s *store.Store) error {
	return r.db.Create(s).Error
}

func (r *StoreRepository) GetByID(id int64) (*store.Store, error) {
	var s store.Store
	err := r.db.Where("id = ?", id).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrStoreNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepository) GetByCode(code string) (*store.Store, error) {
	var s store.Store
	err := r.db.Where("code = ?", code).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrStoreNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepository) GetByChatID(chatID int64) (*store.Store, error) {
	var s store.Store
	err := r.db.Where("chat_id = ?", chatID).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrStoreNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepository) List() ([]*store.Store, error) {
	var stores []*store.Store
	err := r.db.Order("name ASC").Find(&stores).Error
	return stores, err
}

func (r *StoreRepository) Update(s *store.Store) error {
	s.UpdatedAt = time.Now()
	return r.db.Save(s).Error
}

// StoreIDByCode implements user.StoreDirectory for registration.
func (r *StoreRepository) StoreIDByCode(code string) (int64, error) {
	s, err := r.GetByCode(code)
	if err != nil {
		return 0, err
	}
	return s.ID, nil
}

// NewsChannels implements notify.StoreDirectory: every store with a linked
// chat, targeting its news topic when one is set.
func (r *StoreRepository) NewsChannels() ([]notify.Channel, error) {
	var stores []*store.Store
	if err := r.db.Where("chat_id IS NOT NULL").Find(&stores).Error; err != nil {
		return nil, err
	}

	channels := make([]notify.Channel, 0, len(stores))
	for _, s := range stores {
		channels = append(channels, notify.Channel{ChatID: *s.ChatID, TopicID: s.NewsTopicID})
	}
	return channels, nil
}

// ListByReportTime returns linked stores whose evening report fires at the
// given HH:MM clock.
func (r *StoreRepository) ListByReportTime(clock string) ([]*store.Store, error) {
	var stores []*store.Store
	err := r.db.Where("report_time = ? AND chat_id IS NOT NULL", clock).Find(&stores).Error
	return stores, err
}
