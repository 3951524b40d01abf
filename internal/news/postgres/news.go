package postgres

import (
	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/news"
)

// NewsRepository implements news.Repository using GORM
type NewsRepository struct {
	db *gorm.DB
}

func NewNewsRepository(db *gorm.DB) news.Repository {
	return &NewsRepository{db: db}
}

func (r *NewsRepository) Create(p *news.Post) error {
	return r.db.Create(p).Error
}

func (r *NewsRepository) GetByID(id int64) (*news.Post, error) {
	var p news.Post
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrNewsNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *NewsRepository) List(limit int) ([]*news.Post, error) {
	var posts []*news.Post
	err := r.db.Order("created_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *NewsRepository) Update(p *news.Post) error {
	return r.db.Save(p).Error
}
