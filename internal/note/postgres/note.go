package postgres

import (
	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/note"
)

// NoteRepository implements note.Repository using GORM
type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) note.Repository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Create(n *note.Note) error {
	return r.db.Create(n).Error
}

func (r *NoteRepository) GetByID(id int64) (*note.Note, error) {
	var n note.Note
	err := r.db.Where("id = ?", id).First(&n).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrNoteNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListVisible returns the author's own notes plus public notes of the
// given store.
func (r *NoteRepository) ListVisible(author string, storeID *int64) ([]*note.Note, error) {
	var notes []*note.Note
	q := r.db.Order("created_at DESC")
	if storeID != nil {
		q = q.Where("author = ? OR (public = ? AND store_id = ?)", author, true, *storeID)
	} else {
		q = q.Where("author = ?", author)
	}
	err := q.Find(&notes).Error
	return notes, err
}

func (r *NoteRepository) Delete(id int64) error {
	return r.db.Delete(&note.Note{}, id).Error
}
