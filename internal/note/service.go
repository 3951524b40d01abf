package note

import (
	"log/slog"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/user"
)

// Repository defines the data access methods for notes
type Repository interface {
	Create(n *Note) error
	GetByID(id int64) (*Note, error)
	ListVisible(author string, storeID *int64) ([]*Note, error)
	Delete(id int64) error
}

// Service handles note access rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(actor *user.User, dto CreateNoteDTO) (*Note, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	n := &Note{Text: dto.Text, Author: actor.Name, StoreID: actor.StoreID, Public: dto.Public}
	if err := s.repo.Create(n); err != nil {
		s.logger.Error("failed to create note", "author", actor.Name, "error", err)
		return nil, err
	}
	s.logger.Info("note created", "note_id", n.ID, "author", actor.Name, "public", n.Public)
	return n, nil
}

// List returns the actor's own notes plus public notes of their store.
func (s *Service) List(actor *user.User) ([]*Note, error) {
	return s.repo.ListVisible(actor.Name, actor.StoreID)
}

// Delete removes a note. Allowed for the author, the store's managers, and
// admins.
func (s *Service) Delete(actor *user.User, noteID int64) error {
	n, err := s.repo.GetByID(noteID)
	if err != nil {
		return internal.ErrNoteNotFound
	}

	canDelete := n.Author == actor.Name ||
		actor.IsAdmin() ||
		(actor.Role == user.RoleStoreManager && actor.SameStore(n.StoreID))
	if !canDelete {
		return internal.ErrForbiddenRole
	}

	if err := s.repo.Delete(noteID); err != nil {
		s.logger.Error("failed to delete note", "note_id", noteID, "error", err)
		return err
	}
	s.logger.Info("note deleted", "note_id", noteID, "actor", actor.Name)
	return nil
}
