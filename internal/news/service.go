package news

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/core/events"
	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/user"
)

// Repository defines the data access methods for news posts
type Repository interface {
	Create(p *Post) error
	GetByID(id int64) (*Post, error)
	List(limit int) ([]*Post, error)
	Update(p *Post) error
}

// Broadcaster pushes a post into store news channels.
type Broadcaster interface {
	NotifyStoresButtons(text string, buttons [][]notify.Button)
}

// Service publishes announcements and tracks acknowledgements.
type Service struct {
	repo        Repository
	broadcaster Broadcaster
	eventBus    *events.EventBus
	logger      *slog.Logger
}

func NewService(repo Repository, broadcaster Broadcaster, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{repo: repo, broadcaster: broadcaster, eventBus: eventBus, logger: logger}
}

// Publish stores a post and broadcasts it with an acknowledgement button.
func (s *Service) Publish(actor *user.User, dto PublishDTO) (*Post, error) {
	if !actor.IsManager() {
		return nil, internal.ErrForbiddenRole
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	post := &Post{
		Title:   dto.Title,
		Text:    dto.Text,
		Author:  actor.Name,
		StoreID: actor.StoreID,
		ReadBy:  []string{},
	}
	if err := s.repo.Create(post); err != nil {
		s.logger.Error("failed to create news post", "author", actor.Name, "error", err)
		return nil, err
	}

	text := post.Text
	if post.Title != "" {
		text = fmt.Sprintf("<b>%s</b>\n\n%s", post.Title, post.Text)
	}
	s.broadcaster.NotifyStoresButtons(text, [][]notify.Button{{
		{Label: "👁 Прочитано", Action: fmt.Sprintf("read_news_%d", post.ID)},
	}})

	s.eventBus.PublishSync(context.Background(), events.NewWorkflowEvent(
		events.EventTypeNewsPublished, actor.Name,
		fmt.Sprintf("published news post #%d", post.ID), actor.StoreID))

	s.logger.Info("news published", "post_id", post.ID, "author", actor.Name)
	return post, nil
}

// MarkRead records that a reader acknowledged the post. Repeat presses are
// no-ops.
func (s *Service) MarkRead(postID int64, readerName string) error {
	post, err := s.repo.GetByID(postID)
	if err != nil {
		return internal.ErrNewsNotFound
	}
	if !post.MarkRead(readerName) {
		return nil
	}
	if err := s.repo.Update(post); err != nil {
		s.logger.Error("failed to record read", "post_id", postID, "reader", readerName, "error", err)
		return err
	}
	s.logger.Info("news read", "post_id", postID, "reader", readerName)
	return nil
}

// List returns recent posts, newest first.
func (s *Service) List() ([]*Post, error) {
	return s.repo.List(50)
}
