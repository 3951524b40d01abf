package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRequestSubmitted = "request.submitted"
	EventTypeRequestApproved  = "request.approved"
	EventTypeRequestRejected  = "request.rejected"
	EventTypeTransferApproved = "transfer.approved"
	EventTypeUserRegistered   = "user.registered"
	EventTypeUserApproved     = "user.approved"
	EventTypeUserBlocked      = "user.blocked"
	EventTypeShiftReplaced    = "shift.replaced"
	EventTypeShiftRemoved     = "shift.removed"
	EventTypeTaskAssigned     = "task.assigned"
	EventTypeTaskRemoved      = "task.removed"
	EventTypeNewsPublished    = "news.published"
)

// WorkflowEvent is the single event shape for schedule and approval
// workflows. Actor is the username that performed the action, Action is a
// human-readable summary stored verbatim in the audit log.
type WorkflowEvent struct {
	BaseEvent
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	StoreID *int64 `json:"store_id,omitempty"`
}

func NewWorkflowEvent(eventType, actor, action string, storeID *int64) *WorkflowEvent {
	data := map[string]interface{}{
		"actor":  actor,
		"action": action,
	}
	if storeID != nil {
		data["store_id"] = *storeID
	}
	return &WorkflowEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
		Actor:   actor,
		Action:  action,
		StoreID: storeID,
	}
}
