package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of request kinds. The values are persisted and
// also appear in callback payloads, so they never change.
type Kind string

const (
	KindAddShift    Kind = "add_shift"
	KindDeleteShift Kind = "del_shift"
	KindAddTask     Kind = "add_task"
	KindDeleteTask  Kind = "del_task"
	KindTransfer    Kind = "transfer_request"
)

// TaskTargetAll fans an add-task request out to the whole store roster.
const TaskTargetAll = "all"

// Request is a pending schedule mutation awaiting a manager's decision.
// Rows are deleted on resolution; the audit log is the only history.
type Request struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	Kind      Kind            `json:"kind" gorm:"not null"`
	Payload   json.RawMessage `json:"payload" gorm:"type:jsonb;not null"`
	CreatedBy string          `json:"created_by" gorm:"column:created_by;not null"`
	StoreID   *int64          `json:"store_id,omitempty" gorm:"column:store_id"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Request) TableName() string {
	return "requests"
}

// MutationPayload is the free-form payload for schedule mutations. Which
// fields matter depends on the kind: add-shift uses date/name/start/end,
// deletes use the row id, add-task adds title and timing.
type MutationPayload struct {
	ID          int64  `json:"id,omitempty"`
	Date        string `json:"date,omitempty"`
	Name        string `json:"name,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	AllDay      bool   `json:"all_day,omitempty"`
}

func (p MutationPayload) ValidateFor(kind Kind) error {
	switch kind {
	case KindAddShift:
		if p.Date == "" || p.Name == "" || p.Start == "" {
			return errors.New("add-shift needs date, name and start")
		}
	case KindAddTask:
		if p.Date == "" || p.Name == "" || strings.TrimSpace(p.Title) == "" {
			return errors.New("add-task needs date, name and title")
		}
	case KindDeleteShift, KindDeleteTask:
		if p.ID == 0 {
			return errors.New("delete needs the row id")
		}
	default:
		return fmt.Errorf("unknown request kind: %s", kind)
	}
	return nil
}

// TransferPayload is the payload of a store transfer request.
type TransferPayload struct {
	UserID          int64  `json:"user_id"`
	TargetStoreID   int64  `json:"target_store_id"`
	TargetStoreName string `json:"target_store_name"`
}

// Result is the envelope every workflow operation answers with. Pending
// marks a mutation that was recorded as a request instead of applied.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

// Describe renders a human-readable line for manager routing and the web
// request list.
func (r *Request) Describe() string {
	switch r.Kind {
	case KindAddShift:
		var p MutationPayload
		if json.Unmarshal(r.Payload, &p) == nil {
			if p.End != "" {
				return fmt.Sprintf("додати зміну %s %s–%s для %s", p.Date, p.Start, p.End, p.Name)
			}
			return fmt.Sprintf("відмітити %s як %s для %s", p.Date, p.Start, p.Name)
		}
	case KindDeleteShift:
		var p MutationPayload
		if json.Unmarshal(r.Payload, &p) == nil && p.Date != "" {
			return fmt.Sprintf("видалити зміну %s (%s)", p.Date, p.Name)
		}
		return "видалити зміну"
	case KindAddTask:
		var p MutationPayload
		if json.Unmarshal(r.Payload, &p) == nil {
			return fmt.Sprintf("додати задачу «%s» на %s для %s", p.Title, p.Date, p.Name)
		}
	case KindDeleteTask:
		return "видалити задачу"
	case KindTransfer:
		var p TransferPayload
		if json.Unmarshal(r.Payload, &p) == nil {
			return fmt.Sprintf("перевід до магазину %s", p.TargetStoreName)
		}
	}
	return string(r.Kind)
}
