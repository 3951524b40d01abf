package schedule

import (
	"errors"
	"strings"
	"time"
)

// Start/End sentinel values. A shift row can mark a whole-day status instead
// of working hours; the literal strings are what older databases already
// contain and what the bot prints.
const (
	StatusVacation  = "Відпустка"
	StatusSickLeave = "Лікарняний"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Shift is one (date, employee) schedule cell. Name is the denormalized
// display name schedules are keyed on. At most one row exists per
// (date, name), enforced by delete-before-insert on every write path.
type Shift struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Date      string    `json:"date" gorm:"index:idx_shifts_date_name;not null"`
	Name      string    `json:"name" gorm:"index:idx_shifts_date_name;not null"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	StoreID   *int64    `json:"store_id,omitempty" gorm:"column:store_id"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Shift) TableName() string {
	return "shifts"
}

func (s *Shift) IsVacation() bool {
	return s.Start == StatusVacation
}

func (s *Shift) IsSickLeave() bool {
	return s.Start == StatusSickLeave
}

// IsWorking reports whether the row carries actual working hours rather
// than a whole-day status.
func (s *Shift) IsWorking() bool {
	return !s.IsVacation() && !s.IsSickLeave() && s.Start != ""
}

// Hours returns the shift length in hours, zero for statuses and malformed
// rows. Shifts crossing midnight wrap forward.
func (s *Shift) Hours() float64 {
	if !s.IsWorking() {
		return 0
	}
	start, err := time.Parse(ClockLayout, s.Start)
	if err != nil {
		return 0
	}
	end, err := time.Parse(ClockLayout, s.End)
	if err != nil {
		return 0
	}
	d := end.Sub(start)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d.Hours()
}

// StartHour returns the integer start hour, or -1 for status rows.
func (s *Shift) StartHour() int {
	if !s.IsWorking() {
		return -1
	}
	start, err := time.Parse(ClockLayout, s.Start)
	if err != nil {
		return -1
	}
	return start.Hour()
}

// Task is a dated assignment for one employee.
type Task struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Date        string    `json:"date" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"index;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Start       string    `json:"start"`
	AllDay      bool      `json:"all_day" gorm:"column:all_day;default:false"`
	StoreID     *int64    `json:"store_id,omitempty" gorm:"column:store_id"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Task) TableName() string {
	return "tasks"
}

// StartHour returns the integer task start hour, or -1 for all-day tasks.
func (t *Task) StartHour() int {
	if t.AllDay || t.Start == "" {
		return -1
	}
	start, err := time.Parse(ClockLayout, t.Start)
	if err != nil {
		return -1
	}
	return start.Hour()
}

// ShiftDTO is the write payload for one schedule cell.
type ShiftDTO struct {
	Date  string `json:"date" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (dto ShiftDTO) Validate() error {
	if _, err := time.Parse(DateLayout, dto.Date); err != nil {
		return errors.New("date must be in YYYY-MM-DD format")
	}
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	switch dto.Start {
	case StatusVacation, StatusSickLeave:
		return nil
	}
	if _, err := time.Parse(ClockLayout, dto.Start); err != nil {
		return errors.New("start must be HH:MM or a day status")
	}
	if _, err := time.Parse(ClockLayout, dto.End); err != nil {
		return errors.New("end must be in HH:MM format")
	}
	return nil
}

// TaskDTO is the write payload for a task. Name "all" fans out to the whole
// store roster at commit time.
type TaskDTO struct {
	Date        string `json:"date" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start,omitempty"`
	AllDay      bool   `json:"all_day,omitempty"`
}

func (dto TaskDTO) Validate() error {
	if _, err := time.Parse(DateLayout, dto.Date); err != nil {
		return errors.New("date must be in YYYY-MM-DD format")
	}
	if strings.TrimSpace(dto.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(dto.Title) == "" {
		return errors.New("title is required")
	}
	if !dto.AllDay && dto.Start != "" {
		if _, err := time.Parse(ClockLayout, dto.Start); err != nil {
			return errors.New("start must be in HH:MM format")
		}
	}
	return nil
}
