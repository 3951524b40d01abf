package postgres

import (
	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/schedule"
)

// ScheduleRepository implements schedule.Repository using GORM
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) schedule.Repository {
	return &ScheduleRepository{db: db}
}

// ReplaceShift deletes any row at the same (date, name) and inserts the new
// one in a single transaction, keeping the one-row-per-cell invariant.
func (r *ScheduleRepository) ReplaceShift(s *schedule.Shift) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ? AND name = ?", s.Date, s.Name).
			Delete(&schedule.Shift{}).Error; err != nil {
			return err
		}
		return tx.Create(s).Error
	})
}

func (r *ScheduleRepository) GetShiftByID(id int64) (*schedule.Shift, error) {
	var s schedule.Shift
	err := r.db.Where("id = ?", id).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrShiftNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepository) DeleteShift(id int64) error {
	return r.db.Delete(&schedule.Shift{}, id).Error
}

func (r *ScheduleRepository) ListShiftsByMonth(month string, storeID *int64) ([]*schedule.Shift, error) {
	var shifts []*schedule.Shift
	q := r.db.Where("date LIKE ?", month+"%").Order("date ASC, name ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Find(&shifts).Error
	return shifts, err
}

func (r *ScheduleRepository) ListShiftsByDate(date string, storeID *int64) ([]*schedule.Shift, error) {
	var shifts []*schedule.Shift
	q := r.db.Where("date = ?", date).Order("start ASC, name ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Find(&shifts).Error
	return shifts, err
}

func (r *ScheduleRepository) ListShiftsForName(name, fromDate string) ([]*schedule.Shift, error) {
	var shifts []*schedule.Shift
	err := r.db.Where("name = ? AND date >= ?", name, fromDate).
		Order("date ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *ScheduleRepository) ListShiftsFrom(date string) ([]*schedule.Shift, error) {
	var shifts []*schedule.Shift
	err := r.db.Where("date >= ?", date).Order("date ASC").Find(&shifts).Error
	return shifts, err
}

func (r *ScheduleRepository) CreateTask(t *schedule.Task) error {
	return r.db.Create(t).Error
}

func (r *ScheduleRepository) GetTaskByID(id int64) (*schedule.Task, error) {
	var t schedule.Task
	err := r.db.Where("id = ?", id).First(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *ScheduleRepository) DeleteTask(id int64) error {
	return r.db.Delete(&schedule.Task{}, id).Error
}

func (r *ScheduleRepository) ListTasksByMonth(month string, storeID *int64) ([]*schedule.Task, error) {
	var tasks []*schedule.Task
	q := r.db.Where("date LIKE ?", month+"%").Order("date ASC, name ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Find(&tasks).Error
	return tasks, err
}

func (r *ScheduleRepository) ListTasksByDate(date string, storeID *int64) ([]*schedule.Task, error) {
	var tasks []*schedule.Task
	q := r.db.Where("date = ?", date).Order("name ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	err := q.Find(&tasks).Error
	return tasks, err
}

func (r *ScheduleRepository) ClearDay(date string, storeID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		sq := tx.Where("date = ?", date)
		tq := tx.Where("date = ?", date)
		if storeID != nil {
			sq = sq.Where("store_id = ?", *storeID)
			tq = tq.Where("store_id = ?", *storeID)
		}
		if err := sq.Delete(&schedule.Shift{}).Error; err != nil {
			return err
		}
		return tq.Delete(&schedule.Task{}).Error
	})
}

func (r *ScheduleRepository) ClearMonth(month string, storeID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		sq := tx.Where("date LIKE ?", month+"%")
		tq := tx.Where("date LIKE ?", month+"%")
		if storeID != nil {
			sq = sq.Where("store_id = ?", *storeID)
			tq = tq.Where("store_id = ?", *storeID)
		}
		if err := sq.Delete(&schedule.Shift{}).Error; err != nil {
			return err
		}
		return tq.Delete(&schedule.Task{}).Error
	})
}

func (r *ScheduleRepository) PurgeUserFuture(name, fromDate string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ? AND date >= ?", name, fromDate).
			Delete(&schedule.Shift{}).Error; err != nil {
			return err
		}
		return tx.Where("name = ? AND date >= ?", name, fromDate).
			Delete(&schedule.Task{}).Error
	})
}
