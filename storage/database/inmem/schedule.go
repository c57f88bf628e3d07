package inmemdb

import (
	"context"

	"github.com/trezcool/mahadhurio/core/schedule"
)

type scheduleRepository struct {
	db *scheduleTable
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db.schedules}
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, sched schedule.ScheduledSession) (schedule.ScheduledSession, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[sched.ID] = &sched
	return sched, nil
}

func (repo *scheduleRepository) GetScheduleByID(_ context.Context, id string) (schedule.ScheduledSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sched, ok := repo.db.table[id]; ok {
		return *sched, nil
	}
	return schedule.ScheduledSession{}, schedule.ErrNotFound
}
