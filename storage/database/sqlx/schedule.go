package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahadhurio/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

type dbSchedule struct {
	ID           string    `db:"id"`
	CourseCode   string    `db:"course_code"`
	Title        string    `db:"title"`
	LecturerID   string    `db:"lecturer_id"`
	ClassGroupID string    `db:"class_group_id"`
	Day          int       `db:"day"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	Mode         string    `db:"mode"`
	Location     string    `db:"location"`
	MeetingLink  string    `db:"meeting_link"`
	CreatedAt    time.Time `db:"created_at"`
}

func (s dbSchedule) toSchedule() schedule.ScheduledSession {
	return schedule.ScheduledSession{
		ID:           s.ID,
		CourseCode:   s.CourseCode,
		Title:        s.Title,
		LecturerID:   s.LecturerID,
		ClassGroupID: s.ClassGroupID,
		Day:          time.Weekday(s.Day),
		StartTime:    s.StartTime.UTC(),
		EndTime:      s.EndTime.UTC(),
		Mode:         s.Mode,
		Location:     s.Location,
		MeetingLink:  s.MeetingLink,
		CreatedAt:    s.CreatedAt.UTC(),
	}
}

const scheduleColumns = `
	id, course_code, title, lecturer_id, class_group_id, day,
	start_time, end_time, mode, location, meeting_link, created_at`

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, sched schedule.ScheduledSession) (schedule.ScheduledSession, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO scheduled_session (
			id, course_code, title, lecturer_id, class_group_id, day,
			start_time, end_time, mode, location, meeting_link, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sched.ID, sched.CourseCode, sched.Title, sched.LecturerID, sched.ClassGroupID, int(sched.Day),
		sched.StartTime, sched.EndTime, sched.Mode, sched.Location, sched.MeetingLink, sched.CreatedAt,
	)
	if err != nil {
		return schedule.ScheduledSession{}, errors.Wrap(err, "inserting scheduled session")
	}
	return sched, nil
}

func (repo *scheduleRepository) GetScheduleByID(ctx context.Context, id string) (schedule.ScheduledSession, error) {
	var row dbSchedule
	err := repo.db.GetContext(ctx, &row, `SELECT `+scheduleColumns+` FROM scheduled_session WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.ScheduledSession{}, schedule.ErrNotFound
		}
		return schedule.ScheduledSession{}, errors.Wrap(err, "getting scheduled session")
	}
	return row.toSchedule(), nil
}
