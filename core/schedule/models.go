package schedule

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/mahadhurio/core"
)

var ErrNotFound = errors.New("scheduled session not found")

// Delivery modes
const (
	ModeOnsite  = "onsite"
	ModeVirtual = "virtual"
)

type (
	// ScheduledSession is a course meeting occurrence. Owned by a lecturer;
	// the attendance core reads it, never mutates it.
	ScheduledSession struct {
		ID           string       `json:"id" db:"id"`
		CourseCode   string       `json:"course_code" db:"course_code"`
		Title        string       `json:"title" db:"title"`
		LecturerID   string       `json:"lecturer_id" db:"lecturer_id"`
		ClassGroupID string       `json:"class_group_id" db:"class_group_id"`
		Day          time.Weekday `json:"day" db:"day"`
		StartTime    time.Time    `json:"start_time" db:"start_time"` // UTC
		EndTime      time.Time    `json:"end_time" db:"end_time"`     // UTC
		Mode         string       `json:"mode" db:"mode"`             // onsite | virtual
		Location     string       `json:"location,omitempty" db:"location"`
		MeetingLink  string       `json:"meeting_link,omitempty" db:"meeting_link"`
		CreatedAt    time.Time    `json:"created_at" db:"created_at"` // UTC
	}

	Repository interface {
		CreateSchedule(ctx context.Context, sched ScheduledSession) (ScheduledSession, error)
		GetScheduleByID(ctx context.Context, id string) (ScheduledSession, error)
	}
)

func (s ScheduledSession) IsVirtual() bool { return s.Mode == ModeVirtual }

// NewSchedule defines a scheduled session to be created.
type NewSchedule struct {
	CourseCode   string       `json:"course_code" validate:"required,max=20,alphanum_"`
	Title        string       `json:"title,omitempty" validate:"omitempty,max=200"`
	LecturerID   string       `json:"lecturer_id" validate:"required"`
	ClassGroupID string       `json:"class_group_id" validate:"required"`
	Day          time.Weekday `json:"day" validate:"min=0,max=6"`
	StartTime    time.Time    `json:"start_time" validate:"required"`
	EndTime      time.Time    `json:"end_time" validate:"required,gtfield=StartTime"`
	Mode         string       `json:"mode" validate:"required,oneof=onsite virtual"`
	Location     string       `json:"location,omitempty" validate:"omitempty,max=200"`
	MeetingLink  string       `json:"meeting_link,omitempty" validate:"required_if=Mode virtual,omitempty,url"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.CourseCode = strings.ToUpper(core.CleanString(ns.CourseCode))
	ns.Title = core.CleanString(ns.Title)
	ns.LecturerID = core.CleanString(ns.LecturerID)
	ns.ClassGroupID = core.CleanString(ns.ClassGroupID)
	ns.Mode = core.CleanString(ns.Mode, true /* lower */)
	ns.Location = core.CleanString(ns.Location)
	ns.MeetingLink = core.CleanString(ns.MeetingLink)
	return validate.Struct(ns)
}

// Session materializes the definition with a fresh ID.
func (ns NewSchedule) Session() ScheduledSession {
	return ScheduledSession{
		ID:           uuid.NewString(),
		CourseCode:   ns.CourseCode,
		Title:        ns.Title,
		LecturerID:   ns.LecturerID,
		ClassGroupID: ns.ClassGroupID,
		Day:          ns.Day,
		StartTime:    ns.StartTime,
		EndTime:      ns.EndTime,
		Mode:         ns.Mode,
		Location:     ns.Location,
		MeetingLink:  ns.MeetingLink,
		CreatedAt:    time.Now().UTC(),
	}
}

// SlotOn projects the scheduled start/end clock times onto a calendar day.
func (s ScheduledSession) SlotOn(day time.Time) (start, end time.Time) {
	y, m, d := day.UTC().Date()
	start = time.Date(y, m, d, s.StartTime.Hour(), s.StartTime.Minute(), 0, 0, time.UTC)
	end = time.Date(y, m, d, s.EndTime.Hour(), s.EndTime.Minute(), 0, 0, time.UTC)
	return start, end
}
