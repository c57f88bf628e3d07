package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/mahadhurio/core"
	"github.com/trezcool/mahadhurio/core/schedule"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// addSchedule creates a schedule.ScheduledSession
func (cli *commandLine) addSchedule(course, title, lecturerID, groupID, day, start, end, mode, location, link string) error {
	weekday, ok := weekdays[core.CleanString(day, true /* lower */)]
	if !ok {
		return fmt.Errorf("unknown weekday %q", day)
	}

	startTime, err := parseClock(start)
	if err != nil {
		return err
	}
	endTime, err := parseClock(end)
	if err != nil {
		return err
	}

	ns := schedule.NewSchedule{
		CourseCode:   course,
		Title:        title,
		LecturerID:   lecturerID,
		ClassGroupID: groupID,
		Day:          weekday,
		StartTime:    startTime,
		EndTime:      endTime,
		Mode:         mode,
		Location:     location,
		MeetingLink:  link,
	}
	if err = ns.Validate(cli.validate); err != nil {
		return err
	}

	sched, err := cli.schedRepo.CreateSchedule(context.Background(), ns.Session())
	if err != nil {
		return err
	}

	fmt.Printf("scheduled session created: %s\n", sched.ID)
	return nil
}

func parseClock(val string) (time.Time, error) {
	t, err := time.Parse("15:04", core.CleanString(val))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM", val)
	}
	return t, nil
}
