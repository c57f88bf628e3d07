package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mahadhurio/core/schedule"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sqlx.DB
	schedRepo schedule.Repository
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run database migrations (up, down, status, ...)")
	fmt.Println("  addschedule -course CODE -title TITLE -lecturer ID -group ID -day DAY -start HH:MM -end HH:MM [-mode onsite|virtual] [-location LOC] [-link URL] - create a scheduled session")
	fmt.Println("  addstaff -lecturer ID -name NAME -email EMAIL - register a lecturer's contact address")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addScheduleCmd := flag.NewFlagSet("addschedule", flag.ExitOnError)
	addSchedCourse := addScheduleCmd.String("course", "", "The course code. eg. CS101")
	addSchedTitle := addScheduleCmd.String("title", "", "The course title.")
	addSchedLecturer := addScheduleCmd.String("lecturer", "", "The owning lecturer's ID.")
	addSchedGroup := addScheduleCmd.String("group", "", "The class group ID.")
	addSchedDay := addScheduleCmd.String("day", "", "The weekday the session runs. eg. monday")
	addSchedStart := addScheduleCmd.String("start", "", "The session start time (HH:MM, 24h, UTC).")
	addSchedEnd := addScheduleCmd.String("end", "", "The session end time (HH:MM, 24h, UTC).")
	addSchedMode := addScheduleCmd.String("mode", schedule.ModeOnsite, "The delivery mode: onsite or virtual.")
	addSchedLocation := addScheduleCmd.String("location", "", "The room/building for onsite sessions.")
	addSchedLink := addScheduleCmd.String("link", "", "The meeting link for virtual sessions.")

	addStaffCmd := flag.NewFlagSet("addstaff", flag.ExitOnError)
	addStaffLecturer := addStaffCmd.String("lecturer", "", "The lecturer's ID.")
	addStaffName := addStaffCmd.String("name", "", "The lecturer's name.")
	addStaffEmail := addStaffCmd.String("email", "", "The lecturer's email address.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addschedule":
		if err := addScheduleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSchedCourse == "" || *addSchedLecturer == "" || *addSchedGroup == "" ||
			*addSchedDay == "" || *addSchedStart == "" || *addSchedEnd == "" {
			addScheduleCmd.Usage()
			return errHelp
		}
		return cli.addSchedule(
			*addSchedCourse, *addSchedTitle, *addSchedLecturer, *addSchedGroup,
			*addSchedDay, *addSchedStart, *addSchedEnd,
			*addSchedMode, *addSchedLocation, *addSchedLink,
		)
	case "addstaff":
		if err := addStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStaffLecturer == "" || *addStaffEmail == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		return cli.addStaff(*addStaffLecturer, *addStaffName, *addStaffEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}
