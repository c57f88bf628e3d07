package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mahadhurio/core"
	inmemdb "github.com/trezcool/mahadhurio/storage/database/inmem"
)

func setup(t *testing.T) *commandLine {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	return &commandLine{
		db:        &sqlx.DB{},
		schedRepo: inmemdb.NewScheduleRepository(db),
		validate:  validate,
	}
}

type cliTest struct {
	name        string
	args        []string // without program name
	wantErr     error
	wantErrStr  string
	wantInvalid string // json name of the field expected to fail validation
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "schedule", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() expected an error, got nil")
			}
		})
	}
}

func Test_commandLine_addSchedule(t *testing.T) {
	cli := setup(t)

	valid := []string{
		"addschedule",
		"-course", "cs101",
		"-title", "Intro to Computer Science",
		"-lecturer", "lec-1",
		"-group", "grp-1",
		"-day", "Monday",
		"-start", "10:00",
		"-end", "12:00",
	}

	tests := []cliTest{
		{name: "no args", args: []string{"addschedule"}, wantErr: errHelp},
		{
			name:       "unknown weekday",
			args:       []string{"addschedule", "-course", "CS101", "-lecturer", "l", "-group", "g", "-day", "lol", "-start", "10:00", "-end", "12:00"},
			wantErrStr: `unknown weekday "lol"`,
		},
		{
			name:       "bad start time",
			args:       []string{"addschedule", "-course", "CS101", "-lecturer", "l", "-group", "g", "-day", "monday", "-start", "lol", "-end", "12:00"},
			wantErrStr: `invalid time "lol", expected HH:MM`,
		},
		{
			name:        "end before start",
			args:        []string{"addschedule", "-course", "CS101", "-lecturer", "l", "-group", "g", "-day", "monday", "-start", "12:00", "-end", "10:00"},
			wantInvalid: "end_time",
		},
		{
			name:        "virtual without link",
			args:        []string{"addschedule", "-course", "CS101", "-lecturer", "l", "-group", "g", "-day", "monday", "-start", "10:00", "-end", "12:00", "-mode", "virtual"},
			wantInvalid: "meeting_link",
		},
		{
			name:        "course code with punctuation",
			args:        []string{"addschedule", "-course", "CS-101!", "-lecturer", "l", "-group", "g", "-day", "monday", "-start", "10:00", "-end", "12:00"},
			wantInvalid: "course_code",
		},
		{name: "valid onsite schedule", args: valid},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case tt.wantInvalid != "":
				var vErrs validator.ValidationErrors
				if !errors.As(err, &vErrs) {
					t.Fatalf("cli.run() error = %v, want validation errors", err)
				}
				found := false
				for _, vErr := range vErrs {
					if vErr.Field() == tt.wantInvalid {
						found = true
					}
				}
				if !found {
					t.Errorf("cli.run() invalid fields = %v, want %s", vErrs, tt.wantInvalid)
				}
			default:
				if err != nil {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}
