package main

import (
	"fmt"

	"github.com/trezcool/mahadhurio/core"
)

// addStaff updates or creates a lecturer's contact address in the staff directory.
func (cli *commandLine) addStaff(lecturerID, name, email string) error {
	_, err := cli.db.Exec(`
		INSERT INTO staff_directory (lecturer_id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (lecturer_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		core.CleanString(lecturerID), core.CleanString(name), core.CleanString(email, true /* lower */),
	)
	if err != nil {
		return err
	}

	fmt.Printf("staff address registered for %s\n", lecturerID)
	return nil
}
