// Package inmemdb provides mutex-guarded in-memory repositories with the
// same conditional-write guarantees as the SQL implementations. Used by
// tests and local development.
package inmemdb

import (
	"net/mail"
	"sync"

	"github.com/trezcool/mahadhurio/core/attendance"
	"github.com/trezcool/mahadhurio/core/audit"
	"github.com/trezcool/mahadhurio/core/schedule"
)

type (
	DB struct {
		records   *recordTable
		requests  *requestTable
		schedules *scheduleTable
		audit     *auditTable
		staff     *staffTable
	}

	recordTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
		byKey map[string]string // (lecturer, schedule, day) -> record id
	}

	requestTable struct {
		sync.RWMutex
		table map[string]*attendance.Request
	}

	scheduleTable struct {
		sync.RWMutex
		table map[string]*schedule.ScheduledSession
	}

	auditTable struct {
		sync.RWMutex
		entries []audit.Entry
	}

	staffTable struct {
		sync.RWMutex
		table map[string]mail.Address
	}
)

func Open() (*DB, error) {
	db := &DB{
		records: &recordTable{
			table: make(map[string]*attendance.Record),
			byKey: make(map[string]string),
		},
		requests:  &requestTable{table: make(map[string]*attendance.Request)},
		schedules: &scheduleTable{table: make(map[string]*schedule.ScheduledSession)},
		audit:     &auditTable{},
		staff:     &staffTable{table: make(map[string]mail.Address)},
	}
	return db, nil
}

// AddLecturerAddress seeds the staff directory.
func (db *DB) AddLecturerAddress(lecturerID string, addr mail.Address) {
	db.staff.Lock()
	defer db.staff.Unlock()
	db.staff.table[lecturerID] = addr
}
