package inmemdb

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/trezcool/mahadhurio/core/attendance"
)

type attendanceRepository struct {
	records  *recordTable
	requests *requestTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{records: db.records, requests: db.requests}
}

func recordKey(lecturerID, scheduleID string, day time.Time) string {
	return strings.Join([]string{lecturerID, scheduleID, day.UTC().Format("2006-01-02")}, "|")
}

func (repo *attendanceRepository) CreateRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.records.Lock()
	defer repo.records.Unlock()

	key := recordKey(rec.LecturerID, rec.ScheduleID, rec.CaptureDay)
	if _, exists := repo.records.byKey[key]; exists {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	repo.records.table[rec.ID] = &rec
	repo.records.byKey[key] = rec.ID
	return rec, nil
}

func (repo *attendanceRepository) GetRecordByID(_ context.Context, id string) (attendance.Record, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	if rec, ok := repo.records.table[id]; ok {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (repo *attendanceRepository) GetRecordForSessionDay(_ context.Context, lecturerID, scheduleID string, day time.Time) (attendance.Record, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	if id, ok := repo.records.byKey[recordKey(lecturerID, scheduleID, day)]; ok {
		return *repo.records.table[id], nil
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (repo *attendanceRepository) SetClassRepVerification(_ context.Context, recordID string, v attendance.Verification) (attendance.Record, error) {
	repo.records.Lock()
	defer repo.records.Unlock()

	rec, ok := repo.records.table[recordID]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	if rec.ClassRep.Decided() {
		return attendance.Record{}, attendance.ErrAlreadyDecided
	}
	rec.ClassRep = v
	rec.UpdatedAt = time.Now().UTC()
	return *rec, nil
}

func (repo *attendanceRepository) SetSupervisorVerification(_ context.Context, recordID string, v attendance.Verification) (attendance.Record, error) {
	repo.records.Lock()
	defer repo.records.Unlock()

	rec, ok := repo.records.table[recordID]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	if rec.Supervisor.Decided() {
		return attendance.Record{}, attendance.ErrAlreadyDecided
	}
	rec.Supervisor = v
	rec.UpdatedAt = time.Now().UTC()
	return *rec, nil
}

func (repo *attendanceRepository) EndVirtualSession(_ context.Context, recordID string, endedAt time.Time, durationMet bool) (attendance.Record, error) {
	repo.records.Lock()
	defer repo.records.Unlock()

	rec, ok := repo.records.table[recordID]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	if rec.Virtual == nil || rec.Virtual.SessionEndedAt != nil {
		return attendance.Record{}, attendance.ErrSessionEnded
	}
	rec.Virtual.SessionEndedAt = &endedAt
	rec.Virtual.DurationMet = durationMet
	rec.UpdatedAt = time.Now().UTC()
	return *rec, nil
}

func (repo *attendanceRepository) CreateRequest(_ context.Context, req attendance.Request) (attendance.Request, error) {
	repo.requests.Lock()
	defer repo.requests.Unlock()

	for _, existing := range repo.requests.table {
		if existing.RecordID == req.RecordID && existing.Open() {
			return attendance.Request{}, attendance.ErrOpenRequestExists
		}
	}
	repo.requests.table[req.ID] = &req
	return req, nil
}

func (repo *attendanceRepository) GetRequestByID(_ context.Context, id string) (attendance.Request, error) {
	repo.requests.RLock()
	defer repo.requests.RUnlock()

	if req, ok := repo.requests.table[id]; ok {
		return *req, nil
	}
	return attendance.Request{}, attendance.ErrRequestNotFound
}

func (repo *attendanceRepository) ResolveRequest(_ context.Context, requestID, status, notes, reviewedBy string, reviewedAt time.Time, escalatedAt *time.Time) (attendance.Request, error) {
	repo.requests.Lock()
	defer repo.requests.Unlock()

	req, ok := repo.requests.table[requestID]
	if !ok {
		return attendance.Request{}, attendance.ErrRequestNotFound
	}
	if !req.Open() {
		return attendance.Request{}, attendance.ErrRequestClosed
	}
	req.Status = status
	req.ReviewNotes = notes
	req.ReviewedBy = reviewedBy
	req.ReviewedAt = &reviewedAt
	req.EscalatedAt = escalatedAt
	return *req, nil
}

var errLecturerNotFound = errors.New("lecturer not found in staff directory")

type staffDirectory struct {
	staff *staffTable
}

var _ attendance.Directory = (*staffDirectory)(nil)

func NewStaffDirectory(db *DB) attendance.Directory {
	return &staffDirectory{staff: db.staff}
}

func (dir *staffDirectory) GetLecturerAddress(_ context.Context, lecturerID string) (mail.Address, error) {
	dir.staff.RLock()
	defer dir.staff.RUnlock()

	if addr, ok := dir.staff.table[lecturerID]; ok {
		return addr, nil
	}
	return mail.Address{}, errLecturerNotFound
}
