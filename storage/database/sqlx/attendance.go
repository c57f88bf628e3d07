package sqlxrepos

import (
	"context"
	"database/sql"
	"net/mail"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mahadhurio/core/attendance"
	"github.com/trezcool/mahadhurio/core/geofence"
)

const pqUniqueViolation = "23505"

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// dbRecord is the flat row shape of attendance_record.
type dbRecord struct {
	ID           string    `db:"id"`
	ScheduleID   string    `db:"schedule_id"`
	LecturerID   string    `db:"lecturer_id"`
	ClassGroupID string    `db:"class_group_id"`
	CapturedAt   time.Time `db:"captured_at"`
	CaptureDay   time.Time `db:"capture_day"`
	Method       string    `db:"method"`

	GeoVerified       sql.NullBool    `db:"geo_verified"`
	GeoDistanceMeters sql.NullFloat64 `db:"geo_distance_meters"`

	VsTimeWindowVerified  sql.NullBool   `db:"vs_time_window_verified"`
	VsMeetingLinkVerified sql.NullBool   `db:"vs_meeting_link_verified"`
	VsDurationMet         sql.NullBool   `db:"vs_duration_met"`
	VsDeviceFingerprint   sql.NullString `db:"vs_device_fingerprint"`
	VsSessionStartedAt    sql.NullTime   `db:"vs_session_started_at"`
	VsSessionEndedAt      sql.NullTime   `db:"vs_session_ended_at"`

	ClassRepStatus    string       `db:"class_rep_status"`
	ClassRepComment   string       `db:"class_rep_comment"`
	ClassRepDecidedBy string       `db:"class_rep_decided_by"`
	ClassRepDecidedAt sql.NullTime `db:"class_rep_decided_at"`

	SupervisorStatus    string       `db:"supervisor_status"`
	SupervisorComment   string       `db:"supervisor_comment"`
	SupervisorDecidedBy string       `db:"supervisor_decided_by"`
	SupervisorDecidedAt sql.NullTime `db:"supervisor_decided_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r dbRecord) toRecord() attendance.Record {
	rec := attendance.Record{
		ID:           r.ID,
		ScheduleID:   r.ScheduleID,
		LecturerID:   r.LecturerID,
		ClassGroupID: r.ClassGroupID,
		CapturedAt:   r.CapturedAt.UTC(),
		CaptureDay:   r.CaptureDay.UTC(),
		Method:       r.Method,
		ClassRep: attendance.Verification{
			Status:    r.ClassRepStatus,
			Comment:   r.ClassRepComment,
			DecidedBy: r.ClassRepDecidedBy,
			DecidedAt: nullTimePtr(r.ClassRepDecidedAt),
		},
		Supervisor: attendance.Verification{
			Status:    r.SupervisorStatus,
			Comment:   r.SupervisorComment,
			DecidedBy: r.SupervisorDecidedBy,
			DecidedAt: nullTimePtr(r.SupervisorDecidedAt),
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.GeoVerified.Valid {
		rec.Geofence = &geofence.Result{
			Verified:       r.GeoVerified.Bool,
			DistanceMeters: r.GeoDistanceMeters.Float64,
		}
	}
	if r.Method == attendance.MethodVirtual {
		rec.Virtual = &attendance.VirtualOutcome{
			TimeWindowVerified:  r.VsTimeWindowVerified.Bool,
			MeetingLinkVerified: r.VsMeetingLinkVerified.Bool,
			DurationMet:         r.VsDurationMet.Bool,
			DeviceFingerprint:   r.VsDeviceFingerprint.String,
			SessionStartedAt:    nullTimePtr(r.VsSessionStartedAt),
			SessionEndedAt:      nullTimePtr(r.VsSessionEndedAt),
		}
	}
	return rec
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

const recordColumns = `
	id, schedule_id, lecturer_id, class_group_id, captured_at, capture_day, method,
	geo_verified, geo_distance_meters,
	vs_time_window_verified, vs_meeting_link_verified, vs_duration_met,
	vs_device_fingerprint, vs_session_started_at, vs_session_ended_at,
	class_rep_status, class_rep_comment, class_rep_decided_by, class_rep_decided_at,
	supervisor_status, supervisor_comment, supervisor_decided_by, supervisor_decided_at,
	created_at, updated_at`

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	var geoVerified sql.NullBool
	var geoDistance sql.NullFloat64
	if rec.Geofence != nil {
		geoVerified = sql.NullBool{Bool: rec.Geofence.Verified, Valid: true}
		geoDistance = sql.NullFloat64{Float64: rec.Geofence.DistanceMeters, Valid: true}
	}

	var vsWindow, vsLink, vsDuration sql.NullBool
	var vsFingerprint sql.NullString
	var vsStarted, vsEnded sql.NullTime
	if rec.Virtual != nil {
		vsWindow = sql.NullBool{Bool: rec.Virtual.TimeWindowVerified, Valid: true}
		vsLink = sql.NullBool{Bool: rec.Virtual.MeetingLinkVerified, Valid: true}
		vsDuration = sql.NullBool{Bool: rec.Virtual.DurationMet, Valid: true}
		vsFingerprint = sql.NullString{String: rec.Virtual.DeviceFingerprint, Valid: true}
		if rec.Virtual.SessionStartedAt != nil {
			vsStarted = sql.NullTime{Time: *rec.Virtual.SessionStartedAt, Valid: true}
		}
		if rec.Virtual.SessionEndedAt != nil {
			vsEnded = sql.NullTime{Time: *rec.Virtual.SessionEndedAt, Valid: true}
		}
	}

	// the unique index on (lecturer_id, schedule_id, capture_day) makes the
	// insert-if-absent atomic; no check-then-write race
	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO attendance_record (
			id, schedule_id, lecturer_id, class_group_id, captured_at, capture_day, method,
			geo_verified, geo_distance_meters,
			vs_time_window_verified, vs_meeting_link_verified, vs_duration_met,
			vs_device_fingerprint, vs_session_started_at, vs_session_ended_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (lecturer_id, schedule_id, capture_day) DO NOTHING`,
		rec.ID, rec.ScheduleID, rec.LecturerID, rec.ClassGroupID, rec.CapturedAt, rec.CaptureDay, rec.Method,
		geoVerified, geoDistance,
		vsWindow, vsLink, vsDuration, vsFingerprint, vsStarted, vsEnded,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	if n, err := res.RowsAffected(); err != nil {
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	} else if n == 0 {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	return repo.GetRecordByID(ctx, rec.ID)
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	var row dbRecord
	err := repo.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM attendance_record WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "getting attendance record")
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) GetRecordForSessionDay(ctx context.Context, lecturerID, scheduleID string, day time.Time) (attendance.Record, error) {
	var row dbRecord
	err := repo.db.GetContext(ctx, &row, `
		SELECT `+recordColumns+` FROM attendance_record
		WHERE lecturer_id = $1 AND schedule_id = $2 AND capture_day = $3`,
		lecturerID, scheduleID, day,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "getting attendance record for session day")
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) SetClassRepVerification(ctx context.Context, recordID string, v attendance.Verification) (attendance.Record, error) {
	return repo.setVerification(ctx, recordID, "class_rep", v)
}

func (repo *attendanceRepository) SetSupervisorVerification(ctx context.Context, recordID string, v attendance.Verification) (attendance.Record, error) {
	return repo.setVerification(ctx, recordID, "supervisor", v)
}

// setVerification decides one channel iff it is still pending; the WHERE
// clause is the one-shot guard, so concurrent deciders cannot both win.
func (repo *attendanceRepository) setVerification(ctx context.Context, recordID, channel string, v attendance.Verification) (attendance.Record, error) {
	var row dbRecord
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE attendance_record
		SET `+channel+`_status = $2,
		    `+channel+`_comment = $3,
		    `+channel+`_decided_by = $4,
		    `+channel+`_decided_at = $5,
		    updated_at = now()
		WHERE id = $1 AND `+channel+`_status = 'pending'
		RETURNING `+recordColumns,
		recordID, v.Status, v.Comment, v.DecidedBy, v.DecidedAt,
	).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, repo.recordConflict(ctx, recordID, attendance.ErrAlreadyDecided)
		}
		return attendance.Record{}, errors.Wrap(err, "updating "+channel+" verification")
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) EndVirtualSession(ctx context.Context, recordID string, endedAt time.Time, durationMet bool) (attendance.Record, error) {
	var row dbRecord
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE attendance_record
		SET vs_session_ended_at = $2,
		    vs_duration_met = $3,
		    updated_at = now()
		WHERE id = $1 AND vs_session_started_at IS NOT NULL AND vs_session_ended_at IS NULL
		RETURNING `+recordColumns,
		recordID, endedAt, durationMet,
	).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, repo.recordConflict(ctx, recordID, attendance.ErrSessionEnded)
		}
		return attendance.Record{}, errors.Wrap(err, "ending virtual session")
	}
	return row.toRecord(), nil
}

// recordConflict tells a guarded-update miss apart from a missing record.
func (repo *attendanceRepository) recordConflict(ctx context.Context, recordID string, conflict error) error {
	if _, err := repo.GetRecordByID(ctx, recordID); err != nil {
		return err
	}
	return conflict
}

type dbRequest struct {
	ID          string       `db:"id"`
	RecordID    string       `db:"record_id"`
	RequesterID string       `db:"requester_id"`
	Status      string       `db:"status"`
	Evidence    string       `db:"evidence"`
	ReviewNotes string       `db:"review_notes"`
	ReviewedBy  string       `db:"reviewed_by"`
	CreatedAt   time.Time    `db:"created_at"`
	ReviewedAt  sql.NullTime `db:"reviewed_at"`
	EscalatedAt sql.NullTime `db:"escalated_at"`
}

func (r dbRequest) toRequest() attendance.Request {
	return attendance.Request{
		ID:          r.ID,
		RecordID:    r.RecordID,
		RequesterID: r.RequesterID,
		Status:      r.Status,
		Evidence:    r.Evidence,
		ReviewNotes: r.ReviewNotes,
		ReviewedBy:  r.ReviewedBy,
		CreatedAt:   r.CreatedAt.UTC(),
		ReviewedAt:  nullTimePtr(r.ReviewedAt),
		EscalatedAt: nullTimePtr(r.EscalatedAt),
	}
}

const requestColumns = `
	id, record_id, requester_id, status, evidence, review_notes, reviewed_by,
	created_at, reviewed_at, escalated_at`

func (repo *attendanceRepository) CreateRequest(ctx context.Context, req attendance.Request) (attendance.Request, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO verification_request (id, record_id, requester_id, status, evidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.RecordID, req.RequesterID, req.Status, req.Evidence, req.CreatedAt,
	)
	if err != nil {
		// the partial unique index on open requests rejects a second one
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return attendance.Request{}, attendance.ErrOpenRequestExists
		}
		return attendance.Request{}, errors.Wrap(err, "inserting verification request")
	}
	return req, nil
}

func (repo *attendanceRepository) GetRequestByID(ctx context.Context, id string) (attendance.Request, error) {
	var row dbRequest
	err := repo.db.GetContext(ctx, &row, `SELECT `+requestColumns+` FROM verification_request WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Request{}, attendance.ErrRequestNotFound
		}
		return attendance.Request{}, errors.Wrap(err, "getting verification request")
	}
	return row.toRequest(), nil
}

func (repo *attendanceRepository) ResolveRequest(ctx context.Context, requestID, status, notes, reviewedBy string, reviewedAt time.Time, escalatedAt *time.Time) (attendance.Request, error) {
	var escalated sql.NullTime
	if escalatedAt != nil {
		escalated = sql.NullTime{Time: *escalatedAt, Valid: true}
	}

	var row dbRequest
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE verification_request
		SET status = $2, review_notes = $3, reviewed_by = $4, reviewed_at = $5, escalated_at = $6
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		requestID, status, notes, reviewedBy, reviewedAt, escalated,
	).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, gerr := repo.GetRequestByID(ctx, requestID); gerr != nil {
				return attendance.Request{}, gerr
			}
			return attendance.Request{}, attendance.ErrRequestClosed
		}
		return attendance.Request{}, errors.Wrap(err, "resolving verification request")
	}
	return row.toRequest(), nil
}

type staffDirectory struct {
	db *sqlx.DB
}

var _ attendance.Directory = (*staffDirectory)(nil)

func NewStaffDirectory(db *sqlx.DB) attendance.Directory {
	return &staffDirectory{db: db}
}

func (dir *staffDirectory) GetLecturerAddress(ctx context.Context, lecturerID string) (mail.Address, error) {
	var row struct {
		Name  string `db:"name"`
		Email string `db:"email"`
	}
	err := dir.db.GetContext(ctx, &row, `SELECT name, email FROM staff_directory WHERE lecturer_id = $1`, lecturerID)
	if err != nil {
		return mail.Address{}, errors.Wrap(err, "getting lecturer address")
	}
	return mail.Address{Name: row.Name, Address: row.Email}, nil
}
