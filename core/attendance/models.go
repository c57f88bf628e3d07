package attendance

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahadhurio/core"
	"github.com/trezcool/mahadhurio/core/geofence"
)

// Capture methods
const (
	MethodOnsite  = "onsite"
	MethodVirtual = "virtual"
)

// Virtual capture phases
const (
	VirtualActionStart = "start"
	VirtualActionEnd   = "end"
)

// Verification tri-state statuses
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusDisputed = "disputed"
)

// VerificationRequest statuses
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestDisputed = "disputed"
)

type (
	// Actor is the authenticated principal handed to every call by the
	// identity provider. Immutable for the lifetime of a request.
	Actor struct {
		ID           string `json:"id"`
		Role         string `json:"role"`
		ClassGroupID string `json:"class_group_id,omitempty"`
		Name         string `json:"name,omitempty"`
		Email        string `json:"email,omitempty"`
	}

	// Verification is one attestation channel on a Record: not yet decided,
	// affirmed, or disputed. Explicit tri-state so "already decided" is a
	// structural check, not a null check.
	Verification struct {
		Status    string     `json:"status" db:"status"`
		Comment   string     `json:"comment,omitempty" db:"comment"`
		DecidedBy string     `json:"decided_by,omitempty" db:"decided_by"`
		DecidedAt *time.Time `json:"decided_at,omitempty" db:"decided_at"` // UTC
	}

	// VirtualOutcome is the virtual-session verification state of a Record.
	VirtualOutcome struct {
		TimeWindowVerified  bool       `json:"time_window_verified" db:"time_window_verified"`
		MeetingLinkVerified bool       `json:"meeting_link_verified" db:"meeting_link_verified"`
		DurationMet         bool       `json:"duration_met" db:"duration_met"`
		DeviceFingerprint   string     `json:"device_fingerprint" db:"device_fingerprint"`
		SessionStartedAt    *time.Time `json:"session_started_at,omitempty" db:"session_started_at"` // UTC
		SessionEndedAt      *time.Time `json:"session_ended_at,omitempty" db:"session_ended_at"`     // UTC
	}

	// Record is one lecturer's attendance for one scheduled session on one
	// calendar day. At most one exists per (lecturer, schedule, day).
	Record struct {
		ID           string    `json:"id" db:"id"`
		ScheduleID   string    `json:"schedule_id" db:"schedule_id"`
		LecturerID   string    `json:"lecturer_id" db:"lecturer_id"`
		ClassGroupID string    `json:"class_group_id" db:"class_group_id"`
		CapturedAt   time.Time `json:"captured_at" db:"captured_at"` // UTC
		CaptureDay   time.Time `json:"capture_day" db:"capture_day"` // UTC date
		Method       string    `json:"method" db:"method"`           // onsite | virtual

		Geofence *geofence.Result `json:"geofence,omitempty"`
		Virtual  *VirtualOutcome  `json:"virtual,omitempty"`

		ClassRep   Verification `json:"class_rep_verification"`
		Supervisor Verification `json:"supervisor_verification"`

		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// Request is an escalation artifact raised against one Record.
	// At most one open Request exists per Record.
	Request struct {
		ID          string     `json:"id" db:"id"`
		RecordID    string     `json:"record_id" db:"record_id"`
		RequesterID string     `json:"requester_id" db:"requester_id"`
		Status      string     `json:"status" db:"status"`
		Evidence    string     `json:"evidence" db:"evidence"`
		ReviewNotes string     `json:"review_notes,omitempty" db:"review_notes"`
		ReviewedBy  string     `json:"reviewed_by,omitempty" db:"reviewed_by"`
		CreatedAt   time.Time  `json:"created_at" db:"created_at"`               // UTC
		ReviewedAt  *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`   // UTC
		EscalatedAt *time.Time `json:"escalated_at,omitempty" db:"escalated_at"` // UTC
	}

	Repository interface {
		// CreateRecord inserts iff no record exists for the same
		// (lecturer, schedule, capture day); returns ErrDuplicateRecord otherwise.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		GetRecordForSessionDay(ctx context.Context, lecturerID, scheduleID string, day time.Time) (Record, error)
		// SetClassRepVerification decides the class-rep channel iff it is
		// still pending; returns ErrAlreadyDecided otherwise.
		SetClassRepVerification(ctx context.Context, recordID string, v Verification) (Record, error)
		SetSupervisorVerification(ctx context.Context, recordID string, v Verification) (Record, error)
		// EndVirtualSession stamps the session end iff not already ended;
		// returns ErrSessionEnded otherwise.
		EndVirtualSession(ctx context.Context, recordID string, endedAt time.Time, durationMet bool) (Record, error)

		// CreateRequest inserts iff the record has no open request;
		// returns ErrOpenRequestExists otherwise.
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequestByID(ctx context.Context, id string) (Request, error)
		// ResolveRequest moves a request out of pending iff it is still
		// pending; returns ErrRequestClosed otherwise.
		ResolveRequest(ctx context.Context, requestID, status, notes, reviewedBy string, reviewedAt time.Time, escalatedAt *time.Time) (Request, error)
	}

	// Directory resolves a lecturer id to a deliverable address for
	// dispute/escalation notices. Lookup only; user management is external.
	Directory interface {
		GetLecturerAddress(ctx context.Context, lecturerID string) (mail.Address, error)
	}
)

func (v Verification) Pending() bool { return v.Status == "" || v.Status == StatusPending }
func (v Verification) Decided() bool { return !v.Pending() }

func (r Request) Open() bool { return r.Status == RequestPending }

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewCapture contains information needed to capture attendance.
// UserAgent and IPAddress are request metadata set by the transport layer.
type NewCapture struct {
	ScheduleID    string          `json:"schedule_id" validate:"required"`
	Method        string          `json:"method" validate:"required,oneof=onsite virtual"`
	Coordinates   *geofence.Point `json:"coordinates,omitempty" validate:"required_if=Method onsite"`
	VirtualAction string          `json:"virtual_action,omitempty" validate:"required_if=Method virtual,omitempty,oneof=start end"`

	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

func (nc *NewCapture) Validate(validate *validator.Validate) error {
	nc.ScheduleID = core.CleanString(nc.ScheduleID)
	nc.Method = core.CleanString(nc.Method, true /* lower */)
	nc.VirtualAction = core.CleanString(nc.VirtualAction, true /* lower */)
	return validate.Struct(nc)
}

// NewDecision defines one attestation on a record.
type NewDecision struct {
	Decision string `json:"decision" validate:"required,oneof=verified disputed"`
	Comment  string `json:"comment,omitempty" validate:"omitempty,max=500"`
}

func (nd *NewDecision) Validate(validate *validator.Validate) error {
	nd.Decision = core.CleanString(nd.Decision, true /* lower */)
	nd.Comment = core.CleanString(nd.Comment)
	return validate.Struct(nd)
}

func (nd NewDecision) Disputed() bool { return nd.Decision == StatusDisputed }

// NewEscalation opens a verification request against a record.
type NewEscalation struct {
	Evidence string `json:"evidence" validate:"required,max=2000"`
}

func (ne *NewEscalation) Validate(validate *validator.Validate) error {
	ne.Evidence = core.CleanString(ne.Evidence)
	return validate.Struct(ne)
}

// ResolveEscalation settles a pending verification request.
// Escalate is only meaningful with a dispute decision.
type ResolveEscalation struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject dispute"`
	Notes    string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Escalate bool   `json:"escalate,omitempty"`
}

func (re *ResolveEscalation) Validate(validate *validator.Validate) error {
	re.Decision = core.CleanString(re.Decision, true /* lower */)
	re.Notes = core.CleanString(re.Notes)
	return validate.Struct(re)
}
