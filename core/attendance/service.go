package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mahadhurio/core"
	"github.com/trezcool/mahadhurio/core/audit"
	"github.com/trezcool/mahadhurio/core/geofence"
	"github.com/trezcool/mahadhurio/core/permission"
	"github.com/trezcool/mahadhurio/core/schedule"
	"github.com/trezcool/mahadhurio/core/virtual"
)

var nowFunc = time.Now // mockable

// attestation channels
const (
	channelClassRep   = "class_rep"
	channelSupervisor = "supervisor"
)

// Service drives an attendance record through capture, verification, dispute
// and escalation. Every transition is permission-checked first and emits
// exactly one audit entry on success. Uniqueness and one-shot guards are
// enforced by the Repository's conditional writes, so the service itself
// holds no locks.
type Service struct {
	repo      Repository
	schedRepo schedule.Repository
	geo       *geofence.Verifier
	virt      *virtual.Verifier
	audit     *audit.Service
	mailSvc   core.EmailService // optional: dispute/escalation notices
	directory Directory         // optional: lecturer address lookup
}

func NewService(
	repo Repository,
	schedRepo schedule.Repository,
	geo *geofence.Verifier,
	virt *virtual.Verifier,
	auditSvc *audit.Service,
	mailSvc core.EmailService,
	directory Directory,
) *Service {
	return &Service{
		repo:      repo,
		schedRepo: schedRepo,
		geo:       geo,
		virt:      virt,
		audit:     auditSvc,
		mailSvc:   mailSvc,
		directory: directory,
	}
}

// Capture records attendance for a scheduled session. Onsite captures must
// pass the geofence; virtual "start" captures must pass the time-window and
// meeting-link checks; a virtual "end" transitions the already-started record
// and stamps the duration outcome instead of creating a new one.
func (svc *Service) Capture(ctx context.Context, actor Actor, nc NewCapture) (Record, error) {
	sched, err := svc.schedRepo.GetScheduleByID(ctx, nc.ScheduleID)
	if err != nil {
		return Record{}, err
	}

	facts := permission.Facts{IsOwner: sched.LecturerID == actor.ID}
	if !permission.Can(actor.Role, permission.CapAttendanceCreate, facts) {
		return Record{}, &PermissionDeniedError{Role: actor.Role, Capability: permission.CapAttendanceCreate}
	}

	now := nowFunc().UTC()

	if day := now.Weekday(); day != sched.Day {
		return Record{}, core.NewValidationError(nil, core.FieldError{
			Field: "schedule_id",
			Error: fmt.Sprintf("session runs on %s, not %s", sched.Day, day),
		})
	}
	if sched.IsVirtual() != (nc.Method == MethodVirtual) {
		return Record{}, core.NewValidationError(nil, core.FieldError{
			Field: "method",
			Error: fmt.Sprintf("session is delivered %s", sched.Mode),
		})
	}

	if nc.Method == MethodVirtual && nc.VirtualAction == VirtualActionEnd {
		return svc.endVirtualSession(ctx, actor, sched, now)
	}

	rec := Record{
		ID:           uuid.NewString(),
		ScheduleID:   sched.ID,
		LecturerID:   actor.ID,
		ClassGroupID: sched.ClassGroupID,
		CapturedAt:   now,
		CaptureDay:   DayOf(now),
		Method:       nc.Method,
		ClassRep:     Verification{Status: StatusPending},
		Supervisor:   Verification{Status: StatusPending},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	meta := map[string]interface{}{"schedule_id": sched.ID, "method": nc.Method}

	switch nc.Method {
	case MethodOnsite:
		if nc.Coordinates == nil {
			return Record{}, core.NewValidationError(nil, core.FieldError{
				Field: "coordinates",
				Error: "coordinates are required for onsite capture",
			})
		}
		res := svc.geo.Verify(*nc.Coordinates)
		if !res.Verified {
			dist := res.DistanceMeters
			return Record{}, &VerificationFailedError{Checks: []string{"geofence"}, DistanceMeters: &dist}
		}
		outcome := res
		rec.Geofence = &outcome
		meta["distance_meters"] = res.DistanceMeters

	case MethodVirtual: // start phase
		slotStart, slotEnd := sched.SlotOn(now)
		res := svc.virt.VerifyStart(sched.MeetingLink, slotStart, slotEnd, now, nc.UserAgent, nc.IPAddress)
		if !res.Verified {
			return Record{}, &VerificationFailedError{Checks: res.Errors}
		}
		started := now
		rec.Virtual = &VirtualOutcome{
			TimeWindowVerified:  res.TimeWindowVerified,
			MeetingLinkVerified: res.MeetingLinkVerified,
			DeviceFingerprint:   res.DeviceFingerprint,
			SessionStartedAt:    &started,
		}
		meta["device_fingerprint"] = res.DeviceFingerprint
	}

	rec, err = svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}

	if _, err = svc.audit.Record(ctx, actor.ID, audit.ActionAttendanceCapture, audit.TargetAttendanceRecord, rec.ID, meta); err != nil {
		return rec, &AuditFailedError{Action: audit.ActionAttendanceCapture, Err: err}
	}
	return rec, nil
}

func (svc *Service) endVirtualSession(ctx context.Context, actor Actor, sched schedule.ScheduledSession, now time.Time) (Record, error) {
	rec, err := svc.repo.GetRecordForSessionDay(ctx, actor.ID, sched.ID, DayOf(now))
	if err != nil {
		return Record{}, err
	}

	// start phase never recorded -> duration stays unmet
	durationMet := false
	if rec.Virtual != nil && rec.Virtual.SessionStartedAt != nil {
		slotStart, slotEnd := sched.SlotOn(now)
		durationMet = svc.virt.VerifyDuration(*rec.Virtual.SessionStartedAt, now, slotStart, slotEnd).Verified
	}

	rec, err = svc.repo.EndVirtualSession(ctx, rec.ID, now, durationMet)
	if err != nil {
		return Record{}, err
	}

	meta := map[string]interface{}{
		"schedule_id":  sched.ID,
		"method":       MethodVirtual,
		"phase":        VirtualActionEnd,
		"duration_met": durationMet,
	}
	if _, err = svc.audit.Record(ctx, actor.ID, audit.ActionAttendanceCapture, audit.TargetAttendanceRecord, rec.ID, meta); err != nil {
		return rec, &AuditFailedError{Action: audit.ActionAttendanceCapture, Err: err}
	}
	return rec, nil
}

// DecideClassRep settles the class-rep attestation channel. Only a class rep
// belonging to the record's class group may act, and only once.
func (svc *Service) DecideClassRep(ctx context.Context, actor Actor, recordID string, nd NewDecision) (Record, error) {
	rec, err := svc.repo.GetRecordByID(ctx, recordID)
	if err != nil {
		return Record{}, err
	}

	facts := permission.Facts{IsClassMember: actor.ClassGroupID != "" && actor.ClassGroupID == rec.ClassGroupID}
	if actor.Role != permission.RoleClassRep || !permission.Can(actor.Role, permission.CapAttendanceVerify, facts) {
		return Record{}, &PermissionDeniedError{Role: actor.Role, Capability: permission.CapAttendanceVerify + ":class"}
	}
	return svc.decide(ctx, actor, rec, nd, channelClassRep)
}

// DecideSupervisor settles the supervisor attestation channel. Independent of
// the class-rep channel; the two are orthogonal.
func (svc *Service) DecideSupervisor(ctx context.Context, actor Actor, recordID string, nd NewDecision) (Record, error) {
	rec, err := svc.repo.GetRecordByID(ctx, recordID)
	if err != nil {
		return Record{}, err
	}

	// no facts: class membership must not open this channel
	if !permission.Can(actor.Role, permission.CapAttendanceVerify, permission.Facts{}) {
		return Record{}, &PermissionDeniedError{Role: actor.Role, Capability: permission.CapAttendanceVerify}
	}
	return svc.decide(ctx, actor, rec, nd, channelSupervisor)
}

func (svc *Service) decide(ctx context.Context, actor Actor, rec Record, nd NewDecision, channel string) (Record, error) {
	now := nowFunc().UTC()
	v := Verification{
		Status:    nd.Decision,
		Comment:   nd.Comment,
		DecidedBy: actor.ID,
		DecidedAt: &now,
	}

	var err error
	if channel == channelClassRep {
		rec, err = svc.repo.SetClassRepVerification(ctx, rec.ID, v)
	} else {
		rec, err = svc.repo.SetSupervisorVerification(ctx, rec.ID, v)
	}
	if err != nil {
		return Record{}, err
	}

	action := audit.ActionAttendanceVerify
	if nd.Disputed() {
		action = audit.ActionAttendanceDispute
	}
	meta := map[string]interface{}{"channel": channel, "decision": nd.Decision}
	if nd.Comment != "" {
		meta["comment"] = nd.Comment
	}
	if _, err = svc.audit.Record(ctx, actor.ID, action, audit.TargetAttendanceRecord, rec.ID, meta); err != nil {
		return rec, &AuditFailedError{Action: action, Err: err}
	}

	if nd.Disputed() {
		svc.notifyLecturer(ctx, rec,
			"Attendance record disputed",
			fmt.Sprintf("Your attendance record for session %s was disputed by the %s channel. Comment: %s", rec.ScheduleID, channel, nd.Comment),
		)
	}
	return rec, nil
}

// OpenEscalation raises a verification request against a record when the
// default verification path is insufficient. One open request per record.
func (svc *Service) OpenEscalation(ctx context.Context, actor Actor, recordID string, ne NewEscalation) (Request, error) {
	rec, err := svc.repo.GetRecordByID(ctx, recordID)
	if err != nil {
		return Request{}, err
	}

	if !permission.Can(actor.Role, permission.CapEscalationOpen, permission.Facts{}) {
		return Request{}, &PermissionDeniedError{Role: actor.Role, Capability: permission.CapEscalationOpen}
	}

	now := nowFunc().UTC()
	req := Request{
		ID:          uuid.NewString(),
		RecordID:    rec.ID,
		RequesterID: actor.ID,
		Status:      RequestPending,
		Evidence:    ne.Evidence,
		CreatedAt:   now,
	}
	req, err = svc.repo.CreateRequest(ctx, req)
	if err != nil {
		return Request{}, err
	}

	meta := map[string]interface{}{"record_id": rec.ID}
	if _, err = svc.audit.Record(ctx, actor.ID, audit.ActionEscalationOpen, audit.TargetVerificationRequest, req.ID, meta); err != nil {
		return req, &AuditFailedError{Action: audit.ActionEscalationOpen, Err: err}
	}

	svc.notifyLecturer(ctx, rec,
		"Verification request opened",
		fmt.Sprintf("A supervisor opened a verification request against your attendance record for session %s. Evidence: %s", rec.ScheduleID, ne.Evidence),
	)
	return req, nil
}

// ResolveEscalation settles a pending request. Approval/rejection propagates
// the outcome onto the record's supervisor channel with a synthetic comment;
// a dispute with Escalate stamps the escalated timestamp and leaves the
// record untouched pending further human review.
func (svc *Service) ResolveEscalation(ctx context.Context, actor Actor, requestID string, re ResolveEscalation) (Request, error) {
	req, err := svc.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	rec, err := svc.repo.GetRecordByID(ctx, req.RecordID)
	if err != nil {
		return Request{}, err
	}

	facts := permission.Facts{IsOwner: rec.LecturerID == actor.ID}
	if !permission.Can(actor.Role, permission.CapEscalationResolve, facts) {
		return Request{}, &PermissionDeniedError{Role: actor.Role, Capability: permission.CapEscalationResolve}
	}

	now := nowFunc().UTC()
	var status string
	var escalatedAt *time.Time
	switch re.Decision {
	case "approve":
		status = RequestApproved
	case "reject":
		status = RequestRejected
	case "dispute":
		status = RequestDisputed
		if re.Escalate {
			escalatedAt = &now
		}
	}

	req, err = svc.repo.ResolveRequest(ctx, req.ID, status, re.Notes, actor.ID, now, escalatedAt)
	if err != nil {
		return Request{}, err
	}

	meta := map[string]interface{}{
		"record_id": rec.ID,
		"decision":  re.Decision,
		"escalated": escalatedAt != nil,
	}

	// approval/rejection propagate onto the record's supervisor channel;
	// if that channel was already decided the resolution stands as is
	if status == RequestApproved || status == RequestRejected {
		decision := StatusVerified
		if status == RequestRejected {
			decision = StatusDisputed
		}
		v := Verification{
			Status:    decision,
			Comment:   fmt.Sprintf("%s via verification request %s", status, req.ID),
			DecidedBy: actor.ID,
			DecidedAt: &now,
		}
		_, perr := svc.repo.SetSupervisorVerification(ctx, rec.ID, v)
		switch {
		case perr == nil:
			meta["propagated"] = true
		case errors.Cause(perr) == ErrAlreadyDecided:
			// the channel's one-shot guarantee wins; the resolution stands
			meta["propagated"] = false
		default:
			return req, &PropagationFailedError{RequestID: req.ID, RecordID: rec.ID, Err: perr}
		}
	}

	if _, err = svc.audit.Record(ctx, actor.ID, audit.ActionEscalationResolve, audit.TargetVerificationRequest, req.ID, meta); err != nil {
		return req, &AuditFailedError{Action: audit.ActionEscalationResolve, Err: err}
	}
	return req, nil
}

// GetRecord returns one record, gated by the read capability.
func (svc *Service) GetRecord(ctx context.Context, actor Actor, recordID string) (Record, error) {
	rec, err := svc.repo.GetRecordByID(ctx, recordID)
	if err != nil {
		return Record{}, err
	}

	facts := permission.Facts{
		IsOwner:       rec.LecturerID == actor.ID,
		IsClassMember: actor.ClassGroupID != "" && actor.ClassGroupID == rec.ClassGroupID,
	}
	if !permission.Can(actor.Role, permission.CapAttendanceRead, facts) {
		return Record{}, &PermissionDeniedError{Role: actor.Role, Capability: permission.CapAttendanceRead}
	}
	return rec, nil
}

// notifyLecturer emails the record's owner, best effort: the core picks the
// message, not the channel; delivery is the email service's concern.
func (svc *Service) notifyLecturer(ctx context.Context, rec Record, subject, body string) {
	if svc.mailSvc == nil || svc.directory == nil {
		return
	}
	addr, err := svc.directory.GetLecturerAddress(ctx, rec.LecturerID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{addr},
		Subject: subject,
		BodyStr: body,
	})
}
