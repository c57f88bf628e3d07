package attendance

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// not found
	ErrRecordNotFound  = errors.New("attendance record not found")
	ErrRequestNotFound = errors.New("verification request not found")

	// conflicts
	ErrDuplicateRecord   = errors.New("attendance already captured for this session today")
	ErrAlreadyDecided    = errors.New("verification already decided")
	ErrSessionEnded      = errors.New("virtual session already ended")
	ErrOpenRequestExists = errors.New("an open verification request already exists for this record")
	ErrRequestClosed     = errors.New("verification request already resolved")
)

// PermissionDeniedError indicates the actor's role, ownership or class
// membership does not satisfy the required capability.
type PermissionDeniedError struct {
	Role       string
	Capability string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s may not %s", e.Role, e.Capability)
}

// VerificationFailedError indicates a geofence or virtual-session check ran
// and did not pass. Checks names the failed sub-checks; DistanceMeters is set
// for geofence failures.
type VerificationFailedError struct {
	Checks         []string
	DistanceMeters *float64
}

func (e *VerificationFailedError) Error() string {
	msg := "verification failed: " + strings.Join(e.Checks, ", ")
	if e.DistanceMeters != nil {
		msg = fmt.Sprintf("%s (%.0fm from campus)", msg, *e.DistanceMeters)
	}
	return msg
}

// AuditFailedError reports a state transition that was applied but whose
// audit entry could not be written. The transition is NOT rolled back here;
// the caller decides what to do with the inconsistency.
type AuditFailedError struct {
	Action string
	Err    error
}

func (e *AuditFailedError) Error() string {
	return fmt.Sprintf("state changed but audit entry for %q failed: %v", e.Action, e.Err)
}

func (e *AuditFailedError) Unwrap() error { return e.Err }

// PropagationFailedError reports a verification request that was resolved but
// whose outcome could not be copied onto the record's supervisor channel. The
// request stays resolved; the record was left untouched.
type PropagationFailedError struct {
	RequestID string
	RecordID  string
	Err       error
}

func (e *PropagationFailedError) Error() string {
	return fmt.Sprintf("request %s resolved but propagation to record %s failed: %v", e.RequestID, e.RecordID, e.Err)
}

func (e *PropagationFailedError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	switch errors.Cause(err) {
	case ErrRecordNotFound, ErrRequestNotFound:
		return true
	}
	return false
}

// IsConflict reports whether err is one of the conflict sentinels.
func IsConflict(err error) bool {
	switch errors.Cause(err) {
	case ErrDuplicateRecord, ErrAlreadyDecided, ErrSessionEnded, ErrOpenRequestExists, ErrRequestClosed:
		return true
	}
	return false
}
