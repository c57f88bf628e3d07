package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Action tags. One per state-changing operation.
const (
	ActionAttendanceCapture = "attendance.capture"
	ActionAttendanceVerify  = "attendance.verify"
	ActionAttendanceDispute = "attendance.dispute"
	ActionEscalationOpen    = "escalation.open"
	ActionEscalationResolve = "escalation.resolve"
	ActionReportExport      = "report.export"
)

// Target types.
const (
	TargetAttendanceRecord    = "attendance_record"
	TargetVerificationRequest = "verification_request"
)

// riskScores maps an action to its base risk score (0-10). Deterministic
// and explainable; used for triage, not access control.
var riskScores = map[string]int{
	ActionAttendanceCapture: 1,
	ActionAttendanceVerify:  3,
	ActionAttendanceDispute: 4,
	ActionEscalationOpen:    5,
	ActionEscalationResolve: 3,
	ActionReportExport:      3,
}

type (
	// Entry is an immutable audit record. No update or delete exists.
	Entry struct {
		ID         string                 `json:"id" db:"id"`
		ActorID    string                 `json:"actor_id" db:"actor_id"`
		Action     string                 `json:"action" db:"action"`
		TargetType string                 `json:"target_type" db:"target_type"`
		TargetID   string                 `json:"target_id" db:"target_id"`
		Metadata   map[string]interface{} `json:"metadata,omitempty"`
		RiskScore  int                    `json:"risk_score" db:"risk_score"`
		CreatedAt  time.Time              `json:"created_at" db:"created_at"` // UTC
	}

	Repository interface {
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		QueryEntriesByTarget(ctx context.Context, targetType, targetID string) ([]Entry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RiskScore returns the base risk score for an action; unknown actions score 0.
func RiskScore(action string) int {
	return riskScores[action]
}

// Record appends one entry for a state-changing action. Persistence failures
// propagate to the caller; they are never retried or swallowed here.
func (svc *Service) Record(ctx context.Context, actorID, action, targetType, targetID string, metadata map[string]interface{}) (Entry, error) {
	entry := Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		RiskScore:  RiskScore(action),
		CreatedAt:  time.Now().UTC(),
	}
	entry, err := svc.repo.CreateEntry(ctx, entry)
	return entry, errors.Wrap(err, "creating audit entry")
}

// QueryByTarget returns the trail for one target, oldest first.
func (svc *Service) QueryByTarget(ctx context.Context, targetType, targetID string) ([]Entry, error) {
	return svc.repo.QueryEntriesByTarget(ctx, targetType, targetID)
}
