package audit

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

type fakeRepo struct {
	entries []Entry
	err     error
}

func (r *fakeRepo) CreateEntry(_ context.Context, entry Entry) (Entry, error) {
	if r.err != nil {
		return Entry{}, r.err
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *fakeRepo) QueryEntriesByTarget(_ context.Context, targetType, targetID string) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		action string
		want   int
	}{
		{ActionAttendanceCapture, 1},
		{ActionAttendanceVerify, 3},
		{ActionAttendanceDispute, 4},
		{ActionEscalationOpen, 5},
		{ActionEscalationResolve, 3},
		{ActionReportExport, 3},
		{"unknown.action", 0},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := RiskScore(tt.action); got != tt.want {
				t.Errorf("RiskScore(%s) = %d, want %d", tt.action, got, tt.want)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	entry, err := svc.Record(context.Background(), "actor-1", ActionAttendanceDispute, TargetAttendanceRecord, "rec-1", map[string]interface{}{"comment": "late"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("Record() entry has no id")
	}
	if entry.RiskScore != 4 {
		t.Errorf("Record() risk score = %d, want 4", entry.RiskScore)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("Record() entry has no timestamp")
	}

	trail, err := svc.QueryByTarget(context.Background(), TargetAttendanceRecord, "rec-1")
	if err != nil {
		t.Fatalf("QueryByTarget() error = %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("QueryByTarget() returned %d entries, want 1", len(trail))
	}
}

func TestRecordPropagatesRepoFailure(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection reset")}
	svc := NewService(repo)

	if _, err := svc.Record(context.Background(), "actor-1", ActionAttendanceCapture, TargetAttendanceRecord, "rec-1", nil); err == nil {
		t.Fatal("Record() swallowed a repository failure")
	}
}
