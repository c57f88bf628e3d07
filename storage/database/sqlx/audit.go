package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahadhurio/core/audit"
)

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *sqlx.DB) audit.Repository {
	return &auditRepository{db: db}
}

type dbEntry struct {
	ID         string          `db:"id"`
	ActorID    string          `db:"actor_id"`
	Action     string          `db:"action"`
	TargetType string          `db:"target_type"`
	TargetID   string          `db:"target_id"`
	Metadata   json.RawMessage `db:"metadata"`
	RiskScore  int             `db:"risk_score"`
	CreatedAt  time.Time       `db:"created_at"`
}

func (e dbEntry) toEntry() (audit.Entry, error) {
	entry := audit.Entry{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		RiskScore:  e.RiskScore,
		CreatedAt:  e.CreatedAt.UTC(),
	}
	if len(e.Metadata) > 0 {
		if err := json.Unmarshal(e.Metadata, &entry.Metadata); err != nil {
			return audit.Entry{}, errors.Wrap(err, "decoding audit metadata")
		}
	}
	return entry, nil
}

func (repo *auditRepository) CreateEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	metadata := []byte("{}")
	if entry.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(entry.Metadata); err != nil {
			return audit.Entry{}, errors.Wrap(err, "encoding audit metadata")
		}
	}

	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, target_type, target_id, metadata, risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, metadata, entry.RiskScore, entry.CreatedAt,
	)
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return entry, nil
}

func (repo *auditRepository) QueryEntriesByTarget(ctx context.Context, targetType, targetID string) ([]audit.Entry, error) {
	var rows []dbEntry
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, actor_id, action, target_type, target_id, metadata, risk_score, created_at
		FROM audit_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at`,
		targetType, targetID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
