package inmemdb

import (
	"context"

	"github.com/trezcool/mahadhurio/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.entries = append(repo.db.entries, entry)
	return entry, nil
}

func (repo *auditRepository) QueryEntriesByTarget(_ context.Context, targetType, targetID string) ([]audit.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]audit.Entry, 0)
	for _, e := range repo.db.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
