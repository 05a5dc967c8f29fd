package repo

import (
	"context"

	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/models"
)

// AppendAudit is best-effort: a failed audit write is logged, never surfaced
// to the request that triggered it.
func (r *Repo) AppendAudit(ctx context.Context, entry *models.AuditEntry) {
	if err := r.DB.WithContext(ctx).Create(entry).Error; err != nil {
		logging.FromContext(ctx).Error("audit append failed",
			"table", entry.Table, "action", entry.Action, "error", err)
	}
}

func (r *Repo) ListAudit(ctx context.Context, page, perPage int) ([]models.AuditEntry, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.AuditEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditEntry
	err := r.DB.WithContext(ctx).
		Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&entries).Error
	return entries, total, err
}

func (r *Repo) FindAuditEntry(ctx context.Context, id uint) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	if err := r.DB.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}
