package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// PersistLogin writes the refresh-token ledger row and the session row in a
// single transaction. Committing only one of the pair would leave a token
// half-tracked, so both land or neither does.
func (r *Repo) PersistLogin(ctx context.Context, userID uint, jti string, expiresAt time.Time, userAgent, ip string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &Repo{DB: tx}
		if err := txRepo.RecordRefreshToken(ctx, userID, jti, expiresAt); err != nil {
			return err
		}
		_, err := txRepo.CreateSession(ctx, userID, jti, userAgent, ip, expiresAt)
		return err
	})
}
