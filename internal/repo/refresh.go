package repo

import (
	"context"
	"errors"
	"time"

	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/models"
)

// Record inserts the jti of a freshly issued refresh token into the ledger.
func (r *Repo) RecordRefreshToken(ctx context.Context, userID uint, jti string, expiresAt time.Time) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrJTIConflict
	}

	token := models.RefreshToken{
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}
	return r.DB.WithContext(ctx).Create(&token).Error
}

// RevokeRefreshToken marks every ledger row with the given jti revoked and
// returns how many rows matched. More than one match violates the jti
// uniqueness invariant; it is logged and not treated as fatal.
func (r *Repo) RevokeRefreshToken(ctx context.Context, jti string) (int64, error) {
	result := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Update("revoked", true)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 1 {
		logging.FromContext(ctx).Warn("revoked multiple refresh tokens for one jti",
			"jti", jti, "affected", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// IsRevokedOrUnknown reports whether the jti must be treated as dead.
// Unknown tokens count as revoked; callers fail closed on error too.
func (r *Repo) IsRevokedOrUnknown(ctx context.Context, jti string) (bool, error) {
	token, err := r.FindRefreshTokenByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return true, err
	}
	return token.Revoked, nil
}

func (r *Repo) FindRefreshTokenByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}
