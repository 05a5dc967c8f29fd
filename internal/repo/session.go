package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/rentora/authcore/internal/models"
)

// CreateSession registers a logged-in session. The session id is the jti of
// the refresh token issued alongside it.
func (r *Repo) CreateSession(ctx context.Context, userID uint, sessionID, userAgent, ip string, expiresAt time.Time) (*models.Session, error) {
	switch {
	case userID == 0:
		return nil, fmt.Errorf("%w: user id", ErrValidation)
	case sessionID == "":
		return nil, fmt.Errorf("%w: session id", ErrValidation)
	case userAgent == "":
		return nil, fmt.Errorf("%w: user agent", ErrValidation)
	case ip == "":
		return nil, fmt.Errorf("%w: ip address", ErrValidation)
	case expiresAt.IsZero():
		return nil, fmt.Errorf("%w: expiry", ErrValidation)
	}

	session := models.Session{
		UserID:    userID,
		SessionID: sessionID,
		UserAgent: userAgent,
		IPAddress: ip,
		ExpiresAt: expiresAt,
	}
	if err := r.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// RevokeSession marks the non-revoked session with the given id revoked and
// reports whether such a row existed.
func (r *Repo) RevokeSession(ctx context.Context, sessionID string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("session_id = ? AND revoked = ?", sessionID, false).
		Update("revoked", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repo) FindSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (r *Repo) ActiveSessionsByUser(ctx context.Context, userID uint) ([]models.Session, error) {
	var sessions []models.Session
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}
