package repo

import (
	"context"
	"fmt"

	"github.com/rentora/authcore/internal/models"
)

func (r *Repo) CreateProfile(ctx context.Context, p *models.UserProfile) error {
	if p.UserID == 0 {
		return fmt.Errorf("%w: user id", ErrValidation)
	}
	if p.FullName == "" {
		return fmt.Errorf("%w: full name", ErrValidation)
	}
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *Repo) FindProfileByID(ctx context.Context, id uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.DB.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *Repo) FindProfileByUser(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *Repo) UpdateProfile(ctx context.Context, id uint, fields map[string]any) error {
	result := r.DB.WithContext(ctx).Model(&models.UserProfile{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteProfile(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Delete(&models.UserProfile{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
