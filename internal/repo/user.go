package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentora/authcore/internal/models"
)

func (r *Repo) CreateUserIfEmailFree(ctx context.Context, u *models.AuthUser) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (r *Repo) FindUserByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *Repo) FindUserByID(ctx context.Context, id uint) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// DeleteUser removes the identity row and revokes everything tied to it,
// in one transaction: an identity must not disappear while its sessions
// stay listed as active.
func (r *Repo) DeleteUser(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RefreshToken{}).
			Where("user_id = ?", id).
			Update("revoked", true).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Session{}).
			Where("user_id = ?", id).
			Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AuthUser{}, id).Error
	})
}
