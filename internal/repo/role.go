package repo

import (
	"context"

	"github.com/rentora/authcore/internal/models"
)

func (r *Repo) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *Repo) FindRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// RoleNameOfUser resolves the current role for an identity; claims embedded
// in old tokens are never trusted for this.
func (r *Repo) RoleNameOfUser(ctx context.Context, userID uint) (string, error) {
	user, err := r.FindUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	role, err := r.FindRoleByID(ctx, user.RoleID)
	if err != nil {
		return "", err
	}
	return role.Name, nil
}
