package repo

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentora/authcore/internal/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open in-memory db")

	err = gdb.AutoMigrate(
		&models.Role{},
		&models.AuthUser{},
		&models.RefreshToken{},
		&models.Session{},
		&models.UserProfile{},
		&models.MaintenanceRequest{},
		&models.AuditEntry{},
	)
	require.NoError(t, err, "failed to migrate tables")

	for _, name := range []string{models.RoleTenant, models.RoleStaff, models.RoleAdmin} {
		require.NoError(t, gdb.Create(&models.Role{Name: name}).Error)
	}

	return New(gdb)
}

func createTestUser(t *testing.T, r *Repo, email, role string) *models.AuthUser {
	t.Helper()

	var roleRow models.Role
	require.NoError(t, r.DB.Where("name = ?", role).First(&roleRow).Error)

	user := models.AuthUser{
		Username:     email,
		Email:        email,
		PasswordHash: "x",
		RoleID:       roleRow.ID,
	}
	require.NoError(t, r.DB.Create(&user).Error)
	return &user
}
