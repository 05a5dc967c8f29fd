package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrEmailTaken  = errors.New("email already registered")
	ErrJTIConflict = errors.New("refresh token jti already recorded")
	ErrValidation  = errors.New("missing required field")
	ErrNotFound    = errors.New("record not found")
)

// Repo wraps a gorm handle; every component receives it explicitly,
// there is no package-level database state.
type Repo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
