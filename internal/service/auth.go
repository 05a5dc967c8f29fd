package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rentora/authcore/internal/authz"
	"github.com/rentora/authcore/internal/events"
	"github.com/rentora/authcore/internal/hash"
	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/models"
	"github.com/rentora/authcore/internal/repo"
	"github.com/rentora/authcore/internal/search"
	"github.com/rentora/authcore/internal/tokens"
)

var allowedRoles = map[string]bool{
	models.RoleTenant: true,
	models.RoleStaff:  true,
	models.RoleAdmin:  true,
}

type AuthService struct {
	Repo     *repo.Repo
	Issuer   *tokens.Issuer
	Producer *events.Producer
	Indexer  *search.AuditIndexer

	// StrictSessionPersist turns login-time ledger/session write failures
	// into login failures instead of logged warnings.
	StrictSessionPersist bool
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.AuthUser
	Role         string
}

type Identity struct {
	User *models.AuthUser
	Role string
}

func (s *AuthService) Register(ctx context.Context, email, password, username, role string) (uint, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if email == "" {
		return 0, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if password == "" {
		return 0, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if username == "" {
		username = email
	}
	if role == "" {
		role = models.RoleTenant
	}
	if !allowedRoles[role] {
		return 0, fmt.Errorf("%w: invalid role %q", ErrValidation, role)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash password", "error", err)
		return 0, ErrInternal
	}

	roleRow, err := s.Repo.FindRoleByName(ctx, role)
	if err != nil {
		l.Error("register_error", "reason", "role lookup failed", "role", role, "error", err)
		return 0, ErrInternal
	}

	user := models.AuthUser{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		RoleID:       roleRow.ID,
	}
	if err := s.Repo.CreateUserIfEmailFree(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("register_conflict", "email", email)
			return 0, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		l.Error("register_error", "error", err)
		return 0, ErrInternal
	}

	s.audit(ctx, user.ID, authz.TableAuthUsers, user.ID, "INSERT", "registered "+email)
	s.publish(ctx, user.ID, events.TypeUserRegistered, map[string]any{"email": email, "role": role})

	// The identity row stays even when the linked profile cannot be written;
	// there is no rollback here, the caller just learns about the failure.
	profile := models.UserProfile{UserID: user.ID, FullName: username}
	if err := s.Repo.CreateProfile(ctx, &profile); err != nil {
		l.Error("register_profile_error", "user_id", user.ID, "error", err)
		return user.ID, fmt.Errorf("%w: profile creation failed", ErrInternal)
	}

	return user.ID, nil
}

func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// same error as a password mismatch, no enumeration signal
			return nil, ErrUnauthorized
		}
		l.Error("login_error", "error", err)
		return nil, ErrInternal
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrUnauthorized
	}

	role := s.roleNameOrTenant(ctx, user.RoleID)
	subject := strconv.FormatUint(uint64(user.ID), 10)
	now := time.Now()

	accessToken, accessExp, err := s.Issuer.IssueAccessToken(subject, role, user.Email, now)
	if err != nil {
		l.Error("login_error", "reason", "access token", "error", err)
		return nil, ErrInternal
	}
	refreshToken, jti, refreshExp, err := s.Issuer.IssueRefreshToken(subject, now)
	if err != nil {
		l.Error("login_error", "reason", "refresh token", "error", err)
		return nil, ErrInternal
	}

	if err := s.Repo.PersistLogin(ctx, user.ID, jti, refreshExp, userAgent, ip); err != nil {
		if s.StrictSessionPersist {
			l.Error("login_persist_error", "user_id", user.ID, "error", err)
			return nil, ErrInternal
		}
		// best-effort by default: the access token is already minted, so the
		// login succeeds and the gap is logged
		l.Warn("login_persist_skipped", "user_id", user.ID, "error", err)
	}

	s.publish(ctx, user.ID, events.TypeUserLoggedIn, map[string]any{"email": user.Email})
	l.Info("login_successful", "user_id", user.ID)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		User:         user,
		Role:         role,
	}, nil
}

// Refresh mints a new access token for a live refresh token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Issuer.ParseRefresh(refreshToken)
	if err != nil {
		return "", ErrUnauthorized
	}

	dead, err := s.Repo.IsRevokedOrUnknown(ctx, claims.ID)
	if err != nil {
		l.Error("refresh_liveness_error", "jti", claims.ID, "error", err)
		return "", ErrUnauthorized
	}
	if dead {
		return "", ErrUnauthorized
	}

	user, err := s.userFromSubject(ctx, claims.Subject)
	if err != nil {
		return "", ErrUnauthorized
	}

	role := s.roleNameOrTenant(ctx, user.RoleID)
	accessToken, _, err := s.Issuer.IssueAccessToken(claims.Subject, role, user.Email, time.Now())
	if err != nil {
		l.Error("refresh_error", "error", err)
		return "", ErrInternal
	}
	return accessToken, nil
}

// Logout revokes the refresh token in the ledger and the session registry.
// Success requires both confirmations; a half-revoked token is a failure.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := s.Issuer.ParseRefresh(refreshToken)
	if err != nil {
		return ErrUnauthorized
	}
	if claims.ID == "" {
		return fmt.Errorf("%w: token has no jti", ErrValidation)
	}

	affected, ledgerErr := s.Repo.RevokeRefreshToken(ctx, claims.ID)
	sessionOK, sessionErr := s.Repo.RevokeSession(ctx, claims.ID)

	if ledgerErr != nil || sessionErr != nil {
		l.Error("logout_error", "jti", claims.ID,
			"ledger_error", ledgerErr, "session_error", sessionErr)
		return ErrInternal
	}
	if affected == 0 || !sessionOK {
		l.Warn("logout_incomplete", "jti", claims.ID,
			"ledger_affected", affected, "session_revoked", sessionOK)
		return ErrRevokeIncomplete
	}

	if user, err := s.userFromSubject(ctx, claims.Subject); err == nil {
		s.publish(ctx, user.ID, events.TypeUserLoggedOut, map[string]any{"email": user.Email})
	}
	l.Info("logout_successful", "jti", claims.ID)
	return nil
}

// SessionInfo resolves the identity behind a refresh token, enforcing the
// same liveness rules as Refresh.
func (s *AuthService) SessionInfo(ctx context.Context, refreshToken string) (*Identity, error) {
	claims, err := s.Issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	dead, err := s.Repo.IsRevokedOrUnknown(ctx, claims.ID)
	if err != nil || dead {
		return nil, ErrUnauthorized
	}

	user, err := s.userFromSubject(ctx, claims.Subject)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return &Identity{User: user, Role: s.roleNameOrTenant(ctx, user.RoleID)}, nil
}

// Me resolves the identity behind a bearer access token. Access tokens are
// stateless; only signature and expiry are checked before the user lookup.
func (s *AuthService) Me(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.Issuer.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.userFromSubject(ctx, claims.Subject)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return &Identity{User: user, Role: s.roleNameOrTenant(ctx, user.RoleID)}, nil
}

// Delete removes an identity through one of two paths: proof of ownership by
// password, or a bearer token belonging to the target or an admin.
func (s *AuthService) Delete(ctx context.Context, email, password, bearer string) error {
	l := logging.FromContext(ctx).With("svc", "auth.delete")

	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	target, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		l.Error("delete_error", "error", err)
		return ErrInternal
	}

	if bearer == "" {
		if password == "" {
			return fmt.Errorf("%w: password required when no token is provided", ErrValidation)
		}
		if !hash.CheckPassword(target.PasswordHash, password) {
			return ErrUnauthorized
		}
	} else {
		claims, err := s.Issuer.ParseAccess(bearer)
		if err != nil {
			return ErrUnauthorized
		}
		caller, err := s.userFromSubject(ctx, claims.Subject)
		if err != nil {
			return ErrUnauthorized
		}
		if caller.ID != target.ID {
			if s.roleNameOrTenant(ctx, caller.RoleID) != models.RoleAdmin {
				return ErrForbidden
			}
		}
	}

	if err := s.Repo.DeleteUser(ctx, target.ID); err != nil {
		l.Error("delete_error", "user_id", target.ID, "error", err)
		return ErrInternal
	}

	s.audit(ctx, target.ID, authz.TableAuthUsers, target.ID, "DELETE", "deleted "+email)
	s.publish(ctx, target.ID, events.TypeUserDeleted, map[string]any{"email": email})
	l.Info("delete_successful", "user_id", target.ID)
	return nil
}

func (s *AuthService) userFromSubject(ctx context.Context, subject string) (*models.AuthUser, error) {
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrUnauthorized)
	}
	return s.Repo.FindUserByID(ctx, uint(id))
}

func (s *AuthService) roleNameOrTenant(ctx context.Context, roleID uint) string {
	role, err := s.Repo.FindRoleByID(ctx, roleID)
	if err != nil {
		return models.RoleTenant
	}
	return role.Name
}

func (s *AuthService) audit(ctx context.Context, actorID uint, table string, itemID uint, action, detail string) {
	entry := models.AuditEntry{
		ActorID:   actorID,
		Table:     table,
		ItemID:    itemID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	s.Repo.AppendAudit(ctx, &entry)
	s.Indexer.Index(ctx, &entry)
}

func (s *AuthService) publish(ctx context.Context, userID uint, eventType string, payload map[string]any) {
	if s.Producer == nil {
		return
	}
	event := map[string]any{"type": eventType, "user_id": userID}
	for k, v := range payload {
		event[k] = v
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, strconv.FormatUint(uint64(userID), 10), event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "type", eventType, "error", err)
	}
}
