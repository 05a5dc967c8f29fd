package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rentora/authcore/internal/authz"
	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/middleware"
	"github.com/rentora/authcore/internal/models"
	"github.com/rentora/authcore/internal/repo"
	"github.com/rentora/authcore/internal/search"
)

// ProfileHTTP serves the user_profiles resource; every mutation runs through
// the policy engine first.
type ProfileHTTP struct {
	Repo    *repo.Repo
	Authz   *authz.Engine
	Indexer *search.AuditIndexer
}

func (h *ProfileHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_create")

	var req struct {
		UserID   uint   `json:"user_id"`
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
		Status   string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	actor, err := actorFromContext(c, h.Repo)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "invalid identity in token")
	}

	payload := map[string]any{"user_id": req.UserID}
	if !h.Authz.Authorize(ctx, authz.TableUserProfiles, authz.ActionCreate, payload, 0, actor) {
		l.Warn("forbidden", "user_id", actor.ID, "role", actor.Role,
			"required", authz.MinimumRole(authz.TableUserProfiles, authz.ActionCreate))
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	profile := models.UserProfile{
		UserID:   req.UserID,
		FullName: req.FullName,
		Phone:    req.Phone,
		Status:   req.Status,
	}
	if err := h.Repo.CreateProfile(ctx, &profile); err != nil {
		return repoError(c, err)
	}

	h.appendAudit(c, actor.ID, profile.ID, "INSERT", "profile created")
	return c.JSON(http.StatusCreated, echo.Map{"id": profile.ID})
}

func (h *ProfileHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := itemID(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}

	actor, err := actorFromContext(c, h.Repo)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "invalid identity in token")
	}

	if !h.Authz.Authorize(ctx, authz.TableUserProfiles, authz.ActionRead, nil, id, actor) {
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	profile, err := h.Repo.FindProfileByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *ProfileHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_update")

	id, err := itemID(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}

	var req struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
		Status   string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	actor, err := actorFromContext(c, h.Repo)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "invalid identity in token")
	}

	if !h.Authz.Authorize(ctx, authz.TableUserProfiles, authz.ActionUpdate, nil, id, actor) {
		l.Warn("forbidden", "user_id", actor.ID, "role", actor.Role,
			"required", authz.MinimumRole(authz.TableUserProfiles, authz.ActionUpdate))
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	fields := map[string]any{}
	if req.FullName != "" {
		fields["full_name"] = req.FullName
	}
	if req.Phone != "" {
		fields["phone"] = req.Phone
	}
	if req.Status != "" {
		fields["status"] = req.Status
	}
	if len(fields) == 0 {
		return jsonError(c, http.StatusBadRequest, "no updatable fields")
	}

	if err := h.Repo.UpdateProfile(ctx, id, fields); err != nil {
		return repoError(c, err)
	}

	h.appendAudit(c, actor.ID, id, "UPDATE", "profile updated")
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

func (h *ProfileHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := itemID(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}

	actor, err := actorFromContext(c, h.Repo)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "invalid identity in token")
	}

	if !h.Authz.Authorize(ctx, authz.TableUserProfiles, authz.ActionDelete, nil, id, actor) {
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	if err := h.Repo.DeleteProfile(ctx, id); err != nil {
		return repoError(c, err)
	}

	h.appendAudit(c, actor.ID, id, "DELETE", "profile deleted")
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

func (h *ProfileHTTP) appendAudit(c echo.Context, actorID, itemID uint, action, detail string) {
	ctx := c.Request().Context()
	entry := models.AuditEntry{
		ActorID:   actorID,
		Table:     authz.TableUserProfiles,
		ItemID:    itemID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	h.Repo.AppendAudit(ctx, &entry)
	h.Indexer.Index(ctx, &entry)
}

// actorFromContext re-fetches the caller's role from storage; the role claim
// in the access token may be stale.
func actorFromContext(c echo.Context, r *repo.Repo) (authz.Actor, error) {
	userID, ok := c.Get(middleware.CtxUserID).(uint)
	if !ok {
		return authz.Actor{}, echo.ErrUnauthorized
	}
	role, err := r.RoleNameOfUser(c.Request().Context(), userID)
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{ID: userID, Role: role}, nil
}

func itemID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrBadRequest
	}
	return uint(id), nil
}

func repoError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return jsonError(c, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrValidation):
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	return jsonError(c, http.StatusInternalServerError, "internal server error")
}
