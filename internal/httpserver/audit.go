package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rentora/authcore/internal/authz"
	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/repo"
	"github.com/rentora/authcore/internal/search"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// AuditHTTP serves the audit trail. Reads flow through the policy engine,
// which default-denies the audit_log table for everyone but admins.
type AuditHTTP struct {
	Repo    *repo.Repo
	Authz   *authz.Engine
	Indexer *search.AuditIndexer
}

func (h *AuditHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "audit_list")

	page, perPage, err := pagination(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "pagination parameters out of range")
	}

	actor, err := actorFromContext(c, h.Repo)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "invalid identity in token")
	}

	if !h.Authz.Authorize(ctx, authz.TableAuditLog, authz.ActionRead, nil, 0, actor) {
		l.Warn("forbidden", "user_id", actor.ID, "role", actor.Role,
			"required", authz.MinimumRole(authz.TableAuditLog, authz.ActionRead))
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	entries, total, err := h.Repo.ListAudit(ctx, page, perPage)
	if err != nil {
		return repoError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":    entries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (h *AuditHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := itemID(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}

	actor, err := actorFromContext(c, h.Repo)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "invalid identity in token")
	}

	if !h.Authz.Authorize(ctx, authz.TableAuditLog, authz.ActionRead, nil, id, actor) {
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	entry, err := h.Repo.FindAuditEntry(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *AuditHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()

	query := c.QueryParam("q")
	if query == "" {
		return jsonError(c, http.StatusBadRequest, "query parameter q is required")
	}

	page, perPage, err := pagination(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "pagination parameters out of range")
	}

	actor, err := actorFromContext(c, h.Repo)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "invalid identity in token")
	}

	if !h.Authz.Authorize(ctx, authz.TableAuditLog, authz.ActionRead, nil, 0, actor) {
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	if !h.Indexer.Enabled() {
		return jsonError(c, http.StatusServiceUnavailable, "audit search disabled")
	}

	total, entries, err := h.Indexer.Search(ctx, query, (page-1)*perPage, perPage)
	if err != nil {
		logging.FromContext(ctx).Error("audit search failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":    entries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func pagination(c echo.Context) (page, perPage int, err error) {
	page, perPage = 1, defaultPerPage
	if v := c.QueryParam("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, err
		}
	}
	if v := c.QueryParam("per_page"); v != "" {
		perPage, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, err
		}
	}
	if page < 1 || perPage < 1 || perPage > maxPerPage {
		return 0, 0, echo.ErrBadRequest
	}
	return page, perPage, nil
}
