package authzhttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/argus-soc/argus/internal/authz"
	"github.com/argus-soc/argus/internal/platform/httpx"
	"github.com/argus-soc/argus/internal/shared"
)

// Handler exposes the authorization admin surface: registry reads, role
// policy and override CRUD, impersonation, and the caller's own effective
// permission view.
type Handler struct {
	logger       *slog.Logger
	service      *authz.Service
	impersonator *authz.Impersonator
	mw           authz.Middleware
	pages        []authz.Page
	validator    *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *authz.Service, impersonator *authz.Impersonator, mw authz.Middleware, pages []authz.Page) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		impersonator: impersonator,
		mw:           mw,
		pages:        pages,
		validator:    validator.New(),
	}
}

// MountRoutes registers the authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithResolution)
		r.Get("/me", h.me)
		// Restore stays reachable while impersonating a role that lacks
		// the impersonation permission.
		r.Delete("/impersonate", h.restoreImpersonation)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.PermImpersonateRole))
		r.Post("/impersonate", h.startImpersonation)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.PermManageRBAC))
		r.Get("/permissions", h.listPermissions)
		r.Get("/pages", h.listPages)
		r.Get("/roles/{role}/policy", h.getPolicy)
		r.Put("/roles/{role}/policy", h.updatePolicy)
		r.Get("/users/{id}/overrides", h.listOverrides)
		r.Put("/users/{id}/overrides/{permission}", h.setOverride)
		r.Delete("/users/{id}/overrides/{permission}", h.removeOverride)
	})
}

type pageView struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Required []string `json:"required_permissions"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.ActorFromContext(r.Context())
	set, _ := authz.EffectiveSetFromContext(r.Context())

	visible := authz.VisiblePages(set, h.pages)
	pages := make([]pageView, 0, len(visible))
	for _, p := range visible {
		pages = append(pages, toPageView(p))
	}
	provenance := make(map[string]string)
	for perm, src := range set.Provenance() {
		provenance[string(perm)] = string(src)
	}
	body := map[string]any{
		"user_id":     actor.UserID,
		"role":        actor.Role,
		"permissions": set.Permissions(),
		"provenance":  provenance,
		"pages":       pages,
	}
	if set.Impersonated() {
		body["impersonating"] = set.BaseRole()
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	registry := h.service.Registry()
	var infos []authz.PermissionInfo
	if area := r.URL.Query().Get("area"); area != "" {
		infos = registry.ListByArea(area)
	} else {
		infos = registry.ListAll()
	}
	type permView struct {
		Token       string `json:"token"`
		Area        string `json:"area"`
		Description string `json:"description"`
	}
	out := make([]permView, 0, len(infos))
	for _, info := range infos {
		out = append(out, permView{Token: string(info.Token), Area: info.Area, Description: info.Description})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": out})
}

func (h *Handler) listPages(w http.ResponseWriter, r *http.Request) {
	out := make([]pageView, 0, len(h.pages))
	for _, p := range h.pages {
		out = append(out, toPageView(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pages": out})
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	role, err := authz.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	perms, err := h.service.GetDefaults(r.Context(), role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "permissions": perms})
}

type updatePolicyRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

func (h *Handler) updatePolicy(w http.ResponseWriter, r *http.Request) {
	role, err := authz.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req updatePolicyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	perms := make([]authz.Permission, len(req.Permissions))
	for i, token := range req.Permissions {
		perms[i] = authz.Permission(token)
	}
	if err := h.service.UpdateDefaults(r.Context(), actor, role, perms); err != nil {
		h.respondError(w, err)
		return
	}
	updated, err := h.service.GetDefaults(r.Context(), role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "permissions": updated})
}

func (h *Handler) listOverrides(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	overrides, err := h.service.ListOverrides(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	type overrideView struct {
		Permission string `json:"permission"`
		Granted    bool   `json:"granted"`
		Reason     string `json:"reason"`
		CreatedBy  int64  `json:"created_by"`
		CreatedAt  string `json:"created_at"`
	}
	out := make([]overrideView, 0, len(overrides))
	for _, ov := range overrides {
		out = append(out, overrideView{
			Permission: string(ov.Permission),
			Granted:    ov.Granted,
			Reason:     ov.Reason,
			CreatedBy:  ov.CreatedBy,
			CreatedAt:  ov.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "overrides": out})
}

type setOverrideRequest struct {
	Granted *bool  `json:"granted" validate:"required"`
	Reason  string `json:"reason" validate:"required,min=3"`
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req setOverrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	permission := authz.Permission(chi.URLParam(r, "permission"))
	override, err := h.service.SetOverride(r.Context(), actor, userID, permission, *req.Granted, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":    override.UserID,
		"permission": override.Permission,
		"granted":    override.Granted,
		"reason":     override.Reason,
	})
}

func (h *Handler) removeOverride(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	permission := authz.Permission(chi.URLParam(r, "permission"))
	if err := h.service.RemoveOverride(r.Context(), actor, userID, permission); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type impersonateRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) startImpersonation(w http.ResponseWriter, r *http.Request) {
	var req impersonateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if err := h.impersonator.Start(r.Context(), sess, actor, authz.Role(req.Role)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"impersonating": req.Role})
}

func (h *Handler) restoreImpersonation(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.ActorFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if err := h.impersonator.Restore(r.Context(), sess, actor); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}

// respondError maps the authorization error taxonomy to problem responses.
// Validation and not-found details are admin-facing and may carry the
// offending token; forbidden responses stay uniform.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, authz.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, authz.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, authz.ErrUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
	default:
		if h.logger != nil {
			h.logger.Error("authz handler", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toPageView(p authz.Page) pageView {
	required := make([]string, len(p.Required))
	for i, perm := range p.Required {
		required[i] = string(perm)
	}
	return pageView{Key: p.Key, Title: p.Title, Required: required}
}
