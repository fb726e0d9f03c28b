package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
)

const (
	rolesPath           = "/admin/roles"
	rolePermissionsPath = "/admin/role-permissions"
	userRolesPath       = "/admin/user-roles"
)

// Handler manages the admin endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrf        *shared.CSRFManager
	guard       rbac.Guard
	interceptor *auth.Interceptor
	validator   *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Guard, interceptor *auth.Interceptor) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		csrf:        csrf,
		guard:       guard,
		interceptor: interceptor,
		validator:   validator.New(),
	}
}

// MountRoutes registers admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireRoute("/admin")).Get("/admin", h.dashboard)
	r.With(h.guard.RequireRoute(rolesPath)).Get(rolesPath, h.listRoles)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoute("/admin/roles/create"))
		r.Get("/admin/roles/create", h.showCreateRoleForm)
		r.Post("/admin/roles/create", h.saveRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoute("/admin/roles/{id}/edit"))
		r.Get("/admin/roles/{id}/edit", h.showEditRoleForm)
		r.Post("/admin/roles/{id}/edit", h.saveRole)
	})
	r.With(h.guard.RequireRoute("/admin/roles/{id}/delete")).Post("/admin/roles/{id}/delete", h.deleteRole)
	r.With(h.guard.RequireRoute("/admin/permissions")).Get("/admin/permissions", h.listPermissions)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoute(rolePermissionsPath))
		r.Get(rolePermissionsPath, h.showRolePermissions)
		r.Post(rolePermissionsPath, h.saveRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoute(userRolesPath))
		r.Get(userRolesPath, h.listUserRoles)
		r.Post(userRolesPath, h.assignUserRole)
	})
}

type formErrors map[string]string

type dashboardPage struct {
	Roles       int
	Permissions int
	Links       []Link
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	roles, perms, err := h.service.Counts(r.Context())
	if err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("admin dashboard", slog.Any("error", err))
	}
	h.render(w, r, http.StatusOK, "pages/admin_dashboard.html", "Yönetim Paneli", dashboardPage{Roles: roles, Permissions: perms, Links: Links})
}

type rolesPage struct {
	Roles []backend.Role
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.readFailed(w, r, "Roller yüklenirken hata oluştu", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin_roles.html", "Roller", rolesPage{Roles: roles})
}

type roleFormPage struct {
	Editing     bool
	Action      string
	Name        string
	Description string
	Errors      formErrors
	Groups      []PermissionGroup
	checked     map[int64]bool
}

// Checked reports whether permission id is selected.
func (p roleFormPage) Checked(id int64) bool {
	return p.checked[id]
}

func (h *Handler) showCreateRoleForm(w http.ResponseWriter, r *http.Request) {
	h.renderRoleForm(w, r, http.StatusOK, roleFormPage{Action: "/admin/roles/create", Errors: formErrors{}})
}

func (h *Handler) showEditRoleForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.readFailed(w, r, "Rol yüklenirken hata oluştu", err)
		return
	}
	checked := make(map[int64]bool, len(role.Permissions))
	for _, p := range role.Permissions {
		checked[p.ID] = true
	}
	h.renderRoleForm(w, r, http.StatusOK, roleFormPage{
		Editing:     true,
		Action:      fmt.Sprintf("/admin/roles/%d/edit", id),
		Name:        role.Name,
		Description: role.Description,
		Errors:      formErrors{},
		checked:     checked,
	})
}

func (h *Handler) saveRole(w http.ResponseWriter, r *http.Request) {
	var id int64
	if chi.URLParam(r, "id") != "" {
		var ok bool
		if id, ok = h.roleID(w, r); !ok {
			return
		}
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := RoleForm{
		Name:          strings.TrimSpace(r.PostForm.Get("name")),
		Description:   strings.TrimSpace(r.PostForm.Get("description")),
		PermissionIDs: parseIDs(r.PostForm["permissions"]),
	}
	page := roleFormPage{
		Editing:     id != 0,
		Action:      "/admin/roles/create",
		Name:        form.Name,
		Description: form.Description,
		Errors:      h.validateRole(form),
		checked:     make(map[int64]bool, len(form.PermissionIDs)),
	}
	if id != 0 {
		page.Action = fmt.Sprintf("/admin/roles/%d/edit", id)
	}
	for _, pid := range form.PermissionIDs {
		page.checked[pid] = true
	}
	if len(page.Errors) > 0 {
		h.renderRoleForm(w, r, http.StatusBadRequest, page)
		return
	}

	if err := h.service.SaveRole(r.Context(), id, form); err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("save role", slog.Int64("id", id), slog.Any("error", err))
		status := http.StatusBadGateway
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.Status < http.StatusInternalServerError {
			status = apiErr.Status
		}
		page.Errors["general"] = "Kayıt sırasında hata oluştu: " + errorText(err)
		h.renderRoleForm(w, r, status, page)
		return
	}
	h.redirectWithFlash(w, r, rolesPath, "success", "Rol başarıyla kaydedildi")
}

func (h *Handler) validateRole(form RoleForm) formErrors {
	errs := formErrors{}
	err := h.validator.Struct(form)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs
	}
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Name" && fe.Tag() == "required":
			errs["name"] = "Rol adı zorunludur"
		case fe.Field() == "Name":
			errs["name"] = "Rol adı en fazla 100 karakter olabilir"
		case fe.Field() == "Description":
			errs["description"] = "Açıklama en fazla 1000 karakter olabilir"
		}
	}
	return errs
}

func (h *Handler) renderRoleForm(w http.ResponseWriter, r *http.Request, status int, page roleFormPage) {
	groups, err := h.service.PermissionGroups(r.Context())
	if err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("load permissions", slog.Any("error", err))
		if _, ok := page.Errors["general"]; !ok {
			page.Errors["general"] = "Veriler yüklenirken hata oluştu: " + errorText(err)
		}
	}
	page.Groups = groups
	title := "Yeni Rol"
	if page.Editing {
		title = "Rol Düzenle"
	}
	h.render(w, r, status, "pages/admin_role_form.html", title, page)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("delete role", slog.Int64("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, rolesPath, "error", "Rol silinirken hata oluştu: "+errorText(err))
		return
	}
	h.redirectWithFlash(w, r, rolesPath, "success", "Rol başarıyla silindi")
}

type permissionsPage struct {
	Groups []PermissionGroup
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.PermissionGroups(r.Context())
	if err != nil {
		h.readFailed(w, r, "İzinler yüklenirken hata oluştu", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin_permissions.html", "Yetkiler", permissionsPage{Groups: groups})
}

type rolePermissionsPage struct {
	Roles    []backend.Role
	Selected *backend.Role
	Groups   []PermissionGroup
}

// Checked reports whether the selected role carries permission id.
func (p rolePermissionsPage) Checked(id int64) bool {
	return p.Selected != nil && p.Selected.HasPermission(id)
}

func (h *Handler) showRolePermissions(w http.ResponseWriter, r *http.Request) {
	var selectedID int64
	if raw := r.URL.Query().Get("role"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.redirectWithFlash(w, r, rolePermissionsPath, "error", "Rol bulunamadı.")
			return
		}
		selectedID = id
	}

	var page rolePermissionsPage
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		page.Roles, err = h.service.ListRoles(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		page.Groups, err = h.service.PermissionGroups(ctx)
		return err
	})
	if selectedID != 0 {
		g.Go(func() error {
			role, err := h.service.GetRole(ctx, selectedID)
			if err != nil {
				return err
			}
			page.Selected = &role
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if selectedID != 0 && errors.Is(err, backend.ErrNotFound) {
			h.redirectWithFlash(w, r, rolePermissionsPath, "error", "Rol bulunamadı.")
			return
		}
		h.readFailed(w, r, "Veriler yüklenirken hata oluştu", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin_role_permissions.html", "Rol Yetkileri", page)
}

func (h *Handler) saveRolePermissions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	roleID, err := strconv.ParseInt(r.PostForm.Get("role"), 10, 64)
	if err != nil || roleID <= 0 {
		h.redirectWithFlash(w, r, rolePermissionsPath, "error", "Rol seçiniz.")
		return
	}
	back := fmt.Sprintf("%s?role=%d", rolePermissionsPath, roleID)
	if err := h.service.SyncPermissions(r.Context(), roleID, parseIDs(r.PostForm["permissions"])); err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("sync role permissions", slog.Int64("role", roleID), slog.Any("error", err))
		h.redirectWithFlash(w, r, back, "error", "İzinler güncellenirken hata oluştu: "+errorText(err))
		return
	}
	h.redirectWithFlash(w, r, back, "success", "İzinler başarıyla güncellendi!")
}

type userRolesPage struct {
	Users []Assignee
	Roles []backend.Role
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	var page userRolesPage
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		page.Users, err = h.service.ListAssignees(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		page.Roles, err = h.service.ListRoles(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.readFailed(w, r, "Veriler yüklenirken hata oluştu", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin_user_roles.html", "Kullanıcı Rolleri", page)
}

func (h *Handler) assignUserRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(r.PostForm.Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		h.redirectWithFlash(w, r, userRolesPath, "error", "Kullanıcı bulunamadı.")
		return
	}
	var roleID int64
	if raw := strings.TrimSpace(r.PostForm.Get("roleId")); raw != "" {
		roleID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || roleID <= 0 {
			h.redirectWithFlash(w, r, userRolesPath, "error", "Rol bulunamadı.")
			return
		}
	}

	if err := h.service.AssignRole(r.Context(), userID, roleID); err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("assign role", slog.Int64("user", userID), slog.Int64("role", roleID), slog.Any("error", err))
		msg := "Rol atanırken hata oluştu: "
		if roleID == 0 {
			msg = "Rol kaldırılırken hata oluştu: "
		}
		h.redirectWithFlash(w, r, userRolesPath, "error", msg+errorText(err))
		return
	}
	if roleID == 0 {
		h.redirectWithFlash(w, r, userRolesPath, "success", "Rol başarıyla kaldırıldı!")
		return
	}
	h.redirectWithFlash(w, r, userRolesPath, "success", "Rol başarıyla atandı!")
}

type errorPage struct {
	Message string
	Back    string
}

func (h *Handler) readFailed(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	if h.interceptor.Respond(w, r) {
		return
	}
	status := http.StatusBadGateway
	msg := prefix + ": " + errorText(err)
	if errors.Is(err, backend.ErrNotFound) {
		status = http.StatusNotFound
		msg = "Rol bulunamadı."
	}
	h.logger.Warn("admin read failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.render(w, r, status, "pages/error.html", "Yönetim Paneli", errorPage{Message: msg, Back: "/admin"})
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.render(w, r, http.StatusNotFound, "pages/error.html", "Roller", errorPage{Message: "Rol bulunamadı.", Back: rolesPath})
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	td := auth.NewTemplateData(r, h.csrf, title, data)
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// errorText is the backend's message when it sent one.
func errorText(err error) string {
	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.Message != "" && apiErr.Status < http.StatusInternalServerError {
			return apiErr.Message
		}
		return fmt.Sprintf("sunucu hatası (%d)", apiErr.Status)
	}
	if errors.Is(err, backend.ErrUnavailable) {
		return "sunucuya ulaşılamadı"
	}
	return "beklenmeyen hata"
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	seen := make(map[int64]bool, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
