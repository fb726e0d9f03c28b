package admin

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/testing/portaltest"
)

func newRouter(t *testing.T, opts ...portaltest.Option) (*portaltest.Env, http.Handler) {
	t.Helper()
	env := portaltest.New(t, opts...)
	h := NewHandler(nil, NewService(env.Client), env.Templates, env.CSRF, env.Guard, env.Interceptor)
	return env, env.Router(h.MountRoutes)
}

func asAdmin() portaltest.Option {
	return portaltest.WithRole(string(rbac.RoleAdmin))
}

var catalog = []map[string]any{
	{"id": 1, "module": "education", "action": "view", "description": "Eğitimleri görüntüle"},
	{"id": 2, "module": "education", "action": "create"},
	{"id": 4, "module": "roles", "action": "manage"},
	{"id": 5, "module": "payment", "action": "view"},
}

func replyPermissions(w http.ResponseWriter, _ *http.Request) {
	portaltest.Reply(w, http.StatusOK, catalog)
}

func TestDashboardCountsAndLinks(t *testing.T) {
	env, router := newRouter(t)
	env.Backend.On(http.MethodGet, "/api/roles", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusOK, []any{map[string]any{"id": 1, "name": "ADMIN"}, map[string]any{"id": 2, "name": "EDITOR"}})
	})
	env.Backend.On(http.MethodGet, "/api/permissions", replyPermissions)

	rec := portaltest.Get(router, "/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>2</strong>")
	assert.Contains(t, body, "<strong>4</strong>")
	assert.Contains(t, body, "Rol Yönetimi")
	assert.Contains(t, body, "Kullanıcı-Rol Ataması")
	assert.NotContains(t, body, "Rol-İzin Ataması")
}

func TestResponsibleCannotCreateRole(t *testing.T) {
	env, router := newRouter(t)
	rec := portaltest.Get(router, "/admin/roles/create")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, rbac.UnauthorizedPath, rec.Header().Get("Location"))
	assert.Empty(t, env.Backend.Calls())
}

func TestCreateRoleSendsPermissionIDs(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	var got map[string]any
	env.Backend.On(http.MethodPost, "/api/roles", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		portaltest.Reply(w, http.StatusCreated, map[string]any{"id": 9, "name": "EDITOR"})
	})

	rec := portaltest.Post(router, "/admin/roles/create", url.Values{
		"name":        {"  EDITOR "},
		"permissions": {"2", "5", "2", "x"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/roles", rec.Header().Get("Location"))
	assert.Equal(t, "EDITOR", got["name"])
	assert.Equal(t, "", got["description"])
	assert.Equal(t, []any{float64(2), float64(5)}, got["permissionIds"])

	flash := env.Session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Rol başarıyla kaydedildi", flash.Message)
}

func TestCreateRoleValidation(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	env.Backend.On(http.MethodGet, "/api/permissions", replyPermissions)

	rec := portaltest.Post(router, "/admin/roles/create", url.Values{"permissions": {"1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Rol adı zorunludur")
	assert.Contains(t, body, `value="1" checked`)
	assert.Equal(t, []string{"GET /api/permissions"}, env.Backend.Calls())
}

func TestEditRolePrefills(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	env.Backend.On(http.MethodGet, "/api/roles/3", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusOK, map[string]any{
			"id": 3, "name": "EDITOR", "description": "İçerik",
			"permissions": []any{catalog[3]},
		})
	})
	env.Backend.On(http.MethodGet, "/api/permissions", replyPermissions)

	rec := portaltest.Get(router, "/admin/roles/3/edit")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="EDITOR"`)
	assert.Contains(t, body, `action="/admin/roles/3/edit"`)
	assert.Contains(t, body, `value="5" checked`)
	assert.NotContains(t, body, `value="1" checked`)
	assert.Contains(t, body, "Eğitimler")
	assert.Contains(t, body, "Ödemeler")
}

func TestEditRoleNotFound(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	env.Backend.On(http.MethodGet, "/api/roles/3", portaltest.Status(http.StatusNotFound))

	rec := portaltest.Get(router, "/admin/roles/3/edit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rol bulunamadı.")
}

func TestUpdateRoleBackendRejection(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	env.Backend.On(http.MethodPut, "/api/roles/3", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusBadRequest, map[string]any{"message": "Bu isimde bir rol zaten var"})
	})
	env.Backend.On(http.MethodGet, "/api/permissions", replyPermissions)

	rec := portaltest.Post(router, "/admin/roles/3/edit", url.Values{"name": {"ADMIN"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kayıt sırasında hata oluştu: Bu isimde bir rol zaten var")
}

func TestDeleteRoleFlashesBackendMessage(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	env.Backend.On(http.MethodDelete, "/api/roles/3", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusConflict, map[string]any{"message": "Rol kullanıcılara atanmış"})
	})

	rec := portaltest.Post(router, "/admin/roles/3/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/roles", rec.Header().Get("Location"))
	flash := env.Session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
	assert.Equal(t, "Rol silinirken hata oluştu: Rol kullanıcılara atanmış", flash.Message)
}

func TestPermissionListGroupsByModule(t *testing.T) {
	env, router := newRouter(t)
	env.Backend.On(http.MethodGet, "/api/permissions", replyPermissions)

	rec := portaltest.Get(router, "/admin/permissions")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<code>education.view</code>")
	assert.Contains(t, body, "Eğitimleri görüntüle")
	assert.Contains(t, body, "Rol Yönetimi")
}

func TestRolePermissionsShowsSelectedRole(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	env.Backend.On(http.MethodGet, "/api/roles", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusOK, []any{map[string]any{"id": 3, "name": "EDITOR"}})
	})
	env.Backend.On(http.MethodGet, "/api/roles/3", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusOK, map[string]any{"id": 3, "name": "EDITOR", "permissions": []any{catalog[0]}})
	})
	env.Backend.On(http.MethodGet, "/api/permissions", replyPermissions)

	rec := portaltest.Get(router, "/admin/role-permissions?role=3")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="3" selected>EDITOR</option>`)
	assert.Contains(t, body, `name="role" value="3"`)
	assert.Contains(t, body, `value="1" checked`)

	rec = portaltest.Get(router, "/admin/role-permissions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `name="permissions"`)
}

func TestSaveRolePermissionsAppliesDiff(t *testing.T) {
	env, router := newRouter(t, asAdmin())
	env.Backend.On(http.MethodGet, "/api/roles/3", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusOK, map[string]any{"id": 3, "permissions": []any{catalog[0], catalog[1]}})
	})
	ok := portaltest.Status(http.StatusOK)
	env.Backend.On(http.MethodPost, "/api/roles/3/permissions/4", ok)
	env.Backend.On(http.MethodDelete, "/api/roles/3/permissions/1", ok)

	rec := portaltest.Post(router, "/admin/role-permissions", url.Values{"role": {"3"}, "permissions": {"2", "4"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/role-permissions?role=3", rec.Header().Get("Location"))
	assert.Equal(t, []string{
		"GET /api/roles/3",
		"POST /api/roles/3/permissions/4",
		"DELETE /api/roles/3/permissions/1",
	}, env.Backend.Calls())

	flash := env.Session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "İzinler başarıyla güncellendi!", flash.Message)
}

func TestUserRolesAssignAndRemove(t *testing.T) {
	env, router := newRouter(t)
	env.Backend.On(http.MethodGet, "/sorumlu", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusOK, []any{
			map[string]any{"id": 4, "ad": "Ayşe", "soyad": "Kaya", "email": "ayse@akademi.com", "roleId": 2, "roleName": "EDITOR"},
			map[string]any{"id": 5, "ad": "Mehmet", "soyad": "Demir"},
		})
	})
	env.Backend.On(http.MethodGet, "/api/roles", func(w http.ResponseWriter, r *http.Request) {
		portaltest.Reply(w, http.StatusOK, []any{map[string]any{"id": 2, "name": "EDITOR"}, map[string]any{"id": 3, "name": "VIEWER"}})
	})
	env.Backend.On(http.MethodPut, "/api/roles/assign/5/3", portaltest.Status(http.StatusOK))
	env.Backend.On(http.MethodDelete, "/api/roles/unassign/4", portaltest.Status(http.StatusOK))

	rec := portaltest.Get(router, "/admin/user-roles")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ayşe Kaya")
	assert.Contains(t, body, `<option value="2" selected>EDITOR</option>`)
	assert.Contains(t, body, "Atanmamış")

	rec = portaltest.Post(router, "/admin/user-roles", url.Values{"userId": {"5"}, "roleId": {"3"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	flash := env.Session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Rol başarıyla atandı!", flash.Message)

	rec = portaltest.Post(router, "/admin/user-roles", url.Values{"userId": {"4"}, "roleId": {""}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	flash = env.Session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Rol başarıyla kaldırıldı!", flash.Message)

	assert.Contains(t, env.Backend.Calls(), "PUT /api/roles/assign/5/3")
	assert.Contains(t, env.Backend.Calls(), "DELETE /api/roles/unassign/4")
}

func TestGroupPermissionsOrder(t *testing.T) {
	groups := GroupPermissions([]backend.Permission{
		{ID: 9, Module: "reports", Action: "view"},
		{ID: 4, Module: "roles", Action: "manage"},
		{ID: 2, Module: "education", Action: "create"},
		{ID: 1, Module: "education", Action: "view"},
	})
	require.Len(t, groups, 3)
	assert.Equal(t, "Eğitimler", groups[0].Module)
	assert.Equal(t, int64(1), groups[0].Permissions[0].ID)
	assert.Equal(t, "Rol Yönetimi", groups[1].Module)
	assert.Equal(t, "reports", groups[2].Module)
}
