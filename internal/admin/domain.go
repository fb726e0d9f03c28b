// Package admin serves the role and permission management pages.
package admin

import (
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
)

var moduleLabels = map[string]string{
	string(rbac.ModuleEducation):   "Eğitimler",
	string(rbac.ModuleTrainer):     "Eğitmenler",
	string(rbac.ModuleResponsible): "Sorumlular",
	string(rbac.ModuleCategory):    "Kategoriler",
	string(rbac.ModuleStakeholder): "Paydaşlar",
	string(rbac.ModuleProject):     "Projeler",
	string(rbac.ModuleActivity):    "Faaliyetler",
	string(rbac.ModulePayment):     "Ödemeler",
	string(rbac.ModuleLogs):        "Log Yönetimi",
	string(rbac.ModuleRoles):       "Rol Yönetimi",
	string(rbac.ModulePermissions): "İzin Yönetimi",
}

// ModuleLabel returns the display name of a permission module.
func ModuleLabel(module string) string {
	if label, ok := moduleLabels[module]; ok {
		return label
	}
	return module
}

// PermissionGroup is the permissions of one module.
type PermissionGroup struct {
	Key         string
	Module      string
	Permissions []backend.Permission
}

// Assignee is a responsible person together with the role assigned to them.
type Assignee struct {
	ID       int64
	Name     string
	Email    string
	RoleID   int64
	RoleName string
}

// RoleForm is the submitted role.
type RoleForm struct {
	Name          string `validate:"required,max=100"`
	Description   string `validate:"max=1000"`
	PermissionIDs []int64
}

// Input converts the form to the backend body.
func (f RoleForm) Input() backend.RoleInput {
	ids := f.PermissionIDs
	if ids == nil {
		ids = []int64{}
	}
	return backend.RoleInput{Name: f.Name, Description: f.Description, PermissionIDs: ids}
}

// Link is an entry on the admin dashboard.
type Link struct {
	Title       string
	Description string
	Path        string
	Grant       string
}

// Links lists the admin areas in dashboard order.
var Links = []Link{
	{Title: "Rol Yönetimi", Description: "Sistem rollerini görüntüle ve yönet", Path: "/admin/roles", Grant: rbac.G(rbac.ModuleRoles, rbac.ActionView).String()},
	{Title: "İzin Yönetimi", Description: "Sistem izinlerini görüntüle ve yönet", Path: "/admin/permissions", Grant: rbac.G(rbac.ModulePermissions, rbac.ActionView).String()},
	{Title: "Rol-İzin Ataması", Description: "Rollere izin ata veya kaldır", Path: "/admin/role-permissions", Grant: rbac.G(rbac.ModuleRoles, rbac.ActionManage).String()},
	{Title: "Kullanıcı-Rol Ataması", Description: "Kullanıcılara rol ata", Path: "/admin/user-roles", Grant: rbac.G(rbac.ModuleResponsible, rbac.ActionUpdate).String()},
}
