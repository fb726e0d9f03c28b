package rbac

import "fmt"

// Route binds a protected path pattern to the grant required to view it.
type Route struct {
	Pattern string
	Grant   Grant
}

// Routes is the route protection table. Patterns use chi syntax.
var Routes = []Route{
	{"/egitim", G(ModuleEducation, ActionView)},
	{"/egitim/new", G(ModuleEducation, ActionCreate)},
	{"/egitim/edit/{id}", G(ModuleEducation, ActionUpdate)},
	{"/egitim/{id}", G(ModuleEducation, ActionView)},
	{"/egitim/{id}/delete", G(ModuleEducation, ActionDelete)},

	{"/egitmen", G(ModuleTrainer, ActionView)},
	{"/egitmen/new", G(ModuleTrainer, ActionCreate)},
	{"/egitmen/edit/{id}", G(ModuleTrainer, ActionUpdate)},
	{"/egitmen/{id}", G(ModuleTrainer, ActionView)},
	{"/egitmen/{id}/delete", G(ModuleTrainer, ActionDelete)},

	{"/sorumlu", G(ModuleResponsible, ActionView)},
	{"/sorumlu/new", G(ModuleResponsible, ActionCreate)},
	{"/sorumlu/edit/{id}", G(ModuleResponsible, ActionUpdate)},
	{"/sorumlu/{id}", G(ModuleResponsible, ActionView)},
	{"/sorumlu/{id}/delete", G(ModuleResponsible, ActionDelete)},

	{"/kategori", G(ModuleCategory, ActionView)},
	{"/kategori/new", G(ModuleCategory, ActionCreate)},
	{"/kategori/edit/{id}", G(ModuleCategory, ActionUpdate)},
	{"/kategori/{id}", G(ModuleCategory, ActionView)},
	{"/kategori/{id}/delete", G(ModuleCategory, ActionDelete)},

	{"/paydas", G(ModuleStakeholder, ActionView)},
	{"/paydas/new", G(ModuleStakeholder, ActionCreate)},
	{"/paydas/edit/{id}", G(ModuleStakeholder, ActionUpdate)},
	{"/paydas/{id}", G(ModuleStakeholder, ActionView)},
	{"/paydas/{id}/delete", G(ModuleStakeholder, ActionDelete)},

	{"/proje", G(ModuleProject, ActionView)},
	{"/proje/new", G(ModuleProject, ActionCreate)},
	{"/proje/edit/{id}", G(ModuleProject, ActionUpdate)},
	{"/proje/{id}", G(ModuleProject, ActionView)},
	{"/proje/{id}/delete", G(ModuleProject, ActionDelete)},

	{"/faaliyet", G(ModuleActivity, ActionView)},
	{"/faaliyet/new", G(ModuleActivity, ActionCreate)},
	{"/faaliyet/edit/{id}", G(ModuleActivity, ActionUpdate)},
	{"/faaliyet/{id}", G(ModuleActivity, ActionView)},
	{"/faaliyet/{id}/delete", G(ModuleActivity, ActionDelete)},

	{"/payments", G(ModulePayment, ActionView)},
	{"/payments/create", G(ModulePayment, ActionCreate)},
	{"/payments/calculate-total", G(ModulePayment, ActionCreate)},
	{"/payments/{id}/edit", G(ModulePayment, ActionUpdate)},
	{"/payments/{id}/view", G(ModulePayment, ActionView)},
	{"/payments/{id}/delete", G(ModulePayment, ActionDelete)},

	{"/logs", G(ModuleLogs, ActionView)},
	{"/logs/api", G(ModuleLogs, ActionView)},
	{"/logs/activity", G(ModuleLogs, ActionView)},
	{"/logs/errors", G(ModuleLogs, ActionView)},
	{"/logs/performance", G(ModuleLogs, ActionView)},
	{"/logs/frontend", G(ModuleLogs, ActionView)},
	{"/logs/{category}/export.csv", G(ModuleLogs, ActionView)},

	{"/admin", G(ModuleRoles, ActionView)},
	{"/admin/roles", G(ModuleRoles, ActionView)},
	{"/admin/roles/create", G(ModuleRoles, ActionCreate)},
	{"/admin/roles/{id}/edit", G(ModuleRoles, ActionUpdate)},
	{"/admin/roles/{id}/delete", G(ModuleRoles, ActionDelete)},
	{"/admin/permissions", G(ModulePermissions, ActionView)},
	{"/admin/role-permissions", G(ModuleRoles, ActionManage)},
	{"/admin/user-roles", G(ModuleResponsible, ActionUpdate)},
}

var routeIndex = buildRouteIndex(Routes)

func buildRouteIndex(routes []Route) map[string]Grant {
	idx := make(map[string]Grant, len(routes))
	for _, r := range routes {
		if _, dup := idx[r.Pattern]; dup {
			panic(fmt.Sprintf("rbac: duplicate route declaration %s", r.Pattern))
		}
		idx[r.Pattern] = r.Grant
	}
	return idx
}

// Lookup returns the grant declared for a pattern.
func Lookup(pattern string) (Grant, bool) {
	g, ok := routeIndex[pattern]
	return g, ok
}

// MustLookup is Lookup that panics on undeclared patterns. Used while mounting routes.
func MustLookup(pattern string) Grant {
	g, ok := Lookup(pattern)
	if !ok {
		panic(fmt.Sprintf("rbac: route %s has no protection declaration", pattern))
	}
	return g
}
