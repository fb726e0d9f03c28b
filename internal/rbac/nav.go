package rbac

// NavItem is one navigation entry gated by a grant.
type NavItem struct {
	Label string
	Path  string
	Grant Grant
	// Accent marks the administrative entries rendered with a highlight.
	Accent string
}

// DefaultNav is the main navigation bar.
var DefaultNav = []NavItem{
	{Label: "Eğitimler", Path: "/egitim", Grant: G(ModuleEducation, ActionView)},
	{Label: "Eğitmenler", Path: "/egitmen", Grant: G(ModuleTrainer, ActionView)},
	{Label: "Sorumlular", Path: "/sorumlu", Grant: G(ModuleResponsible, ActionView)},
	{Label: "Kategoriler", Path: "/kategori", Grant: G(ModuleCategory, ActionView)},
	{Label: "Paydaşlar", Path: "/paydas", Grant: G(ModuleStakeholder, ActionView)},
	{Label: "Projeler", Path: "/proje", Grant: G(ModuleProject, ActionView)},
	{Label: "Faaliyetler", Path: "/faaliyet", Grant: G(ModuleActivity, ActionView)},
	{Label: "Ödemeler", Path: "/payments", Grant: G(ModulePayment, ActionView)},
	{Label: "Log Yönetimi", Path: "/logs", Grant: G(ModuleLogs, ActionView), Accent: "logs"},
	{Label: "Yönetim Paneli", Path: "/admin", Grant: G(ModuleRoles, ActionView), Accent: "admin"},
}

// FilterNav returns the items p is allowed to see, preserving order.
func FilterNav(p *Principal, items []NavItem) []NavItem {
	visible := make([]NavItem, 0, len(items))
	for _, item := range items {
		if Can(p, item.Grant) {
			visible = append(visible, item)
		}
	}
	return visible
}
