package rbac

// HasPermission decides whether p may perform action on module.
//
// Order matters: admin override, then the explicit list (authoritative when
// present, even if empty), then the legacy role table.
func HasPermission(p *Principal, module Module, action Action) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleAdmin {
		return true
	}
	switch src := p.Permissions.(type) {
	case Explicit:
		return src.Contains(G(module, action).String())
	case nil, RoleDefault:
		return roleDefault(p.Role, module, action)
	default:
		return false
	}
}

// Can is HasPermission taking a Grant.
func Can(p *Principal, g Grant) bool {
	return HasPermission(p, g.Module, g.Action)
}

// HasAny reports whether at least one grant is allowed.
func HasAny(p *Principal, grants ...Grant) bool {
	for _, g := range grants {
		if Can(p, g) {
			return true
		}
	}
	return false
}

// HasAll reports whether every grant is allowed.
func HasAll(p *Principal, grants ...Grant) bool {
	for _, g := range grants {
		if !Can(p, g) {
			return false
		}
	}
	return true
}

// IsAdmin reports whether p carries the ADMIN role.
func IsAdmin(p *Principal) bool {
	return p != nil && p.Role == RoleAdmin
}

func roleDefault(role Role, module Module, action Action) bool {
	switch role {
	case RoleResponsible:
		if module == ModuleRoles || module == ModulePermissions {
			return action == ActionView
		}
		switch action {
		case ActionView, ActionCreate, ActionUpdate, ActionDelete:
			return true
		}
		return false
	case RoleTrainer:
		return action == ActionView
	default:
		return false
	}
}
