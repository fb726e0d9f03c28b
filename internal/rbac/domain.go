package rbac

import (
	"errors"
	"sort"
	"strings"
)

// Role is the coarse role carried by a principal.
type Role string

const (
	RoleNone        Role = ""
	RoleAdmin       Role = "ADMIN"
	RoleResponsible Role = "SORUMLU"
	RoleTrainer     Role = "EGITMEN"
)

// ParseRole maps a wire value onto the closed role set. Unknown values yield RoleNone.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleResponsible:
		return RoleResponsible
	case RoleTrainer:
		return RoleTrainer
	default:
		return RoleNone
	}
}

// Module names a functional area of the system.
type Module string

const (
	ModuleEducation   Module = "education"
	ModuleTrainer     Module = "trainer"
	ModuleResponsible Module = "responsible"
	ModuleCategory    Module = "category"
	ModuleStakeholder Module = "stakeholder"
	ModuleProject     Module = "project"
	ModuleActivity    Module = "activity"
	ModulePayment     Module = "payment"
	ModuleLogs        Module = "logs"
	ModuleRoles       Module = "roles"
	ModulePermissions Module = "permissions"
)

// Modules lists every module in display order.
func Modules() []Module {
	return []Module{
		ModuleEducation,
		ModuleTrainer,
		ModuleResponsible,
		ModuleCategory,
		ModuleStakeholder,
		ModuleProject,
		ModuleActivity,
		ModulePayment,
		ModuleLogs,
		ModuleRoles,
		ModulePermissions,
	}
}

// Action names an operation inside a module.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Actions lists every action.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionManage}
}

// ErrMalformedGrant is returned by ParseGrant for strings not shaped "module.action".
var ErrMalformedGrant = errors.New("rbac: malformed grant")

// Grant is one (module, action) capability.
type Grant struct {
	Module Module
	Action Action
}

// G builds a Grant.
func G(module Module, action Action) Grant {
	return Grant{Module: module, Action: action}
}

// String renders the grant in its wire form "module.action".
func (g Grant) String() string {
	return string(g.Module) + "." + string(g.Action)
}

// ParseGrant splits "module.action" on the first dot.
func ParseGrant(raw string) (Grant, error) {
	module, action, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || module == "" || action == "" {
		return Grant{}, ErrMalformedGrant
	}
	return Grant{Module: Module(module), Action: Action(action)}, nil
}

// PermissionSource says where a principal's capabilities come from. It is
// either Explicit (server-supplied list) or RoleDefault (legacy role table).
type PermissionSource interface {
	permissionSource()
}

// Explicit is the server-supplied grant list. An empty Explicit denies everything.
type Explicit struct {
	grants map[string]struct{}
}

// ExplicitGrants builds an Explicit source from wire strings.
func ExplicitGrants(grants ...string) Explicit {
	set := make(map[string]struct{}, len(grants))
	for _, g := range grants {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		set[g] = struct{}{}
	}
	return Explicit{grants: set}
}

func (Explicit) permissionSource() {}

// Contains reports whether the list holds the wire string.
func (e Explicit) Contains(grant string) bool {
	_, ok := e.grants[grant]
	return ok
}

// Len returns the number of distinct grants.
func (e Explicit) Len() int {
	return len(e.grants)
}

// Grants returns the list sorted.
func (e Explicit) Grants() []string {
	out := make([]string, 0, len(e.grants))
	for g := range e.grants {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// RoleDefault means no explicit list was supplied; the role table applies.
type RoleDefault struct{}

func (RoleDefault) permissionSource() {}

// RoleDefaults returns the RoleDefault source.
func RoleDefaults() RoleDefault {
	return RoleDefault{}
}

// Principal describes the authenticated actor.
type Principal struct {
	ID          int64
	Name        string
	Email       string
	Role        Role
	Permissions PermissionSource
	Token       string
}

// DisplayName returns the name, falling back to the email.
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Clone returns a shallow copy. The Explicit set is shared; it is never mutated.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
