package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
)

// RepositoryPort is the backend surface used by the admin pages.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]backend.Role, error)
	GetRole(ctx context.Context, id int64) (backend.Role, error)
	CreateRole(ctx context.Context, in backend.RoleInput) (backend.Role, error)
	UpdateRole(ctx context.Context, id int64, in backend.RoleInput) (backend.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
	AssignUserRole(ctx context.Context, responsibleID, roleID int64) error
	UnassignUserRole(ctx context.Context, responsibleID int64) error
	ListPermissions(ctx context.Context) ([]backend.Permission, error)
	Resource(path string) *backend.Resource
}

// Service handles role and permission administration.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]backend.Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns one role with its permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (backend.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// SaveRole creates the role when id is zero and updates it otherwise.
func (s *Service) SaveRole(ctx context.Context, id int64, form RoleForm) error {
	var err error
	if id == 0 {
		_, err = s.repo.CreateRole(ctx, form.Input())
	} else {
		_, err = s.repo.UpdateRole(ctx, id, form.Input())
	}
	return err
}

// DeleteRole deletes a role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// Counts returns the number of roles and permissions.
func (s *Service) Counts(ctx context.Context) (roles, permissions int, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.repo.ListRoles(ctx)
		roles = len(list)
		return err
	})
	g.Go(func() error {
		list, err := s.repo.ListPermissions(ctx)
		permissions = len(list)
		return err
	})
	err = g.Wait()
	return roles, permissions, err
}

// PermissionGroups returns every permission grouped by module. Known modules
// come first in navigation order, unknown ones follow alphabetically.
func (s *Service) PermissionGroups(ctx context.Context) ([]PermissionGroup, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return GroupPermissions(perms), nil
}

// GroupPermissions groups perms by module.
func GroupPermissions(perms []backend.Permission) []PermissionGroup {
	byModule := map[string][]backend.Permission{}
	for _, p := range perms {
		byModule[p.Module] = append(byModule[p.Module], p)
	}
	order := map[string]int{}
	for i, m := range rbac.Modules() {
		order[string(m)] = i
	}
	keys := make([]string, 0, len(byModule))
	for k := range byModule {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		ia, okA := order[a]
		ib, okB := order[b]
		switch {
		case okA && okB:
			return ia - ib
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a, b)
	})

	groups := make([]PermissionGroup, 0, len(keys))
	for _, k := range keys {
		list := byModule[k]
		slices.SortFunc(list, func(a, b backend.Permission) int { return int(a.ID - b.ID) })
		groups = append(groups, PermissionGroup{Key: k, Module: ModuleLabel(k), Permissions: list})
	}
	return groups
}

// SyncPermissions makes the role carry exactly want. Missing permissions are
// attached before extra ones are detached.
func (s *Service) SyncPermissions(ctx context.Context, roleID int64, want []int64) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	wanted := make(map[int64]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}
	for _, id := range want {
		if role.HasPermission(id) {
			continue
		}
		if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
			return fmt.Errorf("attach permission %d: %w", id, err)
		}
	}
	for _, p := range role.Permissions {
		if wanted[p.ID] {
			continue
		}
		if err := s.repo.DetachPermission(ctx, roleID, p.ID); err != nil {
			return fmt.Errorf("detach permission %d: %w", p.ID, err)
		}
	}
	return nil
}

// ListAssignees returns every responsible person with their role.
func (s *Service) ListAssignees(ctx context.Context) ([]Assignee, error) {
	page, err := s.repo.Resource("/sorumlu").List(ctx, backend.ListParams{})
	if err != nil {
		return nil, err
	}
	out := make([]Assignee, 0, len(page.Content))
	for _, rec := range page.Content {
		out = append(out, Assignee{
			ID:       rec.ID(),
			Name:     strings.TrimSpace(str(rec["ad"]) + " " + str(rec["soyad"])),
			Email:    str(rec["email"]),
			RoleID:   integer(rec["roleId"]),
			RoleName: str(rec["roleName"]),
		})
	}
	return out, nil
}

// AssignRole assigns roleID to the person, or removes their role when roleID is zero.
func (s *Service) AssignRole(ctx context.Context, responsibleID, roleID int64) error {
	if roleID == 0 {
		return s.repo.UnassignUserRole(ctx, responsibleID)
	}
	return s.repo.AssignUserRole(ctx, responsibleID, roleID)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func integer(v any) int64 {
	return backend.Record{"id": v}.ID()
}
