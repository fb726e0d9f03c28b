package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Role is an administrative role with its attached permissions.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// HasPermission reports whether the role carries permission id.
func (r Role) HasPermission(id int64) bool {
	for _, p := range r.Permissions {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Permission is one module/action capability known to the backend.
type Permission struct {
	ID          int64  `json:"id"`
	Module      string `json:"module"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// Key renders the permission in "module.action" form.
func (p Permission) Key() string {
	return p.Module + "." + p.Action
}

// RoleInput is the body for creating or updating a role.
type RoleInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	PermissionIDs []int64 `json:"permissionIds"`
}

// ListRoles returns every role.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	err := c.do(ctx, http.MethodGet, "/api/roles", nil, nil, &out)
	return out, err
}

// GetRole fetches a role by id.
func (c *Client) GetRole(ctx context.Context, id int64) (Role, error) {
	var out Role
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/roles/%d", id), nil, nil, &out)
	return out, err
}

// CreateRole creates a role.
func (c *Client) CreateRole(ctx context.Context, in RoleInput) (Role, error) {
	var out Role
	err := c.do(ctx, http.MethodPost, "/api/roles", nil, in, &out)
	return out, err
}

// UpdateRole updates a role.
func (c *Client) UpdateRole(ctx context.Context, id int64, in RoleInput) (Role, error) {
	var out Role
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/roles/%d", id), nil, in, &out)
	return out, err
}

// DeleteRole deletes a role.
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/roles/%d", id), nil, nil, nil)
}

// AttachPermission adds a permission to a role.
func (c *Client) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/roles/%d/permissions/%d", roleID, permissionID), nil, nil, nil)
}

// DetachPermission removes a permission from a role.
func (c *Client) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/roles/%d/permissions/%d", roleID, permissionID), nil, nil, nil)
}

// AssignUserRole assigns a role to a responsible person.
func (c *Client) AssignUserRole(ctx context.Context, responsibleID, roleID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/roles/assign/%d/%d", responsibleID, roleID), nil, nil, nil)
}

// UnassignUserRole removes the role of a responsible person.
func (c *Client) UnassignUserRole(ctx context.Context, responsibleID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/roles/unassign/%d", responsibleID), nil, nil, nil)
}

// ListPermissions returns every permission.
func (c *Client) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	err := c.do(ctx, http.MethodGet, "/api/permissions", nil, nil, &out)
	return out, err
}
