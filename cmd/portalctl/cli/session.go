package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/rbac"
)

// Exit codes shared by all commands.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitDenied    = 10
	ExitNoSession = 11
)

// SessionStore is the part of auth.Store the session commands use.
type SessionStore interface {
	Initialize(ctx context.Context) error
	Login(ctx context.Context, creds auth.Credentials) (*rbac.Principal, error)
	Logout(ctx context.Context)
	Current() *rbac.Principal
}

// SessionCLI runs the login, whoami, can and logout commands against a
// persisted session.
type SessionCLI struct {
	store SessionStore
}

// NewSessionCLI wraps store.
func NewSessionCLI(store SessionStore) (*SessionCLI, error) {
	if store == nil {
		return nil, errors.New("session cli: store is required")
	}
	return &SessionCLI{store: store}, nil
}

// Output carries the writers and format shared by every command.
type Output struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o Output) normalize() Output {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// LoginOptions defines the flags of the login command.
type LoginOptions struct {
	Output
	Email    string
	Password string
}

// PrincipalSummary is the JSON view of the signed-in user.
type PrincipalSummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// LoginCommand signs in and persists the session.
func (c *SessionCLI) LoginCommand(ctx context.Context, opts LoginOptions) int {
	opts.Output = opts.Output.normalize()
	principal, err := c.store.Login(ctx, auth.Credentials{Email: strings.TrimSpace(opts.Email), Password: opts.Password})
	if err != nil {
		if le, ok := auth.IsLoginError(err); ok {
			_, _ = fmt.Fprintf(opts.Stderr, "login: %s\n", le.Message)
			for _, field := range sortedKeys(le.Fields) {
				_, _ = fmt.Fprintf(opts.Stderr, "  %s: %s\n", field, le.Fields[field])
			}
			return ExitError
		}
		_, _ = fmt.Fprintf(opts.Stderr, "login: %v\n", err)
		return ExitError
	}
	return printPrincipal(opts.Output, "login", principal)
}

// WhoamiCommand prints the persisted principal.
func (c *SessionCLI) WhoamiCommand(ctx context.Context, out Output) int {
	out = out.normalize()
	principal, code := c.restore(ctx, out, "whoami")
	if principal == nil {
		return code
	}
	return printPrincipal(out, "whoami", principal)
}

// CanOptions defines the arguments of the can command.
type CanOptions struct {
	Output
	Grants []string
	All    bool
}

// CanResult is the JSON answer of the can command.
type CanResult struct {
	Allowed bool            `json:"allowed"`
	Grants  map[string]bool `json:"grants"`
}

// CanCommand checks grants against the persisted principal. Without All a
// single matching grant is enough.
func (c *SessionCLI) CanCommand(ctx context.Context, opts CanOptions) int {
	opts.Output = opts.Output.normalize()
	if len(opts.Grants) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "can: at least one module.action is required")
		return ExitError
	}
	grants := make([]rbac.Grant, 0, len(opts.Grants))
	for _, raw := range opts.Grants {
		g, err := rbac.ParseGrant(raw)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "can: %v\n", err)
			return ExitError
		}
		grants = append(grants, g)
	}

	principal, code := c.restore(ctx, opts.Output, "can")
	if principal == nil {
		return code
	}

	result := CanResult{Grants: make(map[string]bool, len(grants))}
	for _, g := range grants {
		result.Grants[g.String()] = rbac.HasPermission(principal, g.Module, g.Action)
	}
	if opts.All {
		result.Allowed = rbac.HasAll(principal, grants...)
	} else {
		result.Allowed = rbac.HasAny(principal, grants...)
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "can: encode json: %v\n", err)
			return ExitError
		}
	} else {
		for _, g := range grants {
			mark := "no"
			if result.Grants[g.String()] {
				mark = "yes"
			}
			_, _ = fmt.Fprintf(opts.Stdout, "%-24s %s\n", g.String(), mark)
		}
	}
	if !result.Allowed {
		return ExitDenied
	}
	return ExitOK
}

// LogoutCommand clears the persisted session. It succeeds when no session
// exists.
func (c *SessionCLI) LogoutCommand(ctx context.Context, out Output) int {
	out = out.normalize()
	if err := c.store.Initialize(ctx); err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "logout: discarded unreadable session: %v\n", err)
	}
	c.store.Logout(ctx)
	_, _ = fmt.Fprintln(out.Stdout, "Çıkış yapıldı")
	return ExitOK
}

func (c *SessionCLI) restore(ctx context.Context, out Output, cmd string) (*rbac.Principal, int) {
	if err := c.store.Initialize(ctx); err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "%s: %v\n", cmd, err)
		return nil, ExitError
	}
	principal := c.store.Current()
	if principal == nil {
		_, _ = fmt.Fprintf(out.Stderr, "%s: not logged in\n", cmd)
		return nil, ExitNoSession
	}
	return principal, ExitOK
}

// Summarize lists the grants the principal resolves across every module.
func Summarize(p *rbac.Principal) PrincipalSummary {
	summary := PrincipalSummary{Permissions: []string{}}
	if p == nil {
		return summary
	}
	summary.ID = p.ID
	summary.Name = p.DisplayName()
	summary.Email = p.Email
	summary.Role = string(p.Role)
	for _, module := range rbac.Modules() {
		for _, action := range rbac.Actions() {
			if rbac.HasPermission(p, module, action) {
				summary.Permissions = append(summary.Permissions, rbac.G(module, action).String())
			}
		}
	}
	return summary
}

func printPrincipal(out Output, cmd string, p *rbac.Principal) int {
	summary := Summarize(p)
	if out.JSONOutput {
		if err := json.NewEncoder(out.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(out.Stderr, "%s: encode json: %v\n", cmd, err)
			return ExitError
		}
		return ExitOK
	}
	_, _ = fmt.Fprintf(out.Stdout, "%s <%s>\n", summary.Name, summary.Email)
	role := summary.Role
	if role == "" {
		role = "-"
	}
	_, _ = fmt.Fprintf(out.Stdout, "Rol: %s\n", role)
	_, _ = fmt.Fprintf(out.Stdout, "İzinler: %s\n", strings.Join(summary.Permissions, ", "))
	return ExitOK
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
