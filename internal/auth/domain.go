package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
)

// FallbackLoginMessage is shown when a login failure carries no usable text.
const FallbackLoginMessage = "Giriş başarısız"

// ErrInvalidCredentials marks credentials rejected before any backend call.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator exchanges credentials for a token and profile.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
}

// Credentials are the login form values.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// FieldErrors validates the credentials and returns per-field messages.
func (c Credentials) FieldErrors(v *validator.Validate) map[string]string {
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"general": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Email" && fe.Tag() == "email":
			out["Email"] = "Geçerli bir e-posta adresi girin"
		case fe.Field() == "Email":
			out["Email"] = "E-posta gerekli"
		case fe.Field() == "Password":
			out["Password"] = "Şifre gerekli"
		default:
			out[fe.Field()] = fe.Error()
		}
	}
	return out
}

// LoginError is the failure returned by Store.Login.
type LoginError struct {
	Message string
	Fields  map[string]string
	Err     error
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// newLoginError picks the user-facing message: server message, then server
// error code, then the error text, then the generic fallback.
func newLoginError(err error) *LoginError {
	le := &LoginError{Err: err}
	if apiErr, ok := backend.AsAPIError(err); ok {
		switch {
		case apiErr.Message != "":
			le.Message = apiErr.Message
		case apiErr.Code != "":
			le.Message = apiErr.Code
		}
	}
	if le.Message == "" && err != nil {
		le.Message = strings.TrimSpace(err.Error())
	}
	if le.Message == "" {
		le.Message = FallbackLoginMessage
	}
	return le
}

// storedProfile is the persisted form of a principal, without the token.
type storedProfile struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	AdSoyad     string    `json:"adSoyad"`
	Rol         string    `json:"rol"`
	Permissions *[]string `json:"permissions,omitempty"`
}

func profileFromResponse(resp *backend.LoginResponse) storedProfile {
	return storedProfile{
		ID:          resp.ID,
		Email:       resp.Email,
		AdSoyad:     resp.AdSoyad,
		Rol:         resp.Rol,
		Permissions: resp.Permissions,
	}
}

// principal applies every default in one place: unknown roles become
// RoleNone, an absent list selects the role table, a present list (even an
// empty one) is authoritative.
func (sp storedProfile) principal(token string) *rbac.Principal {
	p := &rbac.Principal{
		ID:    sp.ID,
		Name:  sp.AdSoyad,
		Email: sp.Email,
		Role:  rbac.ParseRole(sp.Rol),
		Token: token,
	}
	if sp.Permissions == nil {
		p.Permissions = rbac.RoleDefaults()
	} else {
		p.Permissions = rbac.ExplicitGrants(*sp.Permissions...)
	}
	return p
}

func decodeProfile(raw string) (storedProfile, error) {
	var sp storedProfile
	if strings.TrimSpace(raw) == "" {
		return sp, errors.New("empty profile")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&sp); err != nil {
		return sp, err
	}
	return sp, nil
}

func encodeProfile(sp storedProfile) (string, error) {
	data, err := json.Marshal(sp)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
