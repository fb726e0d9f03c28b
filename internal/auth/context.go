package auth

import (
	"context"
	"sync"

	"github.com/akademi/egitim-portal/internal/shared"
)

type requestStateKey struct{}

// Redirect is the navigation decided by the interceptor for this request.
type Redirect struct {
	Path   string
	Notice string
}

type requestState struct {
	store *Store
	page  string

	mu       sync.Mutex
	redirect *Redirect
}

func (st *requestState) setRedirect(r Redirect) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.redirect == nil {
		st.redirect = &r
	}
}

func (st *requestState) pending() *Redirect {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.redirect == nil {
		return nil
	}
	r := *st.redirect
	return &r
}

// ContextWithStore binds store and the rendered page to ctx.
func ContextWithStore(ctx context.Context, store *Store, page string) context.Context {
	ctx = shared.ContextWithPagePath(ctx, page)
	return context.WithValue(ctx, requestStateKey{}, &requestState{store: store, page: page})
}

// StoreFromContext returns the request's store, or nil.
func StoreFromContext(ctx context.Context) *Store {
	if st := stateFromContext(ctx); st != nil {
		return st.store
	}
	return nil
}

// TokenFromContext is a backend.TokenSource over the request's store.
func TokenFromContext(ctx context.Context) string {
	if store := StoreFromContext(ctx); store != nil {
		return store.Token()
	}
	return ""
}

// PendingRedirect returns the redirect the interceptor decided, if any.
func PendingRedirect(ctx context.Context) *Redirect {
	if st := stateFromContext(ctx); st != nil {
		return st.pending()
	}
	return nil
}

func stateFromContext(ctx context.Context) *requestState {
	st, _ := ctx.Value(requestStateKey{}).(*requestState)
	return st
}
