package events

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

var skippedPrefixes = []string{"/static/", "/healthz", "/metrics", "/events"}

// PageViews records a PAGE_VIEW for every successful GET page render.
func (r *Recorder) PageViews(next http.Handler) http.Handler {
	if !r.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet || skipped(req.URL.Path) {
			next.ServeHTTP(w, req)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status < http.StatusBadRequest && status != http.StatusSeeOther && status != http.StatusFound {
			r.PageView(req.Context(), req.URL.Path)
		}
	})
}

func skipped(path string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
