package logs

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
)

const (
	pageSize      = 20
	exportSize    = 500
	longTextLimit = 120

	exportPattern    = "/logs/{category}/export.csv"
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler serves the log pages.
type Handler struct {
	logger      *slog.Logger
	client      *backend.Client
	templates   *view.Engine
	csrf        *shared.CSRFManager
	guard       rbac.Guard
	interceptor *auth.Interceptor
	validator   *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, client *backend.Client, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Guard, interceptor *auth.Interceptor) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		client:      client,
		templates:   templates,
		csrf:        csrf,
		guard:       guard,
		interceptor: interceptor,
		validator:   validator.New(),
	}
}

// MountRoutes registers the dashboard, one page per category and the CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireRoute("/logs")).Get("/logs", h.dashboard)
	for _, c := range Categories {
		r.With(h.guard.RequireRoute(c.Path())).Get(c.Path(), h.list(c))
	}
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.With(h.guard.RequireRoute(exportPattern), limiter).Get(exportPattern, h.export)
}

type card struct {
	Title       string
	Description string
	Path        string
	Total       int
	Failed      bool
}

type dashboardPage struct {
	Cards []card
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	cards := make([]card, len(Categories))
	var g errgroup.Group
	for i, c := range Categories {
		i, c := i, c
		cards[i] = card{Title: c.Title, Description: c.Description, Path: c.Path()}
		g.Go(func() error {
			page, err := h.client.ListLogs(r.Context(), c.Key, backend.ListParams{Size: 1})
			if err != nil {
				cards[i].Failed = true
				return fmt.Errorf("count %s logs: %w", c.Key, err)
			}
			cards[i].Total = page.TotalElements
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("log dashboard", slog.Any("error", err))
	}
	h.render(w, r, http.StatusOK, "pages/logs_dashboard.html", "Log Yönetimi", dashboardPage{Cards: cards})
}

type cell struct {
	Text  string
	Badge string
}

type listPage struct {
	Category   Category
	Path       string
	Rows       [][]cell
	Pagination shared.Pagination
	Filters    map[string]string
	Error      string
}

// PageURL links to page n keeping the current filters.
func (p listPage) PageURL(n int) string {
	q := filterQuery(p.Filters)
	q.Set("page", strconv.Itoa(n))
	return p.Path + "?" + q.Encode()
}

// ExportURL links to the CSV export of the filtered stream.
func (p listPage) ExportURL() string {
	q := filterQuery(p.Filters)
	if len(q) == 0 {
		return p.Path + "/export.csv"
	}
	return p.Path + "/export.csv?" + q.Encode()
}

func (h *Handler) list(c Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		if page < 1 {
			page = 1
		}
		data := listPage{Category: c, Path: c.Path()}
		filters, params, problem := h.parseFilters(c, q)
		data.Filters = filters
		data.Pagination = shared.NewPagination(page, pageSize, 0)
		if problem != "" {
			data.Error = problem
			h.render(w, r, http.StatusBadRequest, "pages/logs_list.html", c.Title, data)
			return
		}

		result, err := h.client.ListLogs(r.Context(), c.Key, backend.ListParams{Page: page - 1, Size: pageSize, Filters: params})
		if err != nil {
			if h.interceptor.Respond(w, r) {
				return
			}
			h.logger.Warn("load logs", slog.String("category", string(c.Key)), slog.Any("error", err))
			data.Error = "Loglar yüklenirken bir hata oluştu. Lütfen daha sonra tekrar deneyin."
			h.render(w, r, http.StatusBadGateway, "pages/logs_list.html", c.Title, data)
			return
		}

		data.Rows = make([][]cell, 0, len(result.Content))
		for _, rec := range result.Content {
			row := make([]cell, 0, len(c.Columns))
			for _, col := range c.Columns {
				row = append(row, formatCell(col, rec, true))
			}
			data.Rows = append(data.Rows, row)
		}
		data.Pagination = shared.NewPagination(page, pageSize, result.TotalElements)
		h.render(w, r, http.StatusOK, "pages/logs_list.html", c.Title, data)
	}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	c, ok := Lookup(chi.URLParam(r, "category"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, params, problem := h.parseFilters(c, r.URL.Query())
	if problem != "" {
		http.Error(w, problem, http.StatusBadRequest)
		return
	}
	result, err := h.client.ListLogs(r.Context(), c.Key, backend.ListParams{Size: exportSize, Filters: params})
	if err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("export logs", slog.String("category", string(c.Key)), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"logs-%s.csv\"", c.Key))
	writer := csv.NewWriter(w)
	header := make([]string, 0, len(c.Columns))
	for _, col := range c.Columns {
		header = append(header, col.Label)
	}
	if err := writer.Write(header); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
		return
	}
	for _, rec := range result.Content {
		row := make([]string, 0, len(c.Columns))
		for _, col := range c.Columns {
			row = append(row, formatCell(col, rec, false).Text)
		}
		if err := writer.Write(row); err != nil {
			h.logger.Warn("write csv", slog.Any("error", err))
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters returns the values echoed back to the form, the parameters
// sent to the backend and a user-facing problem, if any.
func (h *Handler) parseFilters(c Category, q url.Values) (map[string]string, map[string]string, string) {
	display := map[string]string{}
	params := map[string]string{}
	for _, f := range c.Filters {
		v := strings.TrimSpace(q.Get(f.Name))
		if v == "" {
			continue
		}
		display[f.Name] = v
		switch f.Type {
		case "number":
			if h.validator.Var(v, "number") != nil {
				return display, nil, f.Label + " sayı olmalıdır"
			}
			params[f.param()] = v
		case "date":
			if h.validator.Var(v, "datetime=2006-01-02") != nil {
				return display, nil, f.Label + " geçerli bir tarih olmalıdır"
			}
			if f.Name == "endDate" {
				params[f.param()] = v + "T23:59:59"
			} else {
				params[f.param()] = v + "T00:00:00"
			}
		default:
			params[f.param()] = v
		}
	}
	if start, end := display["startDate"], display["endDate"]; start != "" && end != "" && end < start {
		return display, nil, "Bitiş tarihi başlangıç tarihinden önce olamaz"
	}
	return display, params, ""
}

func formatCell(col Column, rec backend.Record, truncate bool) cell {
	raw := view.Field(rec, col.Key)
	switch col.kind {
	case columnDateTime:
		return cell{Text: view.FormatDateTime(raw)}
	case columnStatus:
		return cell{Text: view.Display(raw), Badge: statusClass(raw)}
	case columnLong:
		text := view.Display(raw)
		if truncate && utf8.RuneCountInString(text) > longTextLimit {
			text = string([]rune(text)[:longTextLimit]) + "…"
		}
		return cell{Text: text}
	}
	return cell{Text: view.Display(raw)}
}

func statusClass(raw any) string {
	code, ok := raw.(float64)
	switch {
	case !ok:
		return "badge-secondary"
	case code >= 500:
		return "badge-danger"
	case code >= 400:
		return "badge-warning"
	case code >= 200 && code < 300:
		return "badge-success"
	}
	return "badge-info"
}

func filterQuery(filters map[string]string) url.Values {
	q := url.Values{}
	for k, v := range filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

func rateLimitKey(r *http.Request) (string, error) {
	if store := auth.StoreFromContext(r.Context()); store != nil {
		if p := store.Current(); p != nil && p.ID != 0 {
			return "user:" + strconv.FormatInt(p.ID, 10), nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	td := auth.NewTemplateData(r, h.csrf, title, data)
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
