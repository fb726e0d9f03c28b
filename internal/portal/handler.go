package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/events"
	"github.com/akademi/egitim-portal/internal/platform/httpx"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
)

// CalculateTotalPath previews a payment total through the backend.
const CalculateTotalPath = "/payments/calculate-total"

// Handler serves the resource pages.
type Handler struct {
	logger      *slog.Logger
	client      *backend.Client
	templates   *view.Engine
	csrf        *shared.CSRFManager
	guard       rbac.Guard
	interceptor *auth.Interceptor
	recorder    *events.Recorder
	validator   *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, client *backend.Client, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Guard, interceptor *auth.Interceptor, recorder *events.Recorder) *Handler {
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
		recorder:    recorder,
		validator:   validator.New(),
	}
}

// MountRoutes registers every catalog resource behind its route guard.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, res := range Catalog {
		h.mountResource(r, res)
	}
	r.With(h.guard.RequireRoute(CalculateTotalPath)).Post(CalculateTotalPath, h.calculateTotal)
}

func (h *Handler) mountResource(r chi.Router, res *Resource) {
	rt := res.Routes
	r.With(h.guard.RequireRoute(rt.List)).Get(rt.List, h.list(res))
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoute(rt.New))
		r.Get(rt.New, h.newForm(res))
		r.Post(rt.New, h.create(res))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoute(rt.Edit))
		r.Get(rt.Edit, h.editForm(res))
		r.Post(rt.Edit, h.update(res))
	})
	r.With(h.guard.RequireRoute(rt.Detail)).Get(rt.Detail, h.detail(res))
	r.With(h.guard.RequireRoute(rt.Delete)).Post(rt.Delete, h.remove(res))
}

func (h *Handler) list(res *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		if page < 1 {
			page = 1
		}
		size := res.PageSize
		if size <= 0 {
			size = shared.DefaultPageSize
		}
		sort := q.Get("sort")
		if !validSort(res, sort) {
			sort = res.DefaultSort
		}
		filters := map[string]string{}
		for _, f := range res.Filters {
			if v := strings.TrimSpace(q.Get(f.Name)); v != "" {
				filters[f.Name] = v
			}
		}
		params := backend.ListParams{Page: page - 1, Size: size, Sort: sort, Filters: filters}

		var (
			result  backend.Page[backend.Record]
			options map[string][]Option
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			api := h.client.Resource(res.API)
			var err error
			if res.Paged {
				result, err = api.Page(ctx, params)
			} else {
				result, err = api.List(ctx, params)
			}
			return err
		})
		g.Go(func() error {
			var err error
			options, err = h.loadOptions(ctx, filterRefs(res))
			return err
		})
		if err := g.Wait(); err != nil {
			h.readFailed(w, r, res, err)
			return
		}

		records := result.Content
		total := result.TotalElements
		if len(records) > size {
			// The backend ignored paging and sent the whole collection.
			total = len(records)
			start := min((page-1)*size, len(records))
			records = records[start:min(start+size, len(records))]
		}
		data := listPage{
			Resource:      res,
			Rows:          buildRows(res, records),
			Pagination:    shared.NewPagination(page, size, total),
			Sort:          sort,
			Filters:       filters,
			FilterOptions: options,
		}
		h.render(w, r, http.StatusOK, "pages/entity_list.html", res.Title, data)
	}
}

func (h *Handler) detail(res *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.recordID(w, r, res)
		if !ok {
			return
		}
		rec, err := h.client.Resource(res.API).Get(r.Context(), id)
		if err != nil {
			h.readFailed(w, r, res, err)
			return
		}
		data := buildDetail(res, rec)
		h.render(w, r, http.StatusOK, "pages/entity_detail.html", data.Title, data)
	}
}

func (h *Handler) newForm(res *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		options, err := h.loadOptions(r.Context(), formRefs(res))
		if err != nil {
			h.readFailed(w, r, res, err)
			return
		}
		data := formPage{
			Resource: res,
			Action:   res.Routes.New,
			Values:   DefaultValues(res),
			Errors:   map[string]string{},
			Options:  options,
		}
		h.render(w, r, http.StatusOK, "pages/entity_form.html", "Yeni "+res.Singular, data)
	}
}

func (h *Handler) editForm(res *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.recordID(w, r, res)
		if !ok {
			return
		}
		var (
			rec     backend.Record
			options map[string][]Option
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			rec, err = h.client.Resource(res.API).Get(ctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			options, err = h.loadOptions(ctx, formRefs(res))
			return err
		})
		if err := g.Wait(); err != nil {
			h.readFailed(w, r, res, err)
			return
		}
		data := formPage{
			Resource: res,
			Action:   Path(res.Routes.Edit, id),
			Editing:  true,
			Values:   ValuesFromRecord(res, rec),
			Errors:   map[string]string{},
			Options:  options,
		}
		h.render(w, r, http.StatusOK, "pages/entity_form.html", res.Singular+" Düzenle", data)
	}
}

func (h *Handler) create(res *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.save(w, r, res, 0)
	}
}

func (h *Handler) update(res *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.recordID(w, r, res)
		if !ok {
			return
		}
		h.save(w, r, res, id)
	}
}

// save creates a record when id is zero and updates it otherwise.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, res *Resource, id int64) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	body, values, errs := ParseForm(h.validator, res, r.PostForm)
	form := formPage{Resource: res, Action: res.Routes.New, Editing: id != 0, Values: values, Errors: errs}
	title := "Yeni " + res.Singular
	if id != 0 {
		form.Action = Path(res.Routes.Edit, id)
		title = res.Singular + " Düzenle"
	}
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusBadRequest, title, form)
		return
	}

	var err error
	api := h.client.Resource(res.API)
	if id == 0 {
		_, err = api.Create(r.Context(), body)
	} else {
		_, err = api.Update(r.Context(), id, body)
	}
	if err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		status := http.StatusBadGateway
		form.Errors["general"] = "İşlem sırasında bir hata oluştu. Lütfen tekrar deneyin."
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.Status < http.StatusInternalServerError {
			status = apiErr.Status
			if apiErr.Message != "" {
				form.Errors["general"] = apiErr.Message
			}
		}
		h.logger.Warn("save record", slog.String("resource", res.Key), slog.Int64("id", id), slog.Any("error", err))
		h.renderForm(w, r, status, title, form)
		return
	}

	verb, extra := "oluşturuldu", "create"
	if id != 0 {
		verb, extra = "güncellendi", fmt.Sprintf("update %s ID: %d", res.Singular, id)
	}
	h.recorder.FormSubmit(r.Context(), r.URL.Path, res.Singular+" Formu", extra)
	h.redirectWithFlash(w, r, res.Routes.List, "success", fmt.Sprintf("%s başarıyla %s.", res.Singular, verb))
}

func (h *Handler) remove(res *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.recordID(w, r, res)
		if !ok {
			return
		}
		err := h.client.Resource(res.API).Delete(r.Context(), id)
		if err != nil {
			if h.interceptor.Respond(w, r) {
				return
			}
			msg := res.Singular + " silinirken bir hata oluştu."
			if apiErr, ok := backend.AsAPIError(err); ok {
				switch {
				case apiErr.Message != "" && apiErr.Status < http.StatusInternalServerError:
					msg = apiErr.Message
				case errors.Is(err, backend.ErrConflict):
					msg = res.Singular + " başka kayıtlarda kullanıldığı için silinemedi."
				}
			}
			h.logger.Warn("delete record", slog.String("resource", res.Key), slog.Int64("id", id), slog.Any("error", err))
			h.redirectWithFlash(w, r, res.Routes.List, "error", msg)
			return
		}
		h.recorder.ButtonClick(r.Context(), res.Routes.List, res.Singular+" Sil Button", fmt.Sprintf("%s ID: %d", res.Singular, id))
		h.redirectWithFlash(w, r, res.Routes.List, "success", res.Singular+" silindi.")
	}
}

type totalResponse struct {
	Total     float64 `json:"total"`
	Formatted string  `json:"formatted"`
}

func (h *Handler) calculateTotal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Form", "")
		return
	}
	unitPrice, err := parseAmount(r.Form.Get("unitPrice"))
	if err != nil || h.validator.Var(unitPrice, "gt=0") != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Birim ücret sıfırdan büyük olmalıdır")
		return
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("quantity")))
	if err != nil || h.validator.Var(quantity, "min=1") != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Miktar en az 1 olmalıdır")
		return
	}
	total, err := h.client.CalculateTotal(r.Context(), unitPrice, quantity)
	if err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("calculate total", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, totalResponse{Total: total, Formatted: view.FormatCurrency(total)})
}

// loadOptions fetches select choices for every reference the current user
// may read. References outside the user's grants are left out so that a
// backend 403 never ends the session while a form is being prepared.
func (h *Handler) loadOptions(ctx context.Context, refs []string) (map[string][]Option, error) {
	store := auth.StoreFromContext(ctx)
	out := make(map[string][]Option, len(refs))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range refs {
		ref, ok := Lookup(key)
		if !ok || store == nil || !store.HasPermission(ref.Module, rbac.ActionView) {
			continue
		}
		g.Go(func() error {
			page, err := h.client.Resource(ref.API).List(ctx, backend.ListParams{})
			if err != nil {
				return fmt.Errorf("load %s options: %w", ref.Key, err)
			}
			opts := make([]Option, 0, len(page.Content))
			for _, rec := range page.Content {
				opts = append(opts, Option{
					Value: strconv.FormatInt(rec.ID(), 10),
					Label: view.Label(map[string]any(rec)),
				})
			}
			mu.Lock()
			out[ref.Key] = opts
			mu.Unlock()
			return nil
		})
	}
	return out, g.Wait()
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, title string, form formPage) {
	options, err := h.loadOptions(r.Context(), formRefs(form.Resource))
	if err != nil {
		if h.interceptor.Respond(w, r) {
			return
		}
		h.logger.Warn("load form options", slog.String("resource", form.Resource.Key), slog.Any("error", err))
	}
	form.Options = options
	h.render(w, r, status, "pages/entity_form.html", title, form)
}

func (h *Handler) readFailed(w http.ResponseWriter, r *http.Request, res *Resource, err error) {
	if h.interceptor.Respond(w, r) {
		return
	}
	status := http.StatusBadGateway
	msg := "Veriler yüklenirken bir hata oluştu. Lütfen daha sonra tekrar deneyin."
	if errors.Is(err, backend.ErrNotFound) {
		status = http.StatusNotFound
		msg = res.Singular + " bulunamadı."
	}
	h.logger.Warn("backend read failed", slog.String("resource", res.Key), slog.String("path", r.URL.Path), slog.Any("error", err))
	h.render(w, r, status, "pages/error.html", res.Title, errorPage{Message: msg, Back: res.Routes.List})
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request, res *Resource) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.render(w, r, http.StatusNotFound, "pages/error.html", res.Title, errorPage{Message: res.Singular + " bulunamadı.", Back: res.Routes.List})
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	td := auth.NewTemplateData(r, h.csrf, title, data)
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func validSort(res *Resource, sort string) bool {
	key, dir, ok := strings.Cut(sort, ",")
	if !ok || (dir != "asc" && dir != "desc") {
		return false
	}
	return res.SortKeys()[key]
}

func filterRefs(res *Resource) []string {
	var refs []string
	for _, f := range res.Filters {
		if f.Ref != "" {
			refs = append(refs, f.Ref)
		}
	}
	return dedupe(refs)
}

func formRefs(res *Resource) []string {
	var refs []string
	for _, f := range res.FormFields() {
		if f.Ref != "" {
			refs = append(refs, f.Ref)
		}
	}
	return dedupe(refs)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
