package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Record is one entity as returned by the backend. Its schema is owned by the backend.
type Record map[string]any

// ID returns the record's numeric id, or 0 when absent.
func (r Record) ID() int64 {
	switch v := r["id"].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// ListParams are the pagination and filter query parameters.
type ListParams struct {
	Page    int
	Size    int
	Sort    string
	Filters map[string]string
}

// Query encodes the params. Page is zero-based on the wire.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Size > 0 {
		q.Set("page", strconv.Itoa(p.Page))
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	for k, v := range p.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Page is a paginated collection in the backend's page shape.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}

// UnmarshalJSON accepts either a page object or a bare array.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Content: items, TotalElements: len(items), TotalPages: 1, Size: len(items)}
		return nil
	}
	var out struct {
		Content       []T `json:"content"`
		TotalElements int `json:"totalElements"`
		TotalPages    int `json:"totalPages"`
		Number        int `json:"number"`
		Size          int `json:"size"`
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*p = Page[T]{
		Content:       out.Content,
		TotalElements: out.TotalElements,
		TotalPages:    out.TotalPages,
		Number:        out.Number,
		Size:          out.Size,
	}
	return nil
}

// Resource is the CRUD client for one collection path such as /egitim.
type Resource struct {
	client *Client
	path   string
}

// Resource returns the CRUD client for path.
func (c *Client) Resource(path string) *Resource {
	return &Resource{client: c, path: path}
}

// Path returns the collection path.
func (r *Resource) Path() string {
	return r.path
}

// List fetches the collection, paginated when params carry a size.
func (r *Resource) List(ctx context.Context, params ListParams) (Page[Record], error) {
	var out Page[Record]
	err := r.client.do(ctx, http.MethodGet, r.path, params.Query(), nil, &out)
	return out, err
}

// Page fetches the collection through the dedicated /page endpoint.
func (r *Resource) Page(ctx context.Context, params ListParams) (Page[Record], error) {
	var out Page[Record]
	err := r.client.do(ctx, http.MethodGet, r.path+"/page", params.Query(), nil, &out)
	return out, err
}

// Get fetches one record.
func (r *Resource) Get(ctx context.Context, id int64) (Record, error) {
	var out Record
	err := r.client.do(ctx, http.MethodGet, r.item(id), nil, nil, &out)
	return out, err
}

// Create posts a new record.
func (r *Resource) Create(ctx context.Context, in Record) (Record, error) {
	var out Record
	err := r.client.do(ctx, http.MethodPost, r.path, nil, in, &out)
	return out, err
}

// Update replaces a record.
func (r *Resource) Update(ctx context.Context, id int64, in Record) (Record, error) {
	var out Record
	err := r.client.do(ctx, http.MethodPut, r.item(id), nil, in, &out)
	return out, err
}

// Delete removes a record.
func (r *Resource) Delete(ctx context.Context, id int64) error {
	return r.client.do(ctx, http.MethodDelete, r.item(id), nil, nil, nil)
}

func (r *Resource) item(id int64) string {
	return fmt.Sprintf("%s/%d", r.path, id)
}

// CalculateTotal asks the backend for unitPrice * quantity.
func (c *Client) CalculateTotal(ctx context.Context, unitPrice float64, quantity int) (float64, error) {
	q := url.Values{}
	q.Set("unitPrice", strconv.FormatFloat(unitPrice, 'f', -1, 64))
	q.Set("quantity", strconv.Itoa(quantity))
	var out float64
	err := c.do(ctx, http.MethodPost, "/odeme/calculate-total", q, nil, &out)
	return out, err
}
