package portal

import (
	"net/url"
	"strconv"

	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
)

// Cell is one rendered table or detail value.
type Cell struct {
	Label string
	Text  string
	Badge string
}

// Row is one record in a list table.
type Row struct {
	ID    int64
	Cells []Cell
}

type listPage struct {
	Resource      *Resource
	Rows          []Row
	Pagination    shared.Pagination
	Sort          string
	Filters       map[string]string
	FilterOptions map[string][]Option
	Error         string
}

// PageURL links to page n keeping the current sort and filters.
func (p listPage) PageURL(n int) string {
	q := url.Values{}
	for k, v := range p.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	q.Set("page", strconv.Itoa(n))
	return p.Resource.Routes.List + "?" + q.Encode()
}

// SortURL toggles the direction when key is the current sort column.
func (p listPage) SortURL(key string) string {
	dir := "asc"
	if p.Sort == key+",asc" {
		dir = "desc"
	}
	q := url.Values{}
	for k, v := range p.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	q.Set("sort", key+","+dir)
	return p.Resource.Routes.List + "?" + q.Encode()
}

// EditURL, DetailURL and DeleteURL resolve the record routes.
func (p listPage) EditURL(id int64) string   { return Path(p.Resource.Routes.Edit, id) }
func (p listPage) DetailURL(id int64) string { return Path(p.Resource.Routes.Detail, id) }
func (p listPage) DeleteURL(id int64) string { return Path(p.Resource.Routes.Delete, id) }

type detailPage struct {
	Resource *Resource
	ID       int64
	Title    string
	Items    []Cell
}

func (p detailPage) EditURL() string   { return Path(p.Resource.Routes.Edit, p.ID) }
func (p detailPage) DeleteURL() string { return Path(p.Resource.Routes.Delete, p.ID) }

type formPage struct {
	Resource *Resource
	Action   string
	Editing  bool
	Values   Values
	Errors   map[string]string
	Options  map[string][]Option
}

// RefOptions returns the choices for a reference field.
func (p formPage) RefOptions(ref string) []Option {
	return p.Options[ref]
}

type errorPage struct {
	Message string
	Back    string
}

// formatCell renders one field of record for display.
func formatCell(f Field, record backend.Record) Cell {
	raw := view.Field(record, f.DisplayKey())
	c := Cell{Label: f.Label}
	switch f.Kind {
	case KindDate:
		c.Text = view.FormatDate(raw)
	case KindMoney:
		c.Text = view.FormatCurrency(raw)
	case KindMinutes:
		c.Text = view.FormatMinutes(raw)
	default:
		if f.Name == "createdAt" || f.Name == "updatedAt" {
			c.Text = view.FormatDateTime(raw)
		} else {
			c.Text = view.Display(raw)
		}
	}
	if f.Badge {
		c.Badge = view.StatusBadge(raw)
	}
	return c
}

func buildRows(res *Resource, records []backend.Record) []Row {
	cols := res.Columns()
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{ID: rec.ID(), Cells: make([]Cell, 0, len(cols))}
		for _, f := range cols {
			row.Cells = append(row.Cells, formatCell(f, rec))
		}
		rows = append(rows, row)
	}
	return rows
}

func buildDetail(res *Resource, rec backend.Record) detailPage {
	items := make([]Cell, 0, len(res.Fields))
	for _, f := range res.Fields {
		items = append(items, formatCell(f, rec))
	}
	return detailPage{Resource: res, ID: rec.ID(), Title: recordTitle(res, rec), Items: items}
}

func recordTitle(res *Resource, rec backend.Record) string {
	label := view.Label(map[string]any(rec))
	if label == "" || label == strconv.FormatInt(rec.ID(), 10) {
		return res.Singular + " #" + strconv.FormatInt(rec.ID(), 10)
	}
	return label
}
