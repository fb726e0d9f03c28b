// Package logs serves the log dashboard and the five backend log streams.
package logs

import (
	"github.com/akademi/egitim-portal/internal/backend"
)

type columnKind int

const (
	columnText columnKind = iota
	columnDateTime
	columnStatus
	columnLong
)

// Column is one field of a log record shown in the table.
type Column struct {
	Key   string
	Label string
	kind  columnKind
}

// FilterField is one query parameter accepted by a log stream. Date filters
// are sent as ISO date-times bounding the whole day. Param names the backend
// parameter when it differs from the form field.
type FilterField struct {
	Name  string
	Label string
	Type  string
	Param string
}

func (f FilterField) param() string {
	if f.Param != "" {
		return f.Param
	}
	return f.Name
}

// Category describes one log stream.
type Category struct {
	Key         backend.LogCategory
	Title       string
	Description string
	Columns     []Column
	Filters     []FilterField
}

// Path is the page listing the category.
func (c Category) Path() string {
	return "/logs/" + string(c.Key)
}

var (
	colID        = Column{Key: "id", Label: "ID"}
	colUser      = Column{Key: "userId", Label: "Kullanıcı"}
	colEndpoint  = Column{Key: "endpoint", Label: "Endpoint"}
	colDuration  = Column{Key: "durationMs", Label: "Süre (ms)"}
	colCreatedAt = Column{Key: "createdAt", Label: "Tarih", kind: columnDateTime}

	filterUser     = FilterField{Name: "userId", Label: "Kullanıcı ID", Type: "number"}
	filterEndpoint = FilterField{Name: "endpoint", Label: "Endpoint", Type: "text"}
	filterDuration = FilterField{Name: "minDuration", Label: "Min. Süre (ms)", Type: "number"}
	filterStart    = FilterField{Name: "startDate", Label: "Başlangıç", Type: "date"}
	filterEnd      = FilterField{Name: "endDate", Label: "Bitiş", Type: "date"}
)

// Categories lists the log streams in dashboard order.
var Categories = []Category{
	{
		Key:         backend.LogsAPI,
		Title:       "API Logları",
		Description: "HTTP request/response logları",
		Columns: []Column{
			colID, colUser,
			{Key: "httpMethod", Label: "Metot"},
			colEndpoint,
			{Key: "statusCode", Label: "Durum Kodu", kind: columnStatus},
			colDuration,
			{Key: "ip", Label: "IP"},
			colCreatedAt,
		},
		Filters: []FilterField{
			filterUser, filterEndpoint,
			{Name: "statusCode", Label: "Durum Kodu", Type: "number"},
			filterDuration, filterStart, filterEnd,
		},
	},
	{
		Key:         backend.LogsActivity,
		Title:       "Kullanıcı Aksiyon Logları",
		Description: "Kullanıcı aktiviteleri (CREATE, UPDATE, DELETE)",
		Columns: []Column{
			colID, colUser,
			{Key: "action", Label: "Aksiyon"},
			{Key: "entityType", Label: "Varlık"},
			{Key: "entityId", Label: "Varlık ID"},
			{Key: "description", Label: "Açıklama", kind: columnLong},
			colCreatedAt,
		},
		Filters: []FilterField{
			filterUser,
			{Name: "action", Label: "Aksiyon", Type: "text"},
			{Name: "entityType", Label: "Varlık", Type: "text"},
			{Name: "entityId", Label: "Varlık ID", Type: "number"},
			filterStart, filterEnd,
		},
	},
	{
		Key:         backend.LogsErrors,
		Title:       "Hata Logları",
		Description: "Exception ve hata kayıtları",
		Columns: []Column{
			colID, colUser, colEndpoint,
			{Key: "exceptionType", Label: "Hata Türü"},
			{Key: "message", Label: "Mesaj", kind: columnLong},
			colCreatedAt,
		},
		Filters: []FilterField{
			filterUser,
			{Name: "exceptionType", Label: "Hata Türü", Type: "text"},
			filterEndpoint, filterStart, filterEnd,
		},
	},
	{
		Key:         backend.LogsPerformance,
		Title:       "Performans Logları",
		Description: "Yavaş çalışan işlemler (1s+)",
		Columns: []Column{
			colID, colEndpoint,
			{Key: "methodName", Label: "Metot Adı"},
			colDuration, colCreatedAt,
		},
		Filters: []FilterField{filterDuration, filterEndpoint, filterStart, filterEnd},
	},
	{
		Key:         backend.LogsFrontend,
		Title:       "Frontend Logları",
		Description: "Frontend kullanıcı aksiyonları",
		Columns: []Column{
			colID, colUser,
			{Key: "action", Label: "Aksiyon"},
			{Key: "page", Label: "Sayfa"},
			{Key: "details", Label: "Detaylar", kind: columnLong},
			colCreatedAt,
		},
		Filters: []FilterField{
			filterUser,
			{Name: "action", Label: "Aksiyon", Type: "text"},
			{Name: "pagePath", Label: "Sayfa", Type: "text", Param: "page"},
		},
	},
}

// Lookup returns the category registered under key.
func Lookup(key string) (Category, bool) {
	for _, c := range Categories {
		if string(c.Key) == key {
			return c, true
		}
	}
	return Category{}, false
}
