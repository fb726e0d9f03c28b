package view

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var trPrinter = message.NewPrinter(language.Turkish)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Funcs returns the template helpers.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     FormatDate,
		"formatDateTime": FormatDateTime,
		"formatCurrency": FormatCurrency,
		"formatMinutes":  FormatMinutes,
		"statusBadge":    StatusBadge,
		"display":        Display,
		"field":          Field,
		"label":          Label,
		"add":            func(a, b int) int { return a + b },
		"sub":            func(a, b int) int { return a - b },
		"join":           strings.Join,
	}
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date as dd.mm.yyyy, "-" when absent.
func FormatDate(v any) string {
	t, ok := parseTime(v)
	if !ok {
		if s, isStr := v.(string); isStr && s != "" {
			return s
		}
		return "-"
	}
	return t.Format("02.01.2006")
}

// FormatDateTime renders a timestamp as dd.mm.yyyy hh:mm.
func FormatDateTime(v any) string {
	t, ok := parseTime(v)
	if !ok {
		return FormatDate(v)
	}
	return t.Format("02.01.2006 15:04")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// FormatCurrency renders an amount in Turkish lira, "-" when absent.
func FormatCurrency(v any) string {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return "-"
	}
	return "₺" + trPrinter.Sprintf("%.2f", f)
}

// FormatMinutes renders a duration in minutes as hours and minutes.
func FormatMinutes(v any) string {
	f, ok := toFloat(v)
	if !ok || f <= 0 {
		return "-"
	}
	total := int(f)
	return fmt.Sprintf("%d saat %d dakika", total/60, total%60)
}

var badgeClasses = map[string]string{
	// payment states
	"Ödendi":   "success",
	"Bekliyor": "warning",
	"İptal":    "danger",
	// training states
	"Havuz":               "secondary",
	"Teslim":              "info",
	"Gerçekleşme":         "primary",
	"Tamamlanan":          "success",
	"Kontrol":             "warning",
	"Medya":               "info",
	"LMS":                 "primary",
	"Plan":                "warning",
	"Yayından Kaldırılan": "danger",
	"Anlaşma":             "success",
	"İlan":                "info",
}

// StatusBadge maps a status label to its badge class.
func StatusBadge(status any) string {
	s, _ := status.(string)
	if class, ok := badgeClasses[s]; ok {
		return "badge-" + class
	}
	return "badge-secondary"
}

// Display renders an arbitrary backend value for a table cell.
func Display(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return t
	case bool:
		if t {
			return "Evet"
		}
		return "Hayır"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', 2, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, Display(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if label := Label(t); label != "" {
			return label
		}
		return "-"
	}
	return fmt.Sprint(v)
}

// Label names a related record: "ad soyad" for people, otherwise the first of
// adSoyad, isim, ad, name or id that is present.
func Label(record map[string]any) string {
	ad, _ := record["ad"].(string)
	if soyad, _ := record["soyad"].(string); ad != "" && soyad != "" {
		return ad + " " + soyad
	}
	for _, key := range []string{"adSoyad", "isim", "ad", "name", "id"} {
		if inner, ok := record[key]; ok && inner != nil && inner != "" {
			return Display(inner)
		}
	}
	return ""
}

// Field reads a possibly nested key ("egitim.ad") from a decoded record.
func Field(record map[string]any, path string) any {
	var cur any = record
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}
