package portal

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akademi/egitim-portal/internal/backend"
)

const dateLayout = "2006-01-02"

// Option is one choice of a reference select.
type Option struct {
	Value string
	Label string
}

// Values holds raw form input keyed by field name, for re-rendering.
type Values map[string][]string

// First returns the first value of name.
func (v Values) First(name string) string {
	if vals := v[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Has reports whether value is among the values of name.
func (v Values) Has(name, value string) bool {
	return slices.Contains(v[name], value)
}

// ParseForm converts posted values into the backend request body. Field
// errors are keyed by field name and carry user-facing messages.
func ParseForm(validate *validator.Validate, res *Resource, form url.Values) (backend.Record, Values, map[string]string) {
	body := backend.Record{}
	values := Values{}
	errs := map[string]string{}

	for _, f := range res.FormFields() {
		raw := nonEmpty(form[f.Name])
		values[f.Name] = raw
		first := ""
		if len(raw) > 0 {
			first = raw[0]
		}

		value, err := parseValue(f, raw, first)
		if err == nil {
			err = checkValue(validate, f, value, first)
		}
		if err != nil {
			errs[f.Name] = err.Error()
			continue
		}
		body[f.Name] = value
	}

	for _, f := range res.FormFields() {
		if f.After == "" || errs[f.Name] != "" {
			continue
		}
		end, _ := body[f.Name].(string)
		start, _ := body[f.After].(string)
		if end != "" && start != "" && end < start {
			errs[f.Name] = fmt.Sprintf("%s, %s tarihinden önce olamaz", f.Label, labelOf(res, f.After))
		}
	}
	return body, values, errs
}

func parseValue(f Field, raw []string, first string) (any, error) {
	switch f.Kind {
	case KindDate:
		if first == "" {
			return nil, nil
		}
		if _, err := time.Parse(dateLayout, first); err != nil {
			return nil, fmt.Errorf("%s geçerli bir tarih olmalıdır", f.Label)
		}
		return first, nil
	case KindInt, KindMinutes:
		if first == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(first)
		if err != nil {
			return nil, fmt.Errorf("%s tam sayı olmalıdır", f.Label)
		}
		return n, nil
	case KindMoney:
		if first == "" {
			return nil, nil
		}
		n, err := parseAmount(first)
		if err != nil {
			return nil, fmt.Errorf("%s geçerli bir tutar olmalıdır", f.Label)
		}
		return n, nil
	case KindRef:
		if first == "" {
			return nil, nil
		}
		id, err := strconv.ParseInt(first, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%s geçersiz", f.Label)
		}
		return id, nil
	case KindRefs:
		ids := make([]int64, 0, len(raw))
		for _, s := range raw {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%s geçersiz", f.Label)
			}
			ids = append(ids, id)
		}
		return ids, nil
	case KindStrings:
		for _, s := range raw {
			if !slices.Contains(f.Options, s) {
				return nil, fmt.Errorf("%s için geçersiz seçim", f.Label)
			}
		}
		return append([]string{}, raw...), nil
	case KindChoices:
		for _, s := range raw {
			if !slices.Contains(f.Options, s) {
				return nil, fmt.Errorf("%s için geçersiz seçim", f.Label)
			}
		}
		if len(raw) == 0 {
			return nil, nil
		}
		return strings.Join(raw, ", "), nil
	case KindSelect:
		if first == "" {
			return nil, nil
		}
		if !slices.Contains(f.Options, first) {
			return nil, fmt.Errorf("%s için geçersiz seçim", f.Label)
		}
		return first, nil
	}
	if first == "" {
		return nil, nil
	}
	return first, nil
}

// checkValue applies the field's validator rules. Absent optional values are
// not validated.
func checkValue(validate *validator.Validate, f Field, value any, first string) error {
	if f.Rules == "" {
		return nil
	}
	if value == nil || (f.Multiple() && first == "") {
		if f.Required() {
			return fmt.Errorf("%s zorunludur", f.Label)
		}
		return nil
	}
	if f.Multiple() {
		return nil
	}
	err := validate.Var(value, f.Rules)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(fieldMessage(f, verrs[0]))
	}
	return err
}

func fieldMessage(f Field, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return f.Label + " zorunludur"
	case "email":
		return "Geçerli bir email adresi girin"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s en fazla %s karakter olabilir", f.Label, fe.Param())
		}
		return fmt.Sprintf("%s en fazla %s olabilir", f.Label, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s en az %s karakter olmalıdır", f.Label, fe.Param())
		}
		return fmt.Sprintf("%s en az %s olmalıdır", f.Label, fe.Param())
	}
	return f.Label + " geçersiz"
}

// ValuesFromRecord pre-fills an edit form from a backend response, reading
// related objects when the request key itself is absent.
func ValuesFromRecord(res *Resource, record backend.Record) Values {
	values := Values{}
	for _, f := range res.FormFields() {
		values[f.Name] = recordValues(f, record)
	}
	return values
}

// DefaultValues pre-fills a create form.
func DefaultValues(res *Resource) Values {
	values := Values{}
	for _, f := range res.FormFields() {
		if f.Default != "" {
			values[f.Name] = []string{f.Default}
		}
	}
	return values
}

func recordValues(f Field, record backend.Record) []string {
	v, ok := record[f.Name]
	if (!ok || v == nil) && f.From != "" {
		v = record[f.From]
		switch f.Kind {
		case KindRef:
			if obj, isObj := v.(map[string]any); isObj {
				v = obj["id"]
			}
		case KindRefs:
			if items, isList := v.([]any); isList {
				ids := make([]any, 0, len(items))
				for _, item := range items {
					if obj, isObj := item.(map[string]any); isObj {
						ids = append(ids, obj["id"])
					}
				}
				v = ids
			}
		}
	}

	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	s := scalar(v)
	if s == "" {
		return nil
	}
	switch f.Kind {
	case KindDate:
		if len(s) >= len(dateLayout) {
			s = s[:len(dateLayout)]
		}
	case KindChoices:
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []string{s}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func labelOf(res *Resource, name string) string {
	for _, f := range res.Fields {
		if f.Name == name {
			return f.Label
		}
	}
	return name
}
