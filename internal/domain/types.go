package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one catalog entity (for example an expert profile) as decoded from
// the API. Records are read-only once returned by the client; the runtime only
// replaces the slices that hold them.
type Record map[string]any

// Value looks up a field on the record. Dotted paths descend into nested objects.
// A nil value reports as absent.
func (r Record) Value(field string) (any, bool) {
	field = strings.TrimSpace(field)
	if r == nil || field == "" {
		return nil, false
	}
	if value, ok := r[field]; ok {
		return value, value != nil
	}
	parts := strings.Split(field, ".")
	var current any = map[string]any(r)
	for _, part := range parts {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

// Collection returns the ordered sub-records stored under key. Plain string
// entries (tag lists) are promoted to {"name": value} records.
func (r Record) Collection(key string) []Record {
	value, ok := r.Value(key)
	if !ok {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		if typed, isRecords := value.([]Record); isRecords {
			return typed
		}
		if strs, isStrings := value.([]string); isStrings {
			items = make([]any, len(strs))
			for i, s := range strs {
				items[i] = s
			}
		} else {
			return nil
		}
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		switch typed := item.(type) {
		case map[string]any:
			out = append(out, Record(typed))
		case Record:
			out = append(out, typed)
		case string:
			out = append(out, Record{"name": typed})
		case nil:
		default:
			out = append(out, Record{"name": Stringify(typed)})
		}
	}
	return out
}

// ID returns the record identifier when present.
func (r Record) ID() string {
	value, ok := r.Value("id")
	if !ok {
		return ""
	}
	return Stringify(value)
}

func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Record:
		return typed, true
	default:
		return nil, false
	}
}

// Stringify renders a scalar the way it would appear in text content.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1e15 {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return Stringify(float64(typed))
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Number coerces a scalar into a float64. Strings are parsed; booleans are not numbers.
func Number(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil || math.IsNaN(parsed) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Program is the metadata of a catalog namespace.
type Program struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"-"`
}

// ListResponse is the paginated record list returned by the experts endpoint.
type ListResponse struct {
	Data       []Record `json:"data"`
	TotalCount int      `json:"totalCount"`
}

// FilterOption is one enumerated value of a filter definition.
type FilterOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FilterDefinition describes a filter advertised by a program.
type FilterDefinition struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Min     *float64       `json:"min,omitempty"`
	Max     *float64       `json:"max,omitempty"`
	Options []FilterOption `json:"options,omitempty"`
}

// IsArray reports whether the filter expects multiple values.
func (d FilterDefinition) IsArray() bool {
	switch strings.ToLower(strings.TrimSpace(d.Type)) {
	case "multiselect", "multi-select", "array", "list", "tags":
		return true
	default:
		return false
	}
}
