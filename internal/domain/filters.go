package domain

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Filters maps a filter name to a bool, number, string or []string value.
type Filters map[string]any

// filterAliases rewrites UI filter names into the parameter names the API expects.
var filterAliases = map[string]string{
	"search": "q",
	"skills": "tags",
}

// AliasFilterName returns the API parameter name for a UI filter name.
func AliasFilterName(name string) string {
	if alias, ok := filterAliases[name]; ok {
		return alias
	}
	return name
}

// Clone returns a shallow copy; slice values are copied so callers can mutate them.
func (f Filters) Clone() Filters {
	if f == nil {
		return Filters{}
	}
	out := make(Filters, len(f))
	for key, value := range f {
		if strs, ok := value.([]string); ok {
			out[key] = slices.Clone(strs)
			continue
		}
		out[key] = value
	}
	return out
}

// Merge returns a copy of f with patch applied. Unset values in patch delete keys.
func (f Filters) Merge(patch Filters) Filters {
	out := f.Clone()
	for key, value := range patch {
		if IsUnset(value) {
			delete(out, key)
			continue
		}
		out[key] = value
	}
	return out
}

// Map exposes the filters as a plain map for event payloads.
func (f Filters) Map() map[string]any {
	return map[string]any(f.Clone())
}

// IsUnset reports whether a filter value should be omitted from requests.
func IsUnset(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

// Values serialises the filters into query values. Aliases are applied,
// unset entries are omitted and arrays are comma joined.
func (f Filters) Values() url.Values {
	values := url.Values{}
	for key, value := range f {
		if IsUnset(value) {
			continue
		}
		values.Set(AliasFilterName(key), encodeFilterValue(value))
	}
	return values
}

// Encode returns the deterministic query string for the filters.
func (f Filters) Encode() string {
	return f.Values().Encode()
}

func encodeFilterValue(value any) string {
	switch typed := value.(type) {
	case []string:
		return strings.Join(typed, ",")
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ",")
	case bool:
		return strconv.FormatBool(typed)
	default:
		return Stringify(typed)
	}
}
