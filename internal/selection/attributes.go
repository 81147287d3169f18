package selection

import (
	"fmt"
	"sort"
	"strings"
)

// AttributeMap is the generic key-value form used to persist and restore
// selection state. Values are either a set of strings ([]string) or a
// string-to-string mapping (map[string]string). Decoded JSON and TOML
// shapes ([]any, map[string]any) are accepted on input.
type AttributeMap map[string]any

// SelectedIDs reads the id set stored under key, sorted.
func (m AttributeMap) SelectedIDs(key string) []string {
	set := stringSet(m[key])
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ServiceConfig reads the configuration of id stored under prefix+id.
func (m AttributeMap) ServiceConfig(prefix, id string) (map[string]string, bool) {
	raw, ok := m[prefix+id]
	if !ok || raw == nil {
		return nil, false
	}
	return stringMap(raw)
}

// ServiceIDs lists the ids that have a configuration entry under prefix.
func (m AttributeMap) ServiceIDs(prefix string) []string {
	var ids []string
	for k := range m {
		if id, ok := strings.CutPrefix(k, prefix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Keys returns the map keys in sorted order.
func (m AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge combines attribute maps; later maps win on key collisions.
func Merge(attrs ...AttributeMap) AttributeMap {
	merged := make(AttributeMap)
	for _, m := range attrs {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// Normalize converts decoded shapes to []string and map[string]string so a
// map read back from JSON or TOML compares equal to the one written.
// Values of any other type are dropped.
func Normalize(m AttributeMap) AttributeMap {
	out := make(AttributeMap, len(m))
	for k, v := range m {
		switch v.(type) {
		case []string, []any, map[string]struct{}, map[string]bool:
			set := stringSet(v)
			ids := make([]string, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			out[k] = ids
		case map[string]string, map[string]any:
			if cfg, ok := stringMap(v); ok {
				out[k] = cfg
			}
		}
	}
	return out
}

func stringSet(v any) map[string]struct{} {
	set := make(map[string]struct{})
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			set[s] = struct{}{}
		}
	case []any:
		for _, s := range t {
			if str, ok := s.(string); ok {
				set[str] = struct{}{}
			}
		}
	case map[string]struct{}:
		for s := range t {
			set[s] = struct{}{}
		}
	case map[string]bool:
		for s, in := range t {
			if in {
				set[s] = struct{}{}
			}
		}
	}
	return set
}

func stringMap(v any) (map[string]string, bool) {
	switch t := v.(type) {
	case map[string]string:
		cfg := make(map[string]string, len(t))
		for k, val := range t {
			cfg[k] = val
		}
		return cfg, true
	case map[string]any:
		cfg := make(map[string]string, len(t))
		for k, val := range t {
			switch s := val.(type) {
			case string:
				cfg[k] = s
			case nil:
				cfg[k] = ""
			default:
				cfg[k] = fmt.Sprint(s)
			}
		}
		return cfg, true
	}
	return nil, false
}
