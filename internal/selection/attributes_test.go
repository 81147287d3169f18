package selection

import (
	"encoding/json"
	"reflect"
	"testing"

	"retriever/internal/service"
)

func catalogForRoundTrip() service.List[service.Declaration] {
	return service.List[service.Declaration]{
		{ServiceID: "a", Requires: []string{"b"}, ConfigKeys: []string{"path"}},
		{ServiceID: "b", Requires: []string{"c"}},
		{ServiceID: "c", ConfigKeys: []string{"depth", "mode"}},
		{ServiceID: "d"},
	}
}

func TestToMap(t *testing.T) {
	c := New[service.Declaration](catalogForRoundTrip(), Options{
		Group:        "rules",
		SelectedKey:  "retriever.rules",
		ConfigPrefix: "retriever.rules.config.",
	})
	c.Select(mustService(t, c, "a"))
	c.SetConfig("c", "depth", "3")

	m := c.ToMap()

	if got := m["retriever.rules"]; !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("selected = %v, want only the manual selection [a]", got)
	}
	if got := m["retriever.rules.config.c"]; !reflect.DeepEqual(got, map[string]string{"depth": "3", "mode": ""}) {
		t.Errorf("config of c = %v", got)
	}
	if got := m["retriever.rules.config.d"]; !reflect.DeepEqual(got, map[string]string{}) {
		t.Errorf("config of d = %v, want empty map", got)
	}
	if len(m) != 5 {
		t.Errorf("len(ToMap()) = %d, want 5 (4 configs + selection)", len(m))
	}
}

func TestApplyAttributeMap_RoundTrip(t *testing.T) {
	src := New[service.Declaration](catalogForRoundTrip(), Options{Group: "rules"})
	src.Select(mustService(t, src, "a"))
	src.Select(mustService(t, src, "d"))
	src.SetConfig("a", "path", "/repo")
	src.SetConfig("c", "mode", "strict")

	dst := New[service.Declaration](catalogForRoundTrip(), Options{Group: "rules"})
	dst.ApplyAttributeMap(src.ToMap())

	if got, want := service.IDs(dst.ManuallySelected()), service.IDs(src.ManuallySelected()); !reflect.DeepEqual(got, want) {
		t.Errorf("manual selections = %v, want %v", got, want)
	}
	if got, want := selectedIDs(dst), selectedIDs(src); !reflect.DeepEqual(got, want) {
		t.Errorf("Selected() = %v, want %v", got, want)
	}
	for _, s := range src.Available() {
		want, _ := src.GetWholeConfig(s.ID())
		got, err := dst.GetWholeConfig(s.ID())
		if err != nil || !reflect.DeepEqual(got, want) {
			t.Errorf("config of %s = %v (%v), want %v", s.ID(), got, err, want)
		}
	}
	if got := dst.Requesters("c"); !reflect.DeepEqual(got, []Ref{{Group: "rules", ID: "b"}}) {
		t.Errorf("derived graph not rebuilt: Requesters(c) = %v", got)
	}
}

func TestApplyAttributeMap_ThroughJSON(t *testing.T) {
	src := New[service.Declaration](catalogForRoundTrip(), Options{Group: "rules"})
	src.Select(mustService(t, src, "b"))
	src.SetConfig("a", "path", "x")

	data, err := json.Marshal(src.ToMap())
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded AttributeMap
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	dst := New[service.Declaration](catalogForRoundTrip(), Options{Group: "rules"})
	dst.ApplyAttributeMap(decoded)

	if got := selectedIDs(dst); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Selected() = %v, want [b c]", got)
	}
	if v, _ := dst.GetConfig("a", "path"); v != "x" {
		t.Errorf("GetConfig(a, path) = %q, want x", v)
	}
	if !reflect.DeepEqual(Normalize(decoded), Normalize(src.ToMap())) {
		t.Error("Normalize should make decoded and written maps equal")
	}
}

func TestApplyAttributeMap_IgnoresUnknownAndMalformed(t *testing.T) {
	c := New[service.Declaration](catalogForRoundTrip(), Options{Group: "rules"})
	c.ApplyAttributeMap(AttributeMap{
		"rules.selected":        []string{"ghost", "d"},
		"rules.config.ghost":    map[string]string{"k": "v"},
		"rules.config.a":        42,
		"rules.config.c":        map[string]any{"depth": 7, "mode": nil},
		"other.group.something": "ignored",
	})

	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("Selected() = %v, want [d]", got)
	}
	if _, ok := c.GetConfig("ghost", "k"); ok {
		t.Error("unknown ids must not gain a configuration")
	}
	if v, ok := c.GetConfig("a", "path"); !ok || v != "" {
		t.Errorf("malformed value should leave config untouched, got %q, %v", v, ok)
	}
	want := map[string]string{"depth": "7", "mode": ""}
	if got, _ := c.GetWholeConfig("c"); !reflect.DeepEqual(got, want) {
		t.Errorf("config of c = %v, want %v", got, want)
	}
}

func TestApplyAttributeMap_ReplacesConfigWholesale(t *testing.T) {
	c := New[service.Declaration](catalogForRoundTrip(), Options{Group: "rules"})
	c.SetConfig("c", "extra", "1")

	c.ApplyAttributeMap(AttributeMap{"rules.config.c": map[string]string{"depth": "9"}})

	got, _ := c.GetWholeConfig("c")
	if !reflect.DeepEqual(got, map[string]string{"depth": "9"}) {
		t.Errorf("config of c = %v, want exactly {depth: 9}", got)
	}
}

func TestAttributeMapHelpers(t *testing.T) {
	m := AttributeMap{
		"g.selected": []any{"b", "a", 3},
		"g.config.a": map[string]string{"k": "v"},
		"g.config.b": map[string]any{"n": 1},
		"g.config.":  map[string]string{},
		"h.selected": map[string]bool{"x": true, "y": false},
		"unrelated":  "value",
	}

	if got := m.SelectedIDs("g.selected"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("SelectedIDs(g) = %v", got)
	}
	if got := m.SelectedIDs("h.selected"); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("SelectedIDs(h) = %v", got)
	}
	if got := m.ServiceIDs("g.config."); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ServiceIDs() = %v", got)
	}
	if cfg, ok := m.ServiceConfig("g.config.", "b"); !ok || cfg["n"] != "1" {
		t.Errorf("ServiceConfig(b) = %v, %v", cfg, ok)
	}
	if _, ok := m.ServiceConfig("g.config.", "zzz"); ok {
		t.Error("ServiceConfig on a missing id should be false")
	}

	merged := Merge(AttributeMap{"a": "1", "b": "1"}, AttributeMap{"b": "2"})
	if !reflect.DeepEqual(merged.Keys(), []string{"a", "b"}) || merged["b"] != "2" {
		t.Errorf("Merge() = %v", merged)
	}

	norm := Normalize(m)
	if _, ok := norm["unrelated"]; ok {
		t.Error("Normalize should drop values of unsupported types")
	}
	if !reflect.DeepEqual(norm["g.selected"], []string{"a", "b"}) {
		t.Errorf("Normalize(g.selected) = %v", norm["g.selected"])
	}
}
