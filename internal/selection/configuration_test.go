package selection

import (
	"reflect"
	"testing"

	rerrors "retriever/internal/errors"
	"retriever/internal/service"
)

func svc(id string, requires ...string) service.Declaration {
	return service.Declaration{ServiceID: id, Requires: requires}
}

func newConfig(group string, decls ...service.Declaration) *Configuration[service.Declaration] {
	return New[service.Declaration](service.List[service.Declaration](decls), Options{Group: group})
}

func selectedIDs(c *Configuration[service.Declaration]) []string {
	return service.IDs(c.Selected())
}

func mustService(t *testing.T, c *Configuration[service.Declaration], id string) service.Declaration {
	t.Helper()
	s, ok := c.Service(id)
	if !ok {
		t.Fatalf("service %q not in catalog", id)
	}
	return s
}

func TestSelect_NoDependencies(t *testing.T) {
	c := newConfig("rules", svc("a"), svc("b"))
	a := mustService(t, c, "a")

	c.Select(a)

	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Selected() = %v, want [a]", got)
	}
	if !c.IsManuallySelected(a) {
		t.Error("a should be manually selected")
	}
	if c.IsManuallySelected(mustService(t, c, "b")) {
		t.Error("b should not be manually selected")
	}
}

func TestSelect_Chain(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b", "c"), svc("c"))
	a := mustService(t, c, "a")

	c.Select(a)

	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Selected() = %v, want [a b c]", got)
	}
	if got := service.IDs(c.ManuallySelected()); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("ManuallySelected() = %v, want [a]", got)
	}
	if c.IsManuallySelected(mustService(t, c, "b")) || c.IsManuallySelected(mustService(t, c, "c")) {
		t.Error("dependencies must not be manually selected")
	}
	if got := c.Requesters("c"); !reflect.DeepEqual(got, []Ref{{Group: "rules", ID: "b"}}) {
		t.Errorf("Requesters(c) = %v, want [rules/b]", got)
	}
}

func TestDeselect_ChainReleasesTransitively(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b", "c"), svc("c"))
	a := mustService(t, c, "a")

	c.Select(a)
	c.Deselect(a)

	if got := selectedIDs(c); len(got) != 0 {
		t.Errorf("Selected() = %v, want none", got)
	}
	if c.IsManuallySelected(a) {
		t.Error("a should no longer be manually selected")
	}
	if c.deps.size() != 0 {
		t.Errorf("dependency graph should be empty, has %v", c.deps.ids())
	}
}

func TestDiamond(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("d", "b"), svc("b"))
	a, d := mustService(t, c, "a"), mustService(t, c, "d")

	c.Select(a)
	c.Select(d)

	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"a", "b", "d"}) {
		t.Fatalf("Selected() = %v, want [a b d]", got)
	}
	wantHolders := []Ref{{Group: "rules", ID: "a"}, {Group: "rules", ID: "d"}}
	if got := c.Requesters("b"); !reflect.DeepEqual(got, wantHolders) {
		t.Errorf("Requesters(b) = %v, want %v", got, wantHolders)
	}

	c.Deselect(a)
	if !c.IsSelected("b") {
		t.Error("b should stay selected while d requires it")
	}
	if got := c.Requesters("b"); !reflect.DeepEqual(got, []Ref{{Group: "rules", ID: "d"}}) {
		t.Errorf("Requesters(b) = %v, want [rules/d]", got)
	}

	c.Deselect(d)
	if c.IsSelected("b") {
		t.Error("b should be released once nothing requires it")
	}
}

func TestSelect_Idempotent(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b", "c"), svc("c"))
	a := mustService(t, c, "a")

	c.Select(a)
	once := selectedIDs(c)
	onceHolders := map[string][]Ref{}
	for _, id := range c.deps.ids() {
		onceHolders[id] = c.Requesters(id)
	}

	c.Select(a)
	if got := selectedIDs(c); !reflect.DeepEqual(got, once) {
		t.Errorf("Selected() after second select = %v, want %v", got, once)
	}
	for _, id := range c.deps.ids() {
		if got := c.Requesters(id); !reflect.DeepEqual(got, onceHolders[id]) {
			t.Errorf("Requesters(%s) = %v, want %v", id, got, onceHolders[id])
		}
	}
	if c.deps.size() != len(onceHolders) {
		t.Errorf("graph size changed: %d, want %d", c.deps.size(), len(onceHolders))
	}
}

func TestSelect_UnknownRequirementIsSkipped(t *testing.T) {
	c := newConfig("rules", svc("a", "ghost", "b"), svc("b"))
	a := mustService(t, c, "a")

	c.Select(a)

	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Selected() = %v, want [a b]", got)
	}
	if c.IsSelected("ghost") {
		t.Error("unresolved id must not become selected")
	}
}

func TestDeselect_ManualDependencyStaysSelected(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b", "c"), svc("c"))
	a, b := mustService(t, c, "a"), mustService(t, c, "b")

	c.Select(a)
	c.Select(b)
	c.Deselect(a)

	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Selected() = %v, want [b c]", got)
	}
	if !c.IsManuallySelected(b) {
		t.Error("b keeps its manual selection")
	}
}

func TestDeselect_StillRequiredServiceKeepsItsDependencies(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b", "c"), svc("c"))
	a, b := mustService(t, c, "a"), mustService(t, c, "b")

	c.Select(b)
	c.Select(a)
	c.Deselect(b)

	if c.IsManuallySelected(b) {
		t.Error("b should not be manually selected")
	}
	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Selected() = %v, want [a b c]; b is still required by a", got)
	}
}

func TestSelect_CycleTerminates(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b", "c"), svc("c", "a"), svc("x", "a"))
	x := mustService(t, c, "x")

	c.Select(x)
	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"a", "b", "c", "x"}) {
		t.Fatalf("Selected() = %v, want [a b c x]", got)
	}

	c.Deselect(x)
	if got := selectedIDs(c); len(got) != 0 {
		t.Errorf("Selected() = %v, want none; an unrooted cycle must be released", got)
	}
}

func TestSelect_SelfDependency(t *testing.T) {
	c := newConfig("rules", svc("a", "a"))
	a := mustService(t, c, "a")

	c.Select(a)
	if got := c.Requesters("a"); !reflect.DeepEqual(got, []Ref{{Group: "rules", ID: "a"}}) {
		t.Errorf("Requesters(a) = %v", got)
	}

	c.Deselect(a)
	if c.IsSelected("a") {
		t.Error("a should be released")
	}
}

func TestSelect_ServiceOutsideCatalog(t *testing.T) {
	c := newConfig("rules", svc("b"))
	outsider := svc("outsider", "b")

	c.Select(outsider)
	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"b", "outsider"}) {
		t.Errorf("Selected() = %v, want [b outsider]", got)
	}

	if err := c.DeselectByID("outsider"); err != nil {
		t.Fatalf("DeselectByID() error = %v", err)
	}
	if got := selectedIDs(c); len(got) != 0 {
		t.Errorf("Selected() = %v, want none", got)
	}
}

func TestSelectByID(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b"))

	if err := c.SelectByID("a"); err != nil {
		t.Fatalf("SelectByID(a) error = %v", err)
	}
	if !c.IsSelected("b") {
		t.Error("b should be selected as a dependency")
	}

	err := c.SelectByID("nope")
	if !rerrors.HasCode(err, rerrors.ServiceNotFound) {
		t.Errorf("SelectByID(nope) error = %v, want SERVICE_NOT_FOUND", err)
	}
	if err := c.DeselectByID("nope"); !rerrors.HasCode(err, rerrors.ServiceNotFound) {
		t.Errorf("DeselectByID(nope) error = %v, want SERVICE_NOT_FOUND", err)
	}
}

func TestDeselect_NotSelectedIsHarmless(t *testing.T) {
	c := newConfig("rules", svc("a", "b"), svc("b"), svc("d", "b"))
	c.Select(mustService(t, c, "d"))

	c.Deselect(mustService(t, c, "a"))

	if got := selectedIDs(c); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Errorf("Selected() = %v, want [b d]", got)
	}
}

func TestAvailable_KeepsCatalogOrder(t *testing.T) {
	c := newConfig("rules", svc("z"), svc("a"), svc("m"), svc("a", "z"))

	if got := service.IDs(c.Available()); !reflect.DeepEqual(got, []string{"z", "a", "m"}) {
		t.Errorf("Available() = %v, want [z a m]", got)
	}
	a := mustService(t, c, "a")
	if !reflect.DeepEqual(a.RequiredServices(), []string{"z"}) {
		t.Errorf("duplicate id should keep the last declaration, got %+v", a)
	}
}

func TestConfigValues(t *testing.T) {
	c := New[service.Declaration](service.List[service.Declaration]{
		{ServiceID: "spring", ConfigKeys: []string{"base_path", "profile"}},
	}, Options{Group: "rules"})

	v, ok := c.GetConfig("spring", "base_path")
	if !ok || v != "" {
		t.Errorf("GetConfig(spring, base_path) = %q, %v; want \"\", true", v, ok)
	}
	if _, ok := c.GetConfig("spring", "unset"); ok {
		t.Error("GetConfig on an absent key should report false")
	}
	if _, ok := c.GetConfig("orphan", "k"); ok {
		t.Error("GetConfig on an unknown id should report false")
	}
	if _, err := c.GetWholeConfig("orphan"); !rerrors.HasCode(err, rerrors.ConfigMissing) {
		t.Errorf("GetWholeConfig(orphan) error = %v, want CONFIG_MISSING", err)
	}

	c.SetConfig("orphan", "k", "v")
	if v, ok := c.GetConfig("orphan", "k"); !ok || v != "v" {
		t.Errorf("GetConfig(orphan, k) = %q, %v; want v, true", v, ok)
	}

	c.SetConfig("spring", "base_path", "/srv")
	whole, err := c.GetWholeConfig("spring")
	if err != nil {
		t.Fatalf("GetWholeConfig(spring) error = %v", err)
	}
	want := map[string]string{"base_path": "/srv", "profile": ""}
	if !reflect.DeepEqual(whole, want) {
		t.Errorf("GetWholeConfig(spring) = %v, want %v", whole, want)
	}

	whole["base_path"] = "mutated"
	if v, _ := c.GetConfig("spring", "base_path"); v != "/srv" {
		t.Error("GetWholeConfig must return a copy")
	}
}

func TestOptionsDefaults(t *testing.T) {
	c := New[service.Declaration](service.List[service.Declaration]{}, Options{})
	if c.Group() != "default" {
		t.Errorf("Group() = %q, want default", c.Group())
	}
	if c.SelectedKey() != "default.selected" {
		t.Errorf("SelectedKey() = %q", c.SelectedKey())
	}
	if c.ConfigPrefix() != "default.config." {
		t.Errorf("ConfigPrefix() = %q", c.ConfigPrefix())
	}
}
