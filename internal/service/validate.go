package service

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks declarations for empty ids, duplicate ids and blank
// requirement entries. Unresolved requirements and cycles are not errors;
// use Inspect to report them.
func Validate(declarations []Declaration) error {
	seen := make(map[string]int, len(declarations))
	var problems []string

	for i, d := range declarations {
		id := strings.TrimSpace(d.ServiceID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("service #%d has no id", i+1))
			continue
		}
		if first, dup := seen[id]; dup {
			problems = append(problems, fmt.Sprintf("service %q declared twice (#%d and #%d)", id, first+1, i+1))
			continue
		}
		seen[id] = i

		for _, req := range d.Requires {
			if strings.TrimSpace(req) == "" {
				problems = append(problems, fmt.Sprintf("service %q has an empty requirement", id))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Report summarizes the dependency structure of a set of services.
type Report struct {
	// Unresolved maps a service id to required ids that resolve nowhere.
	Unresolved map[string][]string `json:"unresolved,omitempty"`

	// Cycles lists dependency cycles, each starting at its smallest id.
	Cycles [][]string `json:"cycles,omitempty"`
}

// Clean reports whether nothing was found.
func (r Report) Clean() bool {
	return len(r.Unresolved) == 0 && len(r.Cycles) == 0
}

// Inspect reports unresolved requirements and cycles. known is consulted
// for ids that are not in services, so requirements satisfied by another
// group are not reported; it may be nil.
func Inspect[T Service](services []T, known func(id string) bool) Report {
	local := make(map[string]bool, len(services))
	for _, s := range services {
		local[s.ID()] = true
	}

	report := Report{Unresolved: map[string][]string{}}
	for _, s := range services {
		for _, req := range s.RequiredServices() {
			if local[req] || (known != nil && known(req)) {
				continue
			}
			report.Unresolved[s.ID()] = append(report.Unresolved[s.ID()], req)
		}
	}
	if len(report.Unresolved) == 0 {
		report.Unresolved = nil
	}

	report.Cycles = FindCycles(services)
	return report
}

// FindCycles returns the dependency cycles among services. Requirements on
// ids outside the slice are ignored.
func FindCycles[T Service](services []T) [][]string {
	const (
		white = iota
		grey
		black
	)

	requires := make(map[string][]string, len(services))
	ids := make([]string, 0, len(services))
	for _, s := range services {
		if _, dup := requires[s.ID()]; dup {
			continue
		}
		requires[s.ID()] = s.RequiredServices()
		ids = append(ids, s.ID())
	}
	sort.Strings(ids)

	color := make(map[string]int, len(ids))
	seen := make(map[string]bool)
	var (
		cycles [][]string
		stack  []string
		visit  func(id string)
	)

	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)

		for _, next := range requires[id] {
			if _, ok := requires[next]; !ok {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case grey:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycle := canonicalCycle(stack[start:])
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

// canonicalCycle rotates a cycle so it starts at its smallest id.
func canonicalCycle(cycle []string) []string {
	first := 0
	for i, id := range cycle {
		if id < cycle[first] {
			first = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[first:]...)
	out = append(out, cycle[:first]...)
	return out
}
