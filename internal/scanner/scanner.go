package scanner

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in catalog markup conventions.
const (
	LayoutCourseLeaf       = "courseleaf"
	LayoutCourseLeafLegacy = "courseleaf-legacy"
)

// Layout describes where a catalog page keeps its course title and
// description blocks. The i-th description belongs to the i-th title.
type Layout struct {
	Name                string
	TitleSelector       string
	DescriptionSelector string
}

// Registry keeps a mapping from layout names to their selectors.
type Registry struct {
	layouts map[string]Layout
}

// NewRegistry builds a registry preloaded with the known layouts.
func NewRegistry() *Registry {
	r := &Registry{layouts: map[string]Layout{}}
	r.Register(Layout{
		Name:                LayoutCourseLeaf,
		TitleSelector:       ".courseblocktitle",
		DescriptionSelector: ".courseblockdesc",
	})
	r.Register(Layout{
		Name:                LayoutCourseLeafLegacy,
		TitleSelector:       ".coursetitle",
		DescriptionSelector: ".coursedesc",
	})
	return r
}

// Register adds or replaces a layout.
func (r *Registry) Register(layout Layout) {
	if r.layouts == nil {
		r.layouts = map[string]Layout{}
	}
	r.layouts[strings.ToLower(layout.Name)] = layout
}

// Resolve returns a layout by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Layout, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = LayoutCourseLeaf
	}
	if layout, ok := r.layouts[key]; ok {
		return layout, nil
	}
	return Layout{}, fmt.Errorf("catalog layout %s is not registered (known: %s)", name, strings.Join(r.Names(), ", "))
}

// Names lists registered layouts in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.layouts))
	for name := range r.layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
