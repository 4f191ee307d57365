package stylize

import "sort"

// Registry manages named style presets: a preset name maps to the style
// description sent to the backend.
type Registry struct {
	styles map[string]string
}

// NewRegistry creates a registry seeded with the built-in presets plus
// any configured extras. Extras override built-ins on name collision.
func NewRegistry(extra map[string]string) *Registry {
	styles := map[string]string{
		"sketch":     "pencil sketch, monochrome, hand-drawn linework",
		"watercolor": "soft watercolor painting, muted palette",
		"poster":     "bold flat poster art, high contrast, limited palette",
	}
	for name, desc := range extra {
		styles[name] = desc
	}
	return &Registry{styles: styles}
}

// Register adds or replaces a preset.
func (r *Registry) Register(name, description string) {
	r.styles[name] = description
}

// Get retrieves a preset description by name.
func (r *Registry) Get(name string) (string, bool) {
	desc, ok := r.styles[name]
	return desc, ok
}

// List returns all preset names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.styles))
	for name := range r.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
