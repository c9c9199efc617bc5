package cache

import (
	"strings"
	"sync"
)

// PatternKey names a family of cache keys sharing one template, such as
// "events_stat_{}_{}_{}" with ordered substitution values. The i-th "{}"
// placeholder of the template is replaced by the i-th value, left to
// right, non-overlapping; a "{}" inside a substituted value is never
// treated as a placeholder.
type PatternKey struct {
	Template string
	Values   []string
}

// Materialize renders the concrete key this pattern instance names.
func (p PatternKey) Materialize() string {
	var b strings.Builder
	rest := p.Template
	for _, v := range p.Values {
		i := strings.Index(rest, "{}")
		if i < 0 {
			break
		}
		b.WriteString(rest[:i])
		b.WriteString(v)
		rest = rest[i+2:]
	}
	b.WriteString(rest)
	return b.String()
}

// PatternRegistry tracks, for each template, the concrete keys that were
// ever materialized and saved under it, so a family-wide invalidation
// doesn't need a SCAN over the remote store. Entries are pruned on
// invalidation rather than left to accumulate: a long-lived template
// (e.g. "events_stat_{}_{}_{}") would otherwise grow its key list forever
// as new from/to/type_id combinations are cached and never removed.
type PatternRegistry struct {
	mu       sync.Mutex
	byTmpl   map[string][]string
}

// NewPatternRegistry creates an empty registry.
func NewPatternRegistry() *PatternRegistry {
	return &PatternRegistry{byTmpl: make(map[string][]string)}
}

// Record notes that key was materialized from template, unless it is
// already recorded. Without the duplicate check a template whose
// materialized key is re-saved on every cache miss (the common case for a
// hot key) would grow its tracked list once per miss.
func (r *PatternRegistry) Record(template, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.byTmpl[template]
	for _, k := range keys {
		if k == key {
			return
		}
	}
	r.byTmpl[template] = append(keys, key)
}

// Keys returns the concrete keys currently tracked for template.
func (r *PatternRegistry) Keys(template string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.byTmpl[template]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Clear drops every tracked key for template. Called once a family-wide
// invalidation has removed those keys from both cache tiers, so the
// registry doesn't keep pointing at dead entries.
func (r *PatternRegistry) Clear(template string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byTmpl, template)
}
