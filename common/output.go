package common

import (
	"fmt"
	"strings"
	"sync"
)

// Diagnostics is a process-wide, tree-shaped side channel for reporting
// background failures (principally the command bus flusher) without putting
// them on any request's latency path. It groups related messages under the
// most recently opened group name and renders them with box-drawing
// prefixes, the way a terminal test runner groups assertions under a test
// name.
type Diagnostics struct {
	mu           sync.Mutex
	groups       map[string][]string
	currentGroup string
	logger       *ContextLogger
}

// NewDiagnostics creates an empty diagnostics channel. A nil logger is
// allowed: Group and Message then record lines without logging them.
func NewDiagnostics(logger *ContextLogger) *Diagnostics {
	return &Diagnostics{
		groups: make(map[string][]string),
		logger: logger,
	}
}

// Group opens (or reopens) a named group and makes it the target for
// subsequent Message calls until another Group call switches it.
func (d *Diagnostics) Group(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.groups[name]; !ok {
		d.groups[name] = nil
	}
	d.currentGroup = name
	if d.logger != nil {
		d.logger.WithField("group", name).Info("• " + name)
	}
}

// Message appends a line to the current group and logs it with a
// box-drawing prefix: every message but the last in a group gets "├─",
// the last gets "└─", matching the way the messages print as a tree.
func (d *Diagnostics) Message(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	group := d.currentGroup
	lines := d.groups[group]

	for i := range lines {
		lines[i] = reprefix(lines[i], "├─")
	}
	lines = append(lines, prefixed(message, "└─"))
	d.groups[group] = lines

	if d.logger != nil {
		d.logger.WithField("group", group).Warn(lines[len(lines)-1])
	}
}

// Snapshot returns a copy of every group's accumulated lines, keyed by
// group name. Intended for tests and for a future /diagnostics endpoint.
func (d *Diagnostics) Snapshot() map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string][]string, len(d.groups))
	for k, v := range d.groups {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func needsPrefix(s string) bool {
	return !strings.HasPrefix(s, "├") && !strings.HasPrefix(s, "└")
}

func prefixed(s, prefix string) string {
	if !needsPrefix(s) {
		return s
	}
	return fmt.Sprintf("%s %s", prefix, s)
}

func reprefix(s, prefix string) string {
	if strings.HasPrefix(s, "├─") || strings.HasPrefix(s, "└─") {
		return prefix + strings.TrimPrefix(strings.TrimPrefix(s, "├─"), "└─")
	}
	return s
}
