package candh

import (
	"github.com/rpattn/candh/internal/domain"
)

// DebugEntry describes one property that a handler judged different and
// copied. Entries are immutable once appended.
type DebugEntry struct {
	PropertyName string
	PropertyType string
	OldValue     *string
	NewValue     *string
	Operation    domain.PropertyOpType
	Minor        bool
}

// Context accumulates the outcome of one diff walk. It is not safe for
// concurrent use; each walk owns its own Context.
type Context struct {
	debug   bool
	entries []DebugEntry
	status  EntityCopyStatus
	counts  map[domain.PropertyOpType]int
}

// NewContext creates an empty accumulator. With debug disabled the context
// still classifies and counts operations but does not retain entries.
func NewContext(debug bool) *Context {
	return &Context{
		debug:  debug,
		counts: make(map[domain.PropertyOpType]int, 3),
	}
}

// Debug reports whether entries are retained.
func (c *Context) Debug() bool {
	return c.debug
}

// Append records a modification and advances the status.
func (c *Context) Append(entry DebugEntry) {
	severity := StatusMajor
	if entry.Minor {
		severity = StatusMinor
	}
	c.status = c.status.Combine(severity)
	c.counts[entry.Operation]++

	if c.debug {
		c.entries = append(c.entries, entry)
	}
}

// record renders old/new values only when entries are retained.
func (c *Context) record(name, typeName string, oldValue, newValue any, op domain.PropertyOpType, minor bool) {
	entry := DebugEntry{
		PropertyName: name,
		PropertyType: typeName,
		Operation:    op,
		Minor:        minor,
	}
	if c.debug {
		entry.OldValue = domain.RenderPointer(oldValue)
		entry.NewValue = domain.RenderPointer(newValue)
	}
	c.Append(entry)
}

// Entries returns the retained entries in insertion order.
func (c *Context) Entries() []DebugEntry {
	out := make([]DebugEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Status returns the accumulated modification severity.
func (c *Context) Status() EntityCopyStatus {
	return c.status
}

// Count returns the number of recorded modifications.
func (c *Context) Count() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// CountOf returns the number of recorded modifications of one kind.
func (c *Context) CountOf(op domain.PropertyOpType) int {
	return c.counts[op]
}

// Changed reports whether anything was recorded.
func (c *Context) Changed() bool {
	return c.Count() > 0
}
