// Package atom interns strings into small integer ids. Tokens and facts
// carry atom ids instead of string slices, so all string storage is owned
// by a single Table and records stay fixed-size.
package atom

import (
	"sync"
)

// ID identifies an interned string. ID 0 is always the empty string.
type ID uint32

// None is the id of the empty string, present in every table.
const None ID = 0

// Table owns all interned string storage. It is append-only: interned
// strings are never removed or reassigned. Lookups are safe for concurrent
// use once a string has been interned; interning itself is serialized.
type Table struct {
	mu    sync.RWMutex
	texts []string
	ids   map[string]ID
}

// NewTable returns an empty table containing only the empty string.
func NewTable() *Table {
	return &Table{
		texts: []string{""},
		ids:   map[string]ID{"": None},
	}
}

// Intern returns the id for text, adding it to the table if needed.
// Interning the same text twice returns the same id.
func (t *Table) Intern(text string) ID {
	t.mu.RLock()
	id, ok := t.ids[text]
	t.mu.RUnlock()
	if ok {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[text]; ok {
		return id
	}
	id = ID(len(t.texts))
	t.texts = append(t.texts, text)
	t.ids[text] = id
	return id
}

// InternBytes interns a byte slice without requiring the caller to convert.
// The table stores its own copy; the input may be reused afterwards.
func (t *Table) InternBytes(text []byte) ID {
	return t.Intern(string(text))
}

// Text returns the string for id. Unknown ids return the empty string and
// false.
func (t *Table) Text(id ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.texts) {
		return "", false
	}
	return t.texts[id], true
}

// Lookup returns the id for text if it has been interned.
func (t *Table) Lookup(text string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[text]
	return id, ok
}

// Len returns the number of interned strings, including the empty string.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.texts)
}

// Each calls fn for every interned string in id order. Used by snapshot
// writers; fn must not intern.
func (t *Table) Each(fn func(ID, string) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, text := range t.texts {
		if err := fn(ID(i), text); err != nil {
			return err
		}
	}
	return nil
}

// Restore rebuilds a table from texts in id order. texts[0] must be the
// empty string. Used by snapshot readers.
func Restore(texts []string) *Table {
	t := NewTable()
	for i, text := range texts {
		if i == 0 {
			continue
		}
		t.texts = append(t.texts, text)
		t.ids[text] = ID(i)
	}
	return t
}
