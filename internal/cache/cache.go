// Package cache holds the client-side copy of the remote expense list.
//
// State is mutated only through Commands. Whoever owns the State decides the
// order in which commands are applied; the last command applied wins.
package cache

import (
	"sync"
	"time"

	"expenseview/internal/core"
)

// Command is a single mutation of State.
type Command interface {
	apply(s *State)
	// Name identifies the command in logs and metrics.
	Name() string
}

type (
	replaceCmd struct{ expenses []core.Expense }
	appendCmd  struct{ expense core.Expense }
	failCmd    struct{ err error }
)

// Replace swaps the cached list for an authoritative one and clears any
// load error.
func Replace(expenses []core.Expense) Command {
	return replaceCmd{expenses: append([]core.Expense(nil), expenses...)}
}

// Append adds one record to the end of the cached list without touching
// anything else.
func Append(e core.Expense) Command { return appendCmd{expense: e} }

// Fail records a load error. The cached list is kept as is.
func Fail(err error) Command { return failCmd{err: err} }

func (c replaceCmd) Name() string { return "replace" }
func (c appendCmd) Name() string  { return "append" }
func (c failCmd) Name() string    { return "fail" }

func (c replaceCmd) apply(s *State) {
	s.expenses = append([]core.Expense(nil), c.expenses...)
	s.err = nil
	s.loaded = true
	s.loadedAt = s.now()
}

func (c appendCmd) apply(s *State) {
	s.expenses = append(s.expenses, c.expense)
}

func (c failCmd) apply(s *State) {
	s.err = c.err
}

// State is the cached view of the expense list.
type State struct {
	mu       sync.RWMutex
	expenses []core.Expense
	err      error
	version  uint64
	loaded   bool
	loadedAt time.Time
	now      func() time.Time
}

// NewState returns an empty state.
func NewState() *State {
	return &State{now: time.Now}
}

// Apply mutates the state and returns the new version.
func (s *State) Apply(cmd Command) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd.apply(s)
	s.version++
	return s.version
}

// Snapshot returns a copy that is safe to read after the state moves on.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Expenses: append([]core.Expense(nil), s.expenses...),
		Err:      s.err,
		Version:  s.version,
		Loaded:   s.loaded,
		LoadedAt: s.loadedAt,
	}
}

// Snapshot is a read-only copy of State.
type Snapshot struct {
	Expenses []core.Expense
	Err      error
	Version  uint64
	// Loaded is true once any load has succeeded.
	Loaded   bool
	LoadedAt time.Time
}

// Total is the sum of the cached amounts.
func (s Snapshot) Total() float64 { return core.Total(s.Expenses) }

// ShowTotal reports whether the total row is displayed.
func (s Snapshot) ShowTotal() bool { return core.ShowTotal(s.Expenses) }
