// Package invariant carries the -check mode flag and raises
// perr.InvariantViolation through an assert handler rather than a bare
// panic, per spec.md §7/§9 ("check/stats carried on an explicit
// configuration value threaded through construction and reporting").
// Grounded on cristian1one-virtual-vectorfs's vvfs/filesystem/fs.go and
// vvfs/filesystem/workspace/workspace.go, which thread a
// *assert.AssertHandler through their constructors instead of checking
// booleans ad hoc.
package invariant

import (
	"context"

	"github.com/ZanzyTHEbar/assert-lib"

	"ipcr-core/perr"
)

// Checker carries the check-mode configuration and the assert handler that
// backs it. A zero-value Checker has checking disabled and is always safe
// to use.
type Checker struct {
	enabled bool
	handler *assert.AssertHandler
}

// New returns a Checker with check mode set according to enabled.
func New(enabled bool) *Checker {
	c := &Checker{enabled: enabled}
	if enabled {
		c.handler = assert.NewAssertHandler()
	}
	return c
}

// Enabled reports whether check mode is on.
func (c *Checker) Enabled() bool { return c != nil && c.enabled }

// Require raises an InvariantViolation at site if cond is false. It is a
// no-op when check mode is off, so call sites can unconditionally call
// Require without guarding on Enabled() themselves.
func (c *Checker) Require(cond bool, site int, msg string, args ...any) error {
	if c == nil || !c.enabled || cond {
		return nil
	}
	err := perr.Invariant(site, msg, args...)
	c.assert(cond, err.Error())
	return err
}

// assert runs the handler's check and recovers any panic it raises: §5/§7
// require invariant violations to be a recoverable error the caller can
// retry or discard, never a process-terminating failure, regardless of how
// the underlying assert handler itself reacts to a failed condition.
func (c *Checker) assert(cond bool, msg string) {
	if c.handler == nil {
		return
	}
	defer func() { _ = recover() }()
	c.handler.Assert(context.Background(), cond, msg)
}
