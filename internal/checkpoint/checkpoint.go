// Package checkpoint implements the rotating snapshot pair described in
// spec.md §4.6/§9: two on-disk names, check_A.* and check_B.*, written in
// strict alternation so that a crash mid-write can corrupt at most one of
// the two and the other always survives as a coherent snapshot.
package checkpoint

import (
	"ipcr-core/panel"
	"ipcr-core/panelio"
)

// Rotator drives the A/B rotation during MaCS ingestion. Every n sites is
// the rotation period; N==0 disables checkpointing entirely, matching the
// CLI's "-checkpoint <n>" (n=0 disables).
type Rotator struct {
	every int
	dir   string
	next  bool // false -> check_A next, true -> check_B next
	since int
}

// New returns a Rotator that snapshots every `every` sites into dir
// (an empty dir means the current working directory). every<=0 disables
// rotation; MaybeSnapshot becomes a no-op.
func New(dir string, every int) *Rotator {
	return &Rotator{every: every, dir: dir}
}

// Enabled reports whether checkpointing is on.
func (r *Rotator) Enabled() bool { return r != nil && r.every > 0 }

// MaybeSnapshot writes a checkpoint if p has appended `every` sites since
// the last one, rotating to the other of the two names.
func (r *Rotator) MaybeSnapshot(p *panel.Panel) error {
	if !r.Enabled() {
		return nil
	}
	r.since++
	if r.since < r.every {
		return nil
	}
	r.since = 0
	return r.Snapshot(p)
}

// Snapshot writes p unconditionally to the next name in rotation.
func (r *Rotator) Snapshot(p *panel.Panel) error {
	base := r.path("check_A")
	if r.next {
		base = r.path("check_B")
	}
	r.next = !r.next
	if err := panelio.WritePanel(p, base+".pbwt"); err != nil {
		return err
	}
	return panelio.WriteSites(p, base+".sites")
}

func (r *Rotator) path(name string) string {
	if r.dir == "" {
		return name
	}
	return r.dir + "/" + name
}
