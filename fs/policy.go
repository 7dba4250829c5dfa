// Package fs holds the external-collaborator boundary spec.md treats as out
// of scope to parse (config file) but whose semantics flow into the
// engine: per-filesystem monitoring policy and path-pattern exclude/
// include lists. Grounded on original_source/server/gam_fs.c and
// gam_excludes.c.
package fs

import (
	"path/filepath"
	"strings"
	"sync"
)

// MonType is the monitoring strategy selected for a filesystem, mirroring
// gam_fs.c's GFS_MT_* enumeration.
type MonType int

const (
	// MonKernel: use the kernel backend (fsnotify) for paths on this fs.
	MonKernel MonType = iota
	// MonPoll: always poll, never arm a kernel watch.
	MonPoll
	// MonNone: do not monitor at all (fs explicitly disabled).
	MonNone
)

func (m MonType) String() string {
	switch m {
	case MonKernel:
		return "kernel"
	case MonPoll:
		return "poll"
	case MonNone:
		return "none"
	default:
		return "unknown"
	}
}

// entry is one `fsset` directive: a filesystem name, its monitor type, and
// an optional poll-interval override in seconds (0 means "use default").
type entry struct {
	mode          MonType
	pollSeconds   int
}

// Policy maps a filesystem type name (as returned by statfs) to its
// monitoring strategy, populated from the gaminrc `fsset` directives
// (spec §6).
type Policy struct {
	mu      sync.RWMutex
	byFS    map[string]entry
	default_ entry
}

// NewPolicy returns a Policy defaulting every unlisted filesystem to
// kernel-backed monitoring.
func NewPolicy() *Policy {
	return &Policy{byFS: map[string]entry{}, default_: entry{mode: MonKernel}}
}

// Set installs (or overrides) the policy for a named filesystem type.
func (p *Policy) Set(fsname string, mode MonType, pollSeconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byFS[fsname] = entry{mode: mode, pollSeconds: pollSeconds}
}

// ModeFor returns the monitoring strategy for a filesystem type name.
func (p *Policy) ModeFor(fsname string) MonType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.byFS[fsname]; ok {
		return e.mode
	}
	return p.default_.mode
}

// PollIntervalFor returns the per-filesystem poll interval override in
// seconds, or 0 when the default interval should be used.
func (p *Policy) PollIntervalFor(fsname string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.byFS[fsname]; ok {
		return e.pollSeconds
	}
	return 0
}

// Excludes matches paths against the exclude/include glob lists populated
// from gaminrc's `poll <glob>...` (force-poll, i.e. exclude from kernel)
// and `notify <glob>...` (force-include) directives.
//
// This is the interface boundary spec.md §1/§6 calls out as an external
// collaborator: famd supplies one simple implementation (below), but any
// component consuming it (tree/poll/dispatcher) only ever sees Match.
type Excludes interface {
	// Match reports whether path should be excluded from kernel watching.
	Match(path string) bool
}

type globExcludes struct {
	exclude []string
	include []string
}

// NewExcludes builds an Excludes from glob pattern lists, evaluated with
// path/filepath.Match the way the original's fnmatch-based gam_exclude.c
// did for shell-style patterns.
func NewExcludes(excludeGlobs, includeGlobs []string) Excludes {
	return &globExcludes{exclude: excludeGlobs, include: includeGlobs}
}

func (g *globExcludes) Match(path string) bool {
	for _, pat := range g.include {
		if ok, _ := filepath.Match(pat, path); ok {
			return false
		}
	}
	for _, pat := range g.exclude {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
	}
	return false
}

// NoExcludes is the trivial Excludes that never excludes anything, used
// when no gaminrc exclude/include directives are configured.
var NoExcludes Excludes = noExcludes{}

type noExcludes struct{}

func (noExcludes) Match(string) bool { return false }

// NormalizeFSName lower-cases and trims a filesystem type name the way it
// is reported across platforms (e.g. "NFS", "nfs4") so gaminrc `fsset`
// directives match case-insensitively.
func NormalizeFSName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
