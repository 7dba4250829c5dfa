// gaminrc.go parses the original gamin daemon's line-oriented policy
// file format. Grounded on original_source's gaminrc handling (the
// `fsset`/`poll`/`notify` directives referenced throughout
// server/gam_fs.c and gam_exclude.c) — the original uses a small
// hand-rolled tokenizer rather than a library, and no pack example ships
// a config-file DSL parser library, so this stays a direct bufio.Scanner
// port rather than reaching for an ecosystem parser (documented stdlib
// exception; see DESIGN.md).
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	liberr "github.com/nabbar/famd/errors"
	"github.com/nabbar/famd/fs"
)

// ParseGaminRC reads a gaminrc-format file at path and builds the
// resulting Policy and Excludes.
//
// Recognized directives, one per line, fields separated by whitespace,
// `#` starts a comment to end of line:
//
//	fsset <fsname> <kernel|poll|none> [poll-interval-seconds]
//	poll <glob>...   # force these path patterns to be poll-only
//	notify <glob>... # force these path patterns back to kernel monitoring
func ParseGaminRC(path string) (*fs.Policy, fs.Excludes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, liberr.New(liberr.ArgError, fmt.Sprintf("open gaminrc %q", path), err)
	}
	defer f.Close()

	policy := fs.NewPolicy()
	var excludeGlobs, includeGlobs []string

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "fsset":
			if err := applyFsset(policy, fields); err != nil {
				return nil, nil, liberr.New(liberr.ArgError, fmt.Sprintf("gaminrc line %d", lineNo), err)
			}
		case "poll":
			if len(fields) < 2 {
				return nil, nil, liberr.New(liberr.ArgError, fmt.Sprintf("gaminrc line %d: poll requires at least one glob", lineNo), nil)
			}
			excludeGlobs = append(excludeGlobs, fields[1:]...)
		case "notify":
			if len(fields) < 2 {
				return nil, nil, liberr.New(liberr.ArgError, fmt.Sprintf("gaminrc line %d: notify requires at least one glob", lineNo), nil)
			}
			includeGlobs = append(includeGlobs, fields[1:]...)
		default:
			return nil, nil, liberr.New(liberr.ArgError, fmt.Sprintf("gaminrc line %d: unknown directive %q", lineNo, fields[0]), nil)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return policy, fs.NewExcludes(excludeGlobs, includeGlobs), nil
}

func applyFsset(policy *fs.Policy, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("fsset requires a filesystem name and a mode")
	}
	fsname := fs.NormalizeFSName(fields[1])

	var mode fs.MonType
	switch fields[2] {
	case "kernel":
		mode = fs.MonKernel
	case "poll":
		mode = fs.MonPoll
	case "none":
		mode = fs.MonNone
	default:
		return fmt.Errorf("fsset: unknown mode %q", fields[2])
	}

	interval := 0
	if len(fields) >= 4 {
		n, err := strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("fsset: bad poll interval %q", fields[3])
		}
		interval = n
	}

	policy.Set(fsname, mode, interval)
	return nil
}
