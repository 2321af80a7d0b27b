// Package planner converts a surviving, condition-filtered dependency
// set plus the previous entries cache into an ordered, nesting-aware
// work plan: sorted update-set entries with sequence numbers and
// parent-nesting prerequisites, a deletion set applied to disk, and the
// new entries cache to persist once the fetch succeeds.
//
// Grounded on original_source/src/gclient/cloner.rs's diff/dedup logic,
// reworked per spec §9's "equivalent cleaner form": a stack-based O(n)
// nearest-strict-prefix-ancestor pass over the sorted paths, in place
// of the original's linear scan.
package planner

import (
	"os"
	"sort"
	"strings"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// Entry is one update-set member: a dependency that must be fetched
// because at least one of its entries-cache (key, value) pairs changed
// from the previous cache.
type Entry struct {
	Path        string
	Def         types.DependencyDef
	Seq         int  // 1-based sequence number in sorted order
	RequiredSeq int  // 0 means no prerequisite
	HasRequired bool
}

// WorkPlan is the result of planning one DepsSpec evaluation.
type WorkPlan struct {
	Entries  []Entry
	NewCache types.EntriesCache
	Deleted  []string // paths removed from disk, for logging
}

// Plan validates every dependency path resolves within basePath (spec
// §5 scenario #5: PathEscape must abort before any fetch starts, not
// partway through a concurrent run), sorts the surviving deps by path,
// diffs against prevCache to compute the deletion and update sets,
// removes deleted paths from disk under basePath, and assigns
// nesting-aware sequence numbers to the update set.
func Plan(basePath string, deps map[string]types.DependencyDef, prevCache types.EntriesCache, registryBase string) (*WorkPlan, error) {
	paths := make([]string, 0, len(deps))
	for p := range deps {
		if _, err := gerrors.ResolveWithinBase(basePath, p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	newCache := types.EntriesCache{}
	for _, path := range paths {
		def := deps[path]
		if def.IsCIPD() {
			for _, pkg := range def.Packages {
				key := types.CIPDKey(path, pkg.Package)
				if _, dup := newCache[key]; dup {
					return nil, gerrors.New(gerrors.CodeDuplicate, "duplicate entries-cache key %q", key)
				}
				newCache[key] = strings.TrimRight(registryBase, "/") + "/" + pkg.Package + "@" + pkg.Version
			}
		} else {
			key := types.GitKey(path)
			if _, dup := newCache[key]; dup {
				return nil, gerrors.New(gerrors.CodeDuplicate, "duplicate entries-cache key %q", key)
			}
			newCache[key] = def.URL
		}
	}

	deleted, err := deletionPaths(basePath, prevCache, newCache)
	if err != nil {
		return nil, err
	}

	updatePaths := updateSet(paths, deps, newCache, prevCache)

	entries := assignSequence(updatePaths, deps)

	return &WorkPlan{Entries: entries, NewCache: newCache, Deleted: deleted}, nil
}

// deletionPaths computes spec §4.6 step 3's deletion set (keys removed
// or, for CIPD keys, whose version changed), maps each key back to its
// target path, deduplicates, and removes each such path recursively
// from disk. An absent path is not an error.
func deletionPaths(basePath string, prev, next types.EntriesCache) ([]string, error) {
	seen := map[string]bool{}
	var ordered []string
	addPath := func(key string) {
		path := types.PathOf(key)
		if !seen[path] {
			seen[path] = true
			ordered = append(ordered, path)
		}
	}

	for key := range prev {
		if _, ok := next[key]; !ok {
			addPath(key)
		}
	}
	for key, v := range next {
		if types.IsCIPDKey(key) && prev[key] != v {
			if _, existed := prev[key]; existed {
				addPath(key)
			}
		}
	}

	sort.Strings(ordered)
	for _, path := range ordered {
		abs, err := gerrors.ResolveWithinBase(basePath, path)
		if err != nil {
			return nil, err
		}
		if err := os.RemoveAll(abs); err != nil {
			return nil, gerrors.Wrap(gerrors.CodeIO, err, "removing stale dependency at %q", abs)
		}
	}
	return ordered, nil
}

// updateSet returns, in sorted order, the paths whose plan entry has
// at least one changed (key, value) pair relative to prevCache (spec
// §4.6 step 5): unchanged entries are left untouched on disk.
func updateSet(sortedPaths []string, deps map[string]types.DependencyDef, newCache, prevCache types.EntriesCache) []string {
	var out []string
	for _, path := range sortedPaths {
		def := deps[path]
		if entryChanged(path, def, newCache, prevCache) {
			out = append(out, path)
		}
	}
	return out
}

func entryChanged(path string, def types.DependencyDef, newCache, prevCache types.EntriesCache) bool {
	if def.IsCIPD() {
		for _, pkg := range def.Packages {
			key := types.CIPDKey(path, pkg.Package)
			if newCache[key] != prevCache[key] {
				return true
			}
		}
		return false
	}
	key := types.GitKey(path)
	return newCache[key] != prevCache[key]
}

// assignSequence assigns 1-based sequence numbers to the update-set
// paths (already sorted ascending) and computes each entry's nesting
// prerequisite: the nearest preceding path that is a strict prefix of
// it, found with a single backward-looking stack pass (spec §9).
func assignSequence(sortedPaths []string, deps map[string]types.DependencyDef) []Entry {
	entries := make([]Entry, 0, len(sortedPaths))
	var stack []int // indices into entries, paths that might still be ancestors

	for i, path := range sortedPaths {
		for len(stack) > 0 && !isStrictPrefix(entries[stack[len(stack)-1]].Path, path) {
			stack = stack[:len(stack)-1]
		}

		e := Entry{Path: path, Def: deps[path], Seq: i + 1}
		if len(stack) > 0 {
			parent := entries[stack[len(stack)-1]]
			e.RequiredSeq = parent.Seq
			e.HasRequired = true
		}
		entries = append(entries, e)
		stack = append(stack, i)
	}
	return entries
}

// isStrictPrefix reports whether candidate is a strict path-component
// prefix of path (e.g. "a/b" of "a/b/c", but not of "a/bc").
func isStrictPrefix(candidate, path string) bool {
	if candidate == path {
		return false
	}
	return strings.HasPrefix(path, candidate+"/")
}
