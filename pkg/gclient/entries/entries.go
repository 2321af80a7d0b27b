// Package entries reads and writes the persistent ".gclient_entries"
// file that drives differential updates: a single statement
// "entries = <JSON-object-literal>" mapping entry keys to
// "url@revision"-style values.
//
// Grounded on original_source/src/gclient/entries_cache.rs (the
// "entries = " prefix format, pretty-printed JSON body) and
// pkg/session/file.go's mutex-guarded JSON persistence pattern,
// extended here with temp-file+rename atomicity per spec §4.7's
// explicit write-after-success requirement.
package entries

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/types"
)

// FileName is the entries-cache file name at the workspace root.
const FileName = ".gclient_entries"

const prefix = "entries ="

// Path returns the entries-cache file path under base.
func Path(base string) string {
	return filepath.Join(base, FileName)
}

// Read loads the entries cache at path. A missing file is not an
// error: it is treated as an empty cache (spec §4.7: "no .gclient_entries
// is valid").
func Read(path string) (types.EntriesCache, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return types.EntriesCache{}, nil
	}
	if err != nil {
		return nil, gerrors.Wrap(gerrors.CodeIO, err, "reading entries cache %q", path)
	}

	text := strings.TrimSpace(string(data))
	idx := strings.Index(text, prefix)
	if idx < 0 {
		return nil, gerrors.New(gerrors.CodeConfig, "entries cache %q missing 'entries =' assignment", path)
	}
	body := strings.TrimSpace(text[idx+len(prefix):])

	cache := types.EntriesCache{}
	if body == "" {
		return cache, nil
	}
	if err := json.Unmarshal([]byte(body), &cache); err != nil {
		return nil, gerrors.Wrap(gerrors.CodeConfig, err, "parsing entries cache %q", path)
	}
	return cache, nil
}

// Write persists cache to path atomically: it writes to a temp file in
// the same directory and renames it into place, so a crash mid-write
// never corrupts the previous cache (spec §4.7: the cache is rewritten
// only after all fetches succeed).
func Write(path string, cache types.EntriesCache) error {
	body, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "encoding entries cache")
	}
	content := prefix + " " + string(body) + "\n"

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".gclient_entries.tmp-*")
	if err != nil {
		return gerrors.Wrap(gerrors.CodeIO, err, "creating temp entries cache in %q", dir)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return gerrors.Wrap(gerrors.CodeIO, err, "writing temp entries cache %q", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return gerrors.Wrap(gerrors.CodeIO, err, "closing temp entries cache %q", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return gerrors.Wrap(gerrors.CodeIO, err, "renaming entries cache into place at %q", path)
	}
	return nil
}
