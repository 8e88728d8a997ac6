// Package watch contains the background jobs that keep Snappier's JSON files
// usable and report server health: the HTTPS upgrader, the schedule
// sanitizer and the health watcher.
package watch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// ErrDecode is returned when a target file is not valid JSON.
var ErrDecode = errors.New("decode json file")

func readJSON(fs afero.Fs, path string) (any, []byte, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	// Keep large integers such as epoch milliseconds intact.
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, raw, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return doc, raw, nil
}

func encodeJSON(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeAtomic writes to path+".tmp" and renames it over path.
func writeAtomic(fs afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return nil
}

// rewriteStrings applies fn to every string value of a decoded document in
// place. Object keys are left untouched.
func rewriteStrings(v any, fn func(string) string) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if s, ok := child.(string); ok {
				if ns := fn(s); ns != s {
					t[k] = ns
					changed = true
				}
				continue
			}
			if rewriteStrings(child, fn) {
				changed = true
			}
		}
	case []any:
		for i, child := range t {
			if s, ok := child.(string); ok {
				if ns := fn(s); ns != s {
					t[i] = ns
					changed = true
				}
				continue
			}
			if rewriteStrings(child, fn) {
				changed = true
			}
		}
	}
	return changed
}
