package candidate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one candidate file as seen by the scheduler. Exactly one of Record
// and Err is set.
type Entry struct {
	// Source is the file name; it is the sort key for scheduling order.
	Source string
	Record *Record
	Err    error
}

// LoadDir reads every *.json file in dir, ordered lexicographically by file
// name. Unreadable or malformed files are returned as entries carrying Err so
// that callers can account for them. Only a failure to list dir is an error.
func LoadDir(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list candidates in %q: %w", dir, err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".json") {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entry := Entry{Source: name}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			entry.Err = fmt.Errorf("read %s: %w", name, err)
			entries = append(entries, entry)
			continue
		}

		record, err := Parse(data)
		if err != nil {
			entry.Err = fmt.Errorf("%s: %w", name, err)
		} else {
			entry.Record = record
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// SortEntries orders entries by Source, keeping the relative order of equal keys.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Source < entries[j].Source
	})
}
