package candidate

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFromMapDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  map[string]any
		expect Record
	}{
		{
			name:   "nil map",
			input:  nil,
			expect: Record{Skills: []string{}},
		},
		{
			name: "name alias and comma separated skills",
			input: map[string]any{
				"name":   "Jane Roe",
				"email":  "jane@example.com",
				"skills": "Go, SQL , ,Kubernetes",
			},
			expect: Record{
				FullName: "Jane Roe",
				Email:    "jane@example.com",
				Skills:   []string{"Go", "SQL", "Kubernetes"},
			},
		},
		{
			name: "full_name wins over name",
			input: map[string]any{
				"full_name": "John Doe",
				"name":      "Johnny",
				"skills":    []any{"Go", 42, " "},
			},
			expect: Record{
				FullName: "John Doe",
				Skills:   []string{"Go", "42"},
			},
		},
		{
			name: "non string scalars and lists are flattened",
			input: map[string]any{
				"phone":                float64(5551234),
				"education":            []any{"BSc Physics", "MSc CS"},
				"profile_completeness": float64(75),
				"unknown_field":        "ignored",
			},
			expect: Record{
				Phone:               "5551234",
				Education:           "BSc Physics, MSc CS",
				ProfileCompleteness: 75,
				Skills:              []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := FromMap(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(*got, tt.expect) {
				t.Fatalf("unexpected record:\n got %+v\nwant %+v", *got, tt.expect)
			}
		})
	}
}

func TestHasContactAndDisplayName(t *testing.T) {
	t.Parallel()

	var missing *Record
	if missing.HasContact() {
		t.Fatal("nil record must not have contact")
	}
	if missing.DisplayName() != "Unknown" {
		t.Fatalf("unexpected display name %q", missing.DisplayName())
	}

	r := &Record{FullName: "  Ann Lee ", Email: "   "}
	if r.HasContact() {
		t.Fatal("blank email must not count as contact")
	}
	if r.DisplayName() != "Ann Lee" {
		t.Fatalf("unexpected display name %q", r.DisplayName())
	}
}

func TestLoadDirOrdersByFileNameAndKeepsBrokenEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"b_bob.json":    `{"full_name": "Bob", "email": "bob@example.com"}`,
		"a_alice.json":  `{"full_name": "Alice", "email": "alice@example.com"}`,
		"c_broken.json": `{"full_name": `,
		"notes.txt":     "not a candidate",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "d_dir.json"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	entries, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantOrder := []string{"a_alice.json", "b_bob.json", "c_broken.json"}
	for i, want := range wantOrder {
		if entries[i].Source != want {
			t.Fatalf("entry %d: expected %s, got %s", i, want, entries[i].Source)
		}
	}

	if entries[0].Record == nil || entries[0].Record.FullName != "Alice" {
		t.Fatalf("unexpected first record: %+v", entries[0])
	}
	if entries[2].Err == nil || entries[2].Record != nil {
		t.Fatalf("expected broken entry to carry an error: %+v", entries[2])
	}
}

func TestLoadDirMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestSortEntriesIsStable(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Source: "b.json", Record: &Record{FullName: "first b"}},
		{Source: "a.json"},
		{Source: "b.json", Record: &Record{FullName: "second b"}},
	}

	SortEntries(entries)

	if entries[0].Source != "a.json" || entries[1].Record.FullName != "first b" || entries[2].Record.FullName != "second b" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}
