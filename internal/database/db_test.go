package database

import (
	"slices"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_indexes.up.sql":             {Data: []byte("CREATE INDEX ...")},
		"001_tracker_snapshots.up.sql":   {Data: []byte("CREATE TABLE ...")},
		"001_tracker_snapshots.down.sql": {Data: []byte("DROP TABLE ...")},
		"README.md":                      {Data: []byte("notes")},
		"archive/000_old.up.sql":         {Data: []byte("--")},
	}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{"fresh database", map[string]bool{}, []string{"001_tracker_snapshots.up.sql", "002_indexes.up.sql"}},
		{"partially applied", map[string]bool{"001_tracker_snapshots.up.sql": true}, []string{"002_indexes.up.sql"}},
		{"fully applied", map[string]bool{"001_tracker_snapshots.up.sql": true, "002_indexes.up.sql": true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pendingMigrations(fsys, tt.applied)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("pendingMigrations = %v, want %v", got, tt.want)
			}
		})
	}
}
