package core

import (
	"errors"
	"strings"
	"testing"
)

func TestPlanPageRead(t *testing.T) {
	tests := []struct {
		name      string
		id        TableIdentity
		limit     int
		want      string
		wantLimit bool
		wantID    bool
	}{
		{"default page", eventsTable, 1000, "SELECT * FROM default.events LIMIT 1000", false, false},
		{"single row", eventsTable, 1, "SELECT * FROM default.events LIMIT 1", false, false},
		{"reserved names quoted", TableIdentity{"select", "order"}, 10, "SELECT * FROM `select`.`order` LIMIT 10", false, false},
		{"zero limit", eventsTable, 0, "", true, false},
		{"negative limit", eventsTable, -5, "", true, false},
		{"missing database", TableIdentity{Table: "events"}, 10, "", false, true},
		{"missing table", TableIdentity{Database: "default"}, 10, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanPageRead(tt.id, tt.limit)

			var limitErr *InvalidLimitError
			if gotLimit := errors.As(err, &limitErr); gotLimit != tt.wantLimit {
				t.Fatalf("PlanPageRead() error = %v, want InvalidLimitError %v", err, tt.wantLimit)
			}
			var idErr *InvalidIdentityError
			if gotID := errors.As(err, &idErr); gotID != tt.wantID {
				t.Fatalf("PlanPageRead() error = %v, want InvalidIdentityError %v", err, tt.wantID)
			}
			if got != tt.want {
				t.Errorf("PlanPageRead() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"25", 25, false},
		{" 100 ", 100, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLimit(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLimit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPlanStatsRead(t *testing.T) {
	got, err := PlanStatsRead(eventsTable)
	if err != nil {
		t.Fatalf("PlanStatsRead() error = %v", err)
	}
	for _, want := range []string{
		"sum(rows) AS total_rows",
		"count() AS part_count",
		"formatReadableSize(sum(data_compressed_bytes)) AS compressed_size",
		"formatReadableSize(sum(data_uncompressed_bytes)) AS uncompressed_size",
		"FROM system.parts",
		"database = 'default'",
		"table = 'events'",
		"AND active",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("PlanStatsRead() = %s, missing %q", got, want)
		}
	}

	got, err = PlanStatsRead(TableIdentity{"o'neil", "t"})
	if err != nil {
		t.Fatalf("PlanStatsRead() error = %v", err)
	}
	if !strings.Contains(got, `database = 'o\'neil'`) {
		t.Errorf("PlanStatsRead() did not escape database: %s", got)
	}
}

func TestPlanMutations(t *testing.T) {
	pred := "id = '42' AND name = 'click'"

	tests := []struct {
		name string
		plan func() (string, error)
		want string
	}{
		{
			name: "update",
			plan: func() (string, error) { return PlanUpdate(eventsTable, pred, "name = 'tap'") },
			want: "ALTER TABLE default.events UPDATE name = 'tap' WHERE id = '42' AND name = 'click'",
		},
		{
			name: "update with sync",
			plan: func() (string, error) {
				return PlanUpdate(eventsTable, pred, "name = 'tap'", WithMutationsSync(2))
			},
			want: "ALTER TABLE default.events UPDATE name = 'tap' WHERE id = '42' AND name = 'click' SETTINGS mutations_sync = 2",
		},
		{
			name: "delete",
			plan: func() (string, error) { return PlanDelete(eventsTable, pred, WithMutationsSync(1)) },
			want: "ALTER TABLE default.events DELETE WHERE id = '42' AND name = 'click' SETTINGS mutations_sync = 1",
		},
		{
			name: "delete async",
			plan: func() (string, error) { return PlanDelete(eventsTable, pred, WithMutationsSync(0)) },
			want: "ALTER TABLE default.events DELETE WHERE id = '42' AND name = 'click'",
		},
		{
			name: "drop",
			plan: func() (string, error) { return PlanDrop(scratchTable) },
			want: "DROP TABLE tmp.scratch",
		},
		{
			name: "export",
			plan: func() (string, error) { return PlanExport(eventsTable, 50000) },
			want: "SELECT * FROM default.events LIMIT 50000",
		},
		{
			name: "match count",
			plan: func() (string, error) { return PlanMatchCount(eventsTable, pred) },
			want: "SELECT count() AS matched FROM default.events WHERE id = '42' AND name = 'click'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.plan()
			if err != nil {
				t.Fatalf("plan error = %v", err)
			}
			if got != tt.want {
				t.Errorf("plan = %s\nwant   %s", got, tt.want)
			}
		})
	}
}

func TestPlanMutations_RejectEmpty(t *testing.T) {
	if _, err := PlanUpdate(eventsTable, "", "name = 'tap'"); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("PlanUpdate(empty predicate) error = %v", err)
	}
	if _, err := PlanUpdate(eventsTable, "id = 1", " "); !errors.Is(err, ErrEmptyChanges) {
		t.Errorf("PlanUpdate(empty set) error = %v", err)
	}
	if _, err := PlanDelete(eventsTable, ""); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("PlanDelete(empty predicate) error = %v", err)
	}
	var idErr *InvalidIdentityError
	if _, err := PlanDrop(TableIdentity{Database: "tmp"}); !errors.As(err, &idErr) {
		t.Errorf("PlanDrop(no table) error = %v", err)
	}
	var limitErr *InvalidLimitError
	if _, err := PlanExport(eventsTable, 0); !errors.As(err, &limitErr) {
		t.Errorf("PlanExport(0) error = %v", err)
	}
}

func TestPlanListTables(t *testing.T) {
	if got := PlanListTables(false); !strings.Contains(got, "database NOT IN ('system'") {
		t.Errorf("PlanListTables(false) = %s, want system databases excluded", got)
	}
	if got := PlanListTables(true); strings.Contains(got, "NOT IN") {
		t.Errorf("PlanListTables(true) = %s, want no filter", got)
	}
	if got := PlanOverviewStats(); !strings.Contains(got, "GROUP BY database") {
		t.Errorf("PlanOverviewStats() = %s", got)
	}
}
