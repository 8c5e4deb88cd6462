package storage

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseSortField(t *testing.T) {
	tests := []struct {
		in   string
		want SortField
		ok   bool
	}{
		{"id", SortByID, true},
		{"Name", SortByName, true},
		{"threatLevel", SortByThreatLevel, true},
		{"threat_level", SortByThreatLevel, true},
		{" status ", SortByStatus, true},
		{"createdAt", "", false},
		{"name; DROP TABLE cryptids", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSortField(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSortField(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		q    Query
		want string
	}{
		{Query{}, " ORDER BY c.id ASC"},
		{Query{Descending: true}, " ORDER BY c.id DESC"},
		{Query{Sort: SortByName}, " ORDER BY LOWER(c.name) ASC, c.id"},
		{Query{Sort: SortByThreatLevel, Descending: true}, " ORDER BY LOWER(c.threat_level) DESC, c.id"},
		{Query{Sort: SortField("1; --")}, " ORDER BY c.id ASC"},
	}
	for _, tt := range tests {
		if got := orderClause(tt.q); got != tt.want {
			t.Errorf("orderClause(%+v) = %q, want %q", tt.q, got, tt.want)
		}
	}
}

func TestFilterConditions(t *testing.T) {
	yes := true
	f := Filter{
		Classifications: []string{"Hominid", "Canid"},
		ThreatLevels:    []string{"HIGH"},
		HasImages:       &yes,
	}

	t.Run("numbered", func(t *testing.T) {
		args := &sqlArgs{numbered: true}
		conds := filterConditions(f, args)
		want := []string{
			"LOWER(cl.name) IN ($1, $2)",
			"LOWER(c.threat_level) IN ($3)",
			"EXISTS (SELECT 1 FROM images i WHERE i.cryptid_id = c.id)",
		}
		if !reflect.DeepEqual(conds, want) {
			t.Errorf("expected %q, got %q", want, conds)
		}
		if !reflect.DeepEqual(args.values, []any{"hominid", "canid", "high"}) {
			t.Errorf("unexpected args %v", args.values)
		}
		if next := args.bind(10); next != "$4" {
			t.Errorf("expected $4 after the filter arguments, got %s", next)
		}
	})

	t.Run("positional", func(t *testing.T) {
		args := &sqlArgs{}
		where := whereClause(filterConditions(f, args))
		if strings.Contains(where, "$") || strings.Count(where, "?") != 3 {
			t.Errorf("unexpected clause %q", where)
		}
		if !strings.HasPrefix(where, " WHERE ") || strings.Count(where, " AND ") != 2 {
			t.Errorf("unexpected clause %q", where)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if !(Filter{}).Empty() {
			t.Error("zero filter should be empty")
		}
		if where := whereClause(filterConditions(Filter{}, &sqlArgs{})); where != "" {
			t.Errorf("expected no clause, got %q", where)
		}
	})
}
