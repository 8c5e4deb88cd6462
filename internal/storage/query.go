package storage

import (
	"sort"
	"strconv"
	"strings"

	"cryptids/internal/models"
)

// RelatedLimit caps the cryptids returned by RelatedCryptids.
const RelatedLimit = 5

// SortField names a column cryptid listings can be ordered by.
type SortField string

const (
	SortByID          SortField = "id"
	SortByName        SortField = "name"
	SortByStatus      SortField = "status"
	SortByThreatLevel SortField = "threat_level"
)

var sortAliases = map[string]SortField{
	"id":           SortByID,
	"name":         SortByName,
	"status":       SortByStatus,
	"threat_level": SortByThreatLevel,
	"threatlevel":  SortByThreatLevel,
}

// ParseSortField accepts snake_case and camelCase field names.
func ParseSortField(s string) (SortField, bool) {
	f, ok := sortAliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// SortFields lists the orderable fields.
func SortFields() []string {
	return []string{string(SortByID), string(SortByName), string(SortByStatus), string(SortByThreatLevel)}
}

// Filter narrows a cryptid listing. Values within a field are alternatives;
// fields are combined. Matching is case-insensitive.
type Filter struct {
	Classifications []string
	Statuses        []string
	ThreatLevels    []string
	HasImages       *bool
}

// Empty reports whether the filter matches every cryptid.
func (f Filter) Empty() bool {
	return len(f.Classifications) == 0 && len(f.Statuses) == 0 && len(f.ThreatLevels) == 0 && f.HasImages == nil
}

// Query describes a filtered, ordered page of cryptids. The zero Sort orders
// by id.
type Query struct {
	Filter     Filter
	Sort       SortField
	Descending bool
	Page       Page
}

func (f Filter) matches(c *models.Cryptid) bool {
	if len(f.Classifications) > 0 && !containsFold(f.Classifications, c.Classification) {
		return false
	}
	if len(f.Statuses) > 0 && !containsFold(f.Statuses, c.Status) {
		return false
	}
	if len(f.ThreatLevels) > 0 && !containsFold(f.ThreatLevels, c.ThreatLevel) {
		return false
	}
	if f.HasImages != nil && *f.HasImages != c.HasImages {
		return false
	}
	return true
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// sortCryptids orders cryptids in place by q's sort field, ties broken by id.
func sortCryptids(cryptids []*models.Cryptid, q Query) {
	key := func(c *models.Cryptid) string {
		switch q.Sort {
		case SortByName:
			return strings.ToLower(c.Name)
		case SortByStatus:
			return strings.ToLower(c.Status)
		case SortByThreatLevel:
			return strings.ToLower(c.ThreatLevel)
		default:
			return ""
		}
	}
	_, keyed := sortColumns[q.Sort]
	idDescending := q.Descending && !keyed
	sort.SliceStable(cryptids, func(i, j int) bool {
		a, b := cryptids[i], cryptids[j]
		if ka, kb := key(a), key(b); ka != kb {
			return (ka < kb) != q.Descending
		}
		return (a.ID < b.ID) != idDescending
	})
}

// sqlArgs collects bind arguments, rendering "?" or "$n" placeholders.
type sqlArgs struct {
	values   []any
	numbered bool
}

func (a *sqlArgs) bind(v any) string {
	a.values = append(a.values, v)
	if a.numbered {
		return "$" + strconv.Itoa(len(a.values))
	}
	return "?"
}

func (a *sqlArgs) bindList(values []string) string {
	marks := make([]string, 0, len(values))
	for _, v := range values {
		marks = append(marks, a.bind(strings.ToLower(v)))
	}
	return "(" + strings.Join(marks, ", ") + ")"
}

// filterConditions renders f as SQL conditions over the c/cl aliases used by
// the cryptid queries.
func filterConditions(f Filter, args *sqlArgs) []string {
	var conds []string
	if len(f.Classifications) > 0 {
		conds = append(conds, "LOWER(cl.name) IN "+args.bindList(f.Classifications))
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, "LOWER(c.status) IN "+args.bindList(f.Statuses))
	}
	if len(f.ThreatLevels) > 0 {
		conds = append(conds, "LOWER(c.threat_level) IN "+args.bindList(f.ThreatLevels))
	}
	if f.HasImages != nil {
		exists := "EXISTS (SELECT 1 FROM images i WHERE i.cryptid_id = c.id)"
		if !*f.HasImages {
			exists = "NOT " + exists
		}
		conds = append(conds, exists)
	}
	return conds
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

var sortColumns = map[SortField]string{
	SortByName:        "LOWER(c.name)",
	SortByStatus:      "LOWER(c.status)",
	SortByThreatLevel: "LOWER(c.threat_level)",
}

// orderClause only emits columns from sortColumns, never caller input.
func orderClause(q Query) string {
	dir := " ASC"
	if q.Descending {
		dir = " DESC"
	}
	col, ok := sortColumns[q.Sort]
	if !ok {
		return " ORDER BY c.id" + dir
	}
	return " ORDER BY " + col + dir + ", c.id"
}

const cryptidColumns = `
	c.id, c.name, c.aliases, c.classification_id, cl.name, c.status, c.threat_level,
	c.short_description, c.description,
	EXISTS (SELECT 1 FROM images i WHERE i.cryptid_id = c.id)`

const cryptidFrom = `
FROM cryptids c
JOIN classifications cl ON cl.id = c.classification_id`
