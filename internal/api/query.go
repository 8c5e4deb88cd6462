package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"cryptids/internal/models"
	"cryptids/internal/storage"
)

var (
	summaryFields = fieldSet("id", "name", "aliases", "classification", "status",
		"threat_level", "has_images", "short_description")
	detailFields = fieldSet("id", "name", "aliases", "classification", "status",
		"threat_level", "has_images", "short_description", "description")
)

func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// listValues splits repeated and comma-separated values of the first key
// present, dropping blanks.
func listValues(q url.Values, keys ...string) []string {
	var out []string
	for _, key := range keys {
		for _, raw := range q[key] {
			for _, v := range strings.Split(raw, ",") {
				if v = strings.TrimSpace(v); v != "" {
					out = append(out, v)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return out
}

func firstValue(q url.Values, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

// queryFromValues reads the filter, sort and order parameters shared by the
// list and search endpoints. Details name each rejected parameter.
func queryFromValues(q url.Values) (storage.Query, map[string]string) {
	var query storage.Query
	details := map[string]string{}

	query.Filter = storage.Filter{
		Classifications: listValues(q, "classification"),
		Statuses:        listValues(q, "status"),
		ThreatLevels:    listValues(q, "threat_level", "threatLevel"),
	}
	if v := firstValue(q, "has_images", "hasImages"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			details["has_images"] = "must be true or false"
		} else {
			query.Filter.HasImages = &b
		}
	}

	if v := firstValue(q, "sort", "sortBy"); v != "" {
		field, ok := storage.ParseSortField(v)
		if !ok {
			details["sort"] = "must be one of " + strings.Join(storage.SortFields(), ", ")
		} else {
			query.Sort = field
		}
	}

	switch strings.ToLower(firstValue(q, "order", "sortOrder")) {
	case "", "asc":
	case "desc":
		query.Descending = true
	default:
		details["order"] = "must be asc or desc"
	}

	return query, details
}

// parseQuery combines pagination with the listing parameters, writing a 400
// response on the first class of invalid input.
func parseQuery(w http.ResponseWriter, r *http.Request) (storage.Query, bool) {
	page, ok := parsePage(w, r)
	if !ok {
		return storage.Query{}, false
	}
	query, details := queryFromValues(r.URL.Query())
	if len(details) > 0 {
		writeError(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid query parameters", details)
		return storage.Query{}, false
	}
	query.Page = page
	return query, true
}

// parseFields reads the fields parameter. A nil result selects every field.
func parseFields(w http.ResponseWriter, r *http.Request, allowed map[string]bool) ([]string, bool) {
	fields := listValues(r.URL.Query(), "fields")
	if len(fields) == 0 {
		return nil, true
	}
	for i, f := range fields {
		f = strings.ToLower(f)
		if f == "threatlevel" {
			f = "threat_level"
		}
		if !allowed[f] {
			names := make([]string, 0, len(allowed))
			for n := range allowed {
				names = append(names, n)
			}
			sort.Strings(names)
			writeError(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid field selection",
				map[string]string{"fields": "unknown field " + strconv.Quote(fields[i]) + "; allowed: " + strings.Join(names, ", ")})
			return nil, false
		}
		fields[i] = f
	}
	return fields, true
}

// project keeps only the selected JSON members of v.
func project(v any, fields []string) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if m, ok := all[f]; ok {
			out[f] = m
		}
	}
	return out, nil
}
