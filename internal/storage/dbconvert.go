package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// marshalAliases serialises an alias slice to a JSON string.
func marshalAliases(aliases []string) (string, error) {
	if aliases == nil {
		aliases = []string{}
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return "", fmt.Errorf("marshal aliases: %w", err)
	}
	return string(b), nil
}

// unmarshalAliases parses a JSON string into an alias slice.
func unmarshalAliases(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var aliases []string
	if err := json.Unmarshal([]byte(data), &aliases); err != nil {
		return nil, fmt.Errorf("unmarshal aliases: %w", err)
	}
	if aliases == nil {
		aliases = []string{}
	}
	return aliases, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring LIKE pattern with wildcards in query escaped.
// Queries using it must declare ESCAPE '\'.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
}
