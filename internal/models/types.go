package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is a list of normalized (lowercased, trimmed) string values
// stored as a JSON-encoded text column. JSON text keeps the catalog models
// portable between the Postgres runtime driver and the sqlite test driver,
// at the cost of substring-match facet queries (see repository.ListProducts).
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// Contains reports whether the list holds the normalized form of value.
func (l StringList) Contains(value string) bool {
	needle := strings.ToLower(strings.TrimSpace(value))
	for _, entry := range l {
		if entry == needle {
			return true
		}
	}
	return false
}

// NormalizeList lowercases, trims and drops empty entries from raw values,
// splitting comma-separated entries along the way.
func NormalizeList(values ...string) StringList {
	var out StringList
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
