package core

import (
	"fmt"
	"strings"
)

// DBOrdering is one `ORDER BY` term. Field must be validated against an allow-list before use.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrderings parses a comma separated list of fields, `-` prefixed for descending order,
// eg. "-created_at,name". Fields not in allowed are rejected.
func ParseOrderings(s string, allowed ...string) ([]DBOrdering, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var orderings []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !contains(allowed, field) {
			return nil, NewFieldError("ordering", fmt.Sprintf("cannot order by %q", field))
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings, nil
}

// JoinOrderings renders orderings as an `ORDER BY` clause body.
func JoinOrderings(orderings []DBOrdering) string {
	terms := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		terms = append(terms, ord.String())
	}
	return strings.Join(terms, ", ")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
