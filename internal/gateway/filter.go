package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// Cond is an equality condition on one column.
type Cond struct {
	Column string
	Value  any
}

// Eq builds an equality condition.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// InCond matches a column against a set of values.
type InCond struct {
	Column string
	Values []any
}

// Filter narrows a Select. The zero Filter selects every row.
type Filter struct {
	Eq      []Cond
	In      []InCond
	OrderBy string
	Desc    bool
	Limit   int
}

// Where returns a filter matching column = value.
func Where(column string, value any) Filter {
	return Filter{}.Where(column, value)
}

// Where adds an equality condition.
func (f Filter) Where(column string, value any) Filter {
	f.Eq = append(append([]Cond{}, f.Eq...), Eq(column, value))
	return f
}

// WhereIn adds a column IN (values...) condition. An empty value set
// matches nothing.
func (f Filter) WhereIn(column string, values ...string) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	f.In = append(append([]InCond{}, f.In...), InCond{Column: column, Values: vs})
	return f
}

// Order sorts by column, descending when desc is true.
func (f Filter) Order(column string, desc bool) Filter {
	f.OrderBy = column
	f.Desc = desc
	return f
}

// Take limits the number of rows returned.
func (f Filter) Take(n int) Filter {
	f.Limit = n
	return f
}

// build renders the WHERE/ORDER BY/LIMIT tail of a SELECT. Column names are
// checked against allowed so callers cannot inject SQL through them.
func (f Filter) build(allowed map[string]bool) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range f.Eq {
		if !allowed[c.Column] {
			return "", nil, fmt.Errorf("unknown column %q", c.Column)
		}
		clauses = append(clauses, c.Column+" = ?")
		args = append(args, c.Value)
	}
	for _, in := range f.In {
		if !allowed[in.Column] {
			return "", nil, fmt.Errorf("unknown column %q", in.Column)
		}
		if len(in.Values) == 0 {
			clauses = append(clauses, "1 = 0")
			continue
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(in.Values)), ", ")
		clauses = append(clauses, in.Column+" IN ("+marks+")")
		args = append(args, in.Values...)
	}

	var b strings.Builder
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	if f.OrderBy != "" {
		if !allowed[f.OrderBy] {
			return "", nil, fmt.Errorf("unknown column %q", f.OrderBy)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(f.OrderBy)
		if f.Desc {
			b.WriteString(" DESC")
		}
		// Stable order for rows sharing a sort key.
		if f.OrderBy != "id" {
			b.WriteString(", id")
			if f.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	if f.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(f.Limit))
	}
	return b.String(), args, nil
}
