// Package introspect holds the dialect-neutral schema model produced by the
// catalog extractors and consumed by the documentation pipeline.
package introspect

import "strings"

// Column represents a table column in catalog order.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // dialect-native type name
	Nullable bool   `json:"nullable"`
	PK       bool   `json:"pk"`
	FK       bool   `json:"fk"`
	FKTable  string `json:"fk_table,omitempty"`
	FKColumn string `json:"fk_column,omitempty"`
	Included bool   `json:"included"`
}

// Table represents a database table and its columns.
type Table struct {
	Schema   string   `json:"schema,omitempty"`
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	Included bool     `json:"included"`
}

// QualifiedName returns schema.name, or just name when there is no schema.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// SetIncluded marks the table and every one of its columns.
// Column inclusion always follows the table.
func (t *Table) SetIncluded(included bool) {
	t.Included = included
	for i := range t.Columns {
		t.Columns[i].Included = included
	}
}

// Select includes the table and all of its columns.
func (t *Table) Select() { t.SetIncluded(true) }

// Deselect excludes the table and all of its columns.
func (t *Table) Deselect() { t.SetIncluded(false) }

// IncludedColumns returns the included columns in catalog order.
func (t Table) IncludedColumns() []Column {
	var out []Column
	for _, c := range t.Columns {
		if c.Included {
			out = append(out, c)
		}
	}
	return out
}

// KeyColumns returns the included primary-key and foreign-key columns.
func (t Table) KeyColumns() (pks, fks []Column) {
	for _, c := range t.Columns {
		if !c.Included {
			continue
		}
		if c.PK {
			pks = append(pks, c)
		}
		if c.FK {
			fks = append(fks, c)
		}
	}
	return pks, fks
}

// Selected returns the included tables, keeping their order.
func Selected(tables []Table) []Table {
	var out []Table
	for _, t := range tables {
		if t.Included {
			out = append(out, t)
		}
	}
	return out
}

// SelectAll includes every table.
func SelectAll(tables []Table) {
	for i := range tables {
		tables[i].Select()
	}
}

// DeselectAll excludes every table.
func DeselectAll(tables []Table) {
	for i := range tables {
		tables[i].Deselect()
	}
}

// SelectByName includes exactly the tables whose name or qualified name is
// in names (case-insensitive) and excludes the rest. It returns the names
// that matched no table.
func SelectByName(tables []Table, names []string) (unknown []string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			want[n] = false
		}
	}
	for i := range tables {
		t := &tables[i]
		q, n := strings.ToLower(t.QualifiedName()), strings.ToLower(t.Name)
		_, byQ := want[q]
		_, byN := want[n]
		t.SetIncluded(byQ || byN)
		if byQ {
			want[q] = true
		}
		if byN {
			want[n] = true
		}
	}
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if matched, ok := want[key]; ok && !matched {
			unknown = append(unknown, n)
			delete(want, key)
		}
	}
	return unknown
}
