// Package batch partitions a table selection into batches small enough to
// be described in a single generation request.
//
// Placement is greedy over tables sorted by descending weight. It aims at
// roughly balanced batches and makes no attempt at optimal packing.
package batch

import (
	"sort"
	"unicode/utf8"

	"dbmarkdown/internal/introspect"
)

const (
	DefaultMaxTables = 5
	DefaultMaxWeight = 8000

	// columnWeight approximates the prompt characters one column line costs.
	columnWeight = 20
)

// Batch is a non-empty, ordered group of tables.
type Batch struct {
	Index  int // 0-based position in the plan
	Tables []introspect.Table
	Weight int
}

// Planner holds the batch limits.
type Planner struct {
	MaxTables int
	MaxWeight int
}

// DefaultPlanner returns a Planner with the default limits.
func DefaultPlanner() Planner {
	return Planner{MaxTables: DefaultMaxTables, MaxWeight: DefaultMaxWeight}
}

// Weight estimates how much prompt text t will consume.
func Weight(t introspect.Table) int {
	return utf8.RuneCountInString(t.Name) + columnWeight*len(t.Columns)
}

// Plan partitions tables with the default limits.
func Plan(tables []introspect.Table) []Batch {
	return DefaultPlanner().Plan(tables)
}

// FitsOneBatch reports whether n tables are planned as a single batch.
func (p Planner) FitsOneBatch(n int) bool {
	return n <= p.maxTables()
}

// Plan partitions tables into batches. Every input table lands in exactly
// one batch. When the whole input fits the table cap it is returned as one
// batch in input order. Otherwise tables are placed heaviest first, and a
// batch is closed when it is full or when the next table would push it over
// MaxWeight. A table heavier than MaxWeight still gets a batch of its own.
func (p Planner) Plan(tables []introspect.Table) []Batch {
	if len(tables) == 0 {
		return nil
	}
	if p.FitsOneBatch(len(tables)) {
		b := Batch{Tables: append([]introspect.Table(nil), tables...)}
		for _, t := range tables {
			b.Weight += Weight(t)
		}
		return []Batch{b}
	}

	type weighted struct {
		t introspect.Table
		w int
	}
	sorted := make([]weighted, len(tables))
	for i, t := range tables {
		sorted[i] = weighted{t, Weight(t)}
	}
	// stable keeps the catalog order among equal weights
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].w > sorted[j].w })

	var (
		batches []Batch
		cur     Batch
	)
	for _, s := range sorted {
		full := len(cur.Tables) >= p.maxTables()
		over := len(cur.Tables) > 0 && cur.Weight+s.w > p.maxWeight()
		if full || over {
			cur.Index = len(batches)
			batches = append(batches, cur)
			cur = Batch{}
		}
		cur.Tables = append(cur.Tables, s.t)
		cur.Weight += s.w
	}
	if len(cur.Tables) > 0 {
		cur.Index = len(batches)
		batches = append(batches, cur)
	}
	return batches
}

func (p Planner) maxTables() int {
	if p.MaxTables <= 0 {
		return DefaultMaxTables
	}
	return p.MaxTables
}

func (p Planner) maxWeight() int {
	if p.MaxWeight <= 0 {
		return DefaultMaxWeight
	}
	return p.MaxWeight
}
