package batch

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmarkdown/internal/introspect"
)

func makeTable(name string, cols int) introspect.Table {
	t := introspect.Table{Name: name}
	for i := 0; i < cols; i++ {
		t.Columns = append(t.Columns, introspect.Column{Name: fmt.Sprintf("c%d", i)})
	}
	return t
}

func makeTables(n, cols int) []introspect.Table {
	var out []introspect.Table
	for i := 0; i < n; i++ {
		out = append(out, makeTable(fmt.Sprintf("table_%02d", i), cols))
	}
	return out
}

// assertPartition checks that batches contain every input table exactly once.
func assertPartition(t *testing.T, in []introspect.Table, batches []Batch) {
	t.Helper()
	seen := map[string]int{}
	for _, b := range batches {
		require.NotEmpty(t, b.Tables)
		for _, tab := range b.Tables {
			seen[tab.QualifiedName()]++
		}
	}
	require.Len(t, seen, len(in))
	for _, tab := range in {
		assert.Equal(t, 1, seen[tab.QualifiedName()], tab.QualifiedName())
	}
}

func assertCaps(t *testing.T, p Planner, batches []Batch) {
	t.Helper()
	for i, b := range batches {
		assert.Equal(t, i, b.Index)
		assert.LessOrEqual(t, len(b.Tables), p.maxTables())
		if len(b.Tables) > 1 {
			assert.LessOrEqual(t, b.Weight, p.maxWeight(), "batch %d", i)
		}
		sum := 0
		for _, tab := range b.Tables {
			sum += Weight(tab)
		}
		assert.Equal(t, sum, b.Weight)
	}
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 6+40, Weight(makeTable("orders", 2)))
	assert.Equal(t, 2, Weight(makeTable("訂單", 0)), "runes, not bytes")
}

func TestPlan_Empty(t *testing.T) {
	assert.Nil(t, Plan(nil))
}

func TestPlan_SmallSelectionIsOneBatchInInputOrder(t *testing.T) {
	for n := 1; n <= DefaultMaxTables; n++ {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			in := makeTables(n, n*7)
			in[0] = makeTable("zz_huge", 1000) // over budget, still one batch

			batches := Plan(in)

			require.Len(t, batches, 1)
			assert.Equal(t, in, batches[0].Tables)
		})
	}
}

func TestPlan_ThreeTablesUnderCap(t *testing.T) {
	in := []introspect.Table{makeTable("a", 2), makeTable("b", 3), makeTable("c", 40)}

	batches := Plan(in)

	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b", "c"}, names(batches[0].Tables))
}

func TestPlan_TableCapSplits(t *testing.T) {
	in := makeTables(12, 3)

	batches := Plan(in)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Tables, 5)
	assert.Len(t, batches[1].Tables, 5)
	assert.Len(t, batches[2].Tables, 2)
	assertPartition(t, in, batches)
	assert.Equal(t, "table_00", batches[0].Tables[0].Name, "equal weights keep input order")
}

func TestPlan_WeightCapSplits(t *testing.T) {
	in := makeTables(12, 95) // 1908 each: four fit under 8000, five do not

	batches := Plan(in)

	require.GreaterOrEqual(t, len(batches), 3)
	for _, b := range batches {
		assert.LessOrEqual(t, len(b.Tables), 4)
	}
	assertPartition(t, in, batches)
	assertCaps(t, DefaultPlanner(), batches)
}

func TestPlan_OversizedTableAlone(t *testing.T) {
	in := append(makeTables(6, 1), makeTable("wide", 500))

	batches := Plan(in)

	require.NotEmpty(t, batches)
	assert.Equal(t, []string{"wide"}, names(batches[0].Tables))
	assert.Greater(t, batches[0].Weight, DefaultMaxWeight)
	assertPartition(t, in, batches)
}

func TestPlan_HeaviestFirst(t *testing.T) {
	in := []introspect.Table{
		makeTable("light", 1), makeTable("heavy", 50), makeTable("mid", 10),
		makeTable("x1", 1), makeTable("x2", 1), makeTable("x3", 1),
	}

	batches := Plan(in)

	require.Len(t, batches, 2)
	assert.Equal(t, []string{"heavy", "mid", "light", "x1", "x2"}, names(batches[0].Tables))
	assert.Equal(t, []string{"x3"}, names(batches[1].Tables))
}

func TestPlan_CustomLimits(t *testing.T) {
	p := Planner{MaxTables: 2, MaxWeight: 100}
	in := makeTables(5, 2) // 48 each

	batches := p.Plan(in)

	require.Len(t, batches, 3)
	assertPartition(t, in, batches)
	assertCaps(t, p, batches)
}

func TestPlan_RandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := DefaultPlanner()

	for round := 0; round < 200; round++ {
		n := rng.Intn(40)
		var in []introspect.Table
		for i := 0; i < n; i++ {
			in = append(in, makeTable(fmt.Sprintf("t%03d_%d", i, round), rng.Intn(600)))
		}

		batches := p.Plan(in)

		if n == 0 {
			assert.Empty(t, batches)
			continue
		}
		assertPartition(t, in, batches)
		if n <= DefaultMaxTables {
			require.Len(t, batches, 1)
			continue
		}
		assertCaps(t, p, batches)
	}
}

func names(tables []introspect.Table) []string {
	var out []string
	for _, t := range tables {
		out = append(out, t.Name)
	}
	return out
}
