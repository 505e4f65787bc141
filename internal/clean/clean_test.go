package clean

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/normalize"
	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

func txt(s string) table.Value { return table.Text(s) }

func TestProcessPipeline(t *testing.T) {
	headers := []string{"id", "name", "amount", "joined", "active", "status"}
	rows := []table.Row{
		{"id": txt("1"), "name": txt("  alice   smith "), "amount": txt("$1,200"), "joined": txt("01/02/2024"), "active": txt("true"), "status": txt("N/A ")},
		{"id": txt("2"), "name": txt("bob"), "amount": txt("12"), "joined": txt("2024-01-03"), "active": txt("0"), "status": txt("n/a")},
		{"id": txt(""), "name": txt("   "), "amount": table.Null()},
		{"id": txt("3"), "name": txt("Carol"), "amount": txt("50%"), "joined": txt("2024-01-04"), "active": txt("1"), "status": txt("n/a")},
		{"id": txt("3"), "name": txt("carol"), "amount": txt("0.5"), "joined": txt("2024-01-04"), "active": txt("1"), "status": txt("NA")},
	}
	out := Process(rows, headers, Options{})

	assert.Equal(t, 5, out.OriginalRowCount)
	assert.Equal(t, 3, out.CleanedRowCount)
	require.Len(t, out.Data, 3)
	assert.Equal(t, 1, out.QualityReport.DuplicateRows)

	first := out.Data[0]
	assert.Equal(t, "Alice Smith", first["name"].String())
	assert.True(t, first["amount"].Equal(table.Number(1200)))
	assert.True(t, first["active"].Equal(table.Bool(true)))
	assert.Equal(t, "2024-01-02T00:00:00.000Z", first["joined"].String())
	_, isTime := first["joined"].TimeValue()
	assert.True(t, isTime)

	assert.True(t, out.Data[1]["amount"].Equal(table.Number(12)))
	assert.True(t, out.Data[1]["active"].Equal(table.Bool(false)))

	for _, r := range out.Data {
		assert.Equal(t, "n/a", r["status"].String())
	}

	types := map[string]schema.Type{}
	for _, c := range out.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, schema.TypeNumber, types["amount"])
	assert.Equal(t, schema.TypeDate, types["joined"])
	assert.Equal(t, schema.TypeBoolean, types["active"])
	assert.Equal(t, schema.TypeString, types["status"])
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	rows := []table.Row{{"a": txt(" x ")}}
	Process(rows, []string{"a"}, Options{})
	assert.Equal(t, " x ", rows[0]["a"].String())
}

func TestProcessDedupeIdempotent(t *testing.T) {
	headers := []string{"k", "v"}
	rows := []table.Row{
		{"k": txt("a"), "v": txt("1")},
		{"k": txt("a"), "v": txt("1")},
		{"k": txt("b"), "v": txt("2")},
		{"k": txt("a"), "v": txt("1")},
	}
	once := Process(rows, headers, Options{})
	assert.Equal(t, 2, once.QualityReport.DuplicateRows)
	twice := Process(once.Data, headers, Options{})
	assert.Equal(t, 0, twice.QualityReport.DuplicateRows)
	assert.Equal(t, once.CleanedRowCount, twice.CleanedRowCount)
}

func TestProcessEmptyInput(t *testing.T) {
	out := Process(nil, nil, Options{})
	assert.Empty(t, out.Data)
	assert.Empty(t, out.Columns)
	assert.Equal(t, 100, out.QualityReport.QualityScore)

	out = Process([]table.Row{{"a": table.Null()}}, []string{"a"}, Options{})
	assert.Equal(t, 0, out.CleanedRowCount)
	assert.Equal(t, 1, out.OriginalRowCount)
}

func TestCanonicalizeTieBreak(t *testing.T) {
	rows := []table.Row{
		{"c": txt("Yes!")},
		{"c": txt("yes")},
		{"c": txt("YES")},
		{"c": txt("yes")},
		{"c": txt("YES")},
		{"c": txt("no")},
	}
	merged := Canonicalize(rows, "c")
	assert.Equal(t, 3, merged)
	for _, r := range rows[:5] {
		assert.Equal(t, "yes", r["c"].String())
	}
	assert.Equal(t, "no", rows[5]["c"].String())
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "na", CanonicalKey(" N/A "))
	assert.Equal(t, "café42", CanonicalKey("Café-42"))
	assert.Equal(t, "", CanonicalKey("--"))
}

func TestDedupeDistinguishesKinds(t *testing.T) {
	rows := []table.Row{
		{"a": table.Number(1)},
		{"a": txt("1")},
		{"a": table.Number(1)},
	}
	out, n := Dedupe(rows, []string{"a"})
	assert.Equal(t, 1, n)
	require.Len(t, out, 2)
	_, isText := out[1]["a"].TextValue()
	assert.True(t, isText)
}

func TestCoerceFailuresBecomeNull(t *testing.T) {
	rows := []table.Row{
		{"d": txt("2024-03-05"), "n": txt("€ 3.000,25")},
		{"d": txt("garbage"), "n": txt("oops")},
	}
	cols := []schema.Column{{Name: "d", Type: schema.TypeDate}, {Name: "n", Type: schema.TypeNumber}}
	Coerce(rows, cols, normalize.Options{})

	tm, ok := rows[0]["d"].TimeValue()
	require.True(t, ok)
	assert.True(t, tm.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.True(t, rows[0]["n"].Equal(table.Number(3000.25)))
	assert.True(t, rows[1]["d"].IsNull())
	assert.True(t, rows[1]["n"].IsNull())
}

func TestProcessOutputSerializesHugeNumbers(t *testing.T) {
	rows := []table.Row{{"a": table.Number(1.5e308)}, {"a": table.Number(1.4e308)}}
	out := Process(rows, []string{"a"}, Options{})
	require.Len(t, out.Columns, 1)
	require.NotNil(t, out.Columns[0].Stats.Avg)
	assert.InDelta(t, 1.45e308, *out.Columns[0].Stats.Avg, 1e294)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "1.5e+308")
}
