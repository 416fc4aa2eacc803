package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]models.CardMetadata

func (m mapResolver) Resolve(ctx context.Context, name string) (models.CardMetadata, error) {
	meta, ok := m[name]
	if !ok {
		return models.CardMetadata{}, errNotFound
	}
	return meta, nil
}

var errNotFound = errors.New("not found")

var testResolver = mapResolver{
	"Lightning Bolt": {Name: "Lightning Bolt", Printing: "2XM"},
	"Island":         {Name: "Island", Printing: "UNF"},
	"Fire":           {Name: "Fire // Ice", Printing: "MH2"},
}

func newTestConverter(opts Options) *Converter {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewConverter(logger, testResolver, opts)
	c.now = func() time.Time { return time.Date(2024, 3, 9, 10, 11, 12, 345000000, time.UTC) }
	return c
}

const exampleExport = `sep=,
Folder Name,Quantity,Trade Quantity,Card Name,Set Code,Set Name,Card Number,Condition,Printing,Language
AUTO-IMPORT,2,0,Lightning Bolt,2XM,Double Masters,117,NearMint,Normal,English
AUTO-IMPORT,1,0,Lightning Bolt,M10,Magic 2010,146,NearMint,Normal,English
AUTO-IMPORT,40,0,Island,UNF,Unfinity,235,NearMint,Normal,English
`

func TestAggregate_SumsDuplicates(t *testing.T) {
	agg := NewAggregate()
	agg.Add("Island", 10)
	agg.Add("Lightning Bolt", 2)
	agg.Add("Island", 5)
	agg.Add("island", 1)

	qty, ok := agg.Quantity("Island")
	require.True(t, ok)
	assert.Equal(t, 15, qty)
	assert.Equal(t, 3, agg.Len())
	assert.Equal(t, 18, agg.Total())
	assert.Equal(t, []Entry{
		{Name: "Island", Quantity: 15},
		{Name: "Lightning Bolt", Quantity: 2},
		{Name: "island", Quantity: 1},
	}, agg.Entries())

	_, ok = agg.Quantity("Forest")
	assert.False(t, ok)
}

func TestAggregate_OrderIndependentSums(t *testing.T) {
	rows := []Entry{{"A", 1}, {"B", 2}, {"A", 3}, {"C", 4}, {"B", 5}}

	forward := NewAggregate()
	for _, r := range rows {
		forward.Add(r.Name, r.Quantity)
	}
	backward := NewAggregate()
	for i := len(rows) - 1; i >= 0; i-- {
		backward.Add(rows[i].Name, rows[i].Quantity)
	}

	for _, name := range []string{"A", "B", "C"} {
		f, _ := forward.Quantity(name)
		b, _ := backward.Quantity(name)
		assert.Equal(t, f, b, name)
	}
	a, _ := forward.Quantity("A")
	assert.Equal(t, 4, a)
}

func TestReadExport(t *testing.T) {
	agg, err := newTestConverter(Options{}).ReadExport(strings.NewReader(exampleExport))
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Name: "Lightning Bolt", Quantity: 3},
		{Name: "Island", Quantity: 40},
	}, agg.Entries())
	assert.Equal(t, 43, agg.Total())
}

func TestReadExport_QuotedAndBOM(t *testing.T) {
	export := "\ufeffsep=,\n\"Card Name\",\"Quantity\"\n\"Fire // Ice\",\"2\"\n\"Borrowing 100,000 Arrows\",\"1\"\n"

	agg, err := newTestConverter(Options{}).ReadExport(strings.NewReader(export))
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "Fire // Ice", Quantity: 2},
		{Name: "Borrowing 100,000 Arrows", Quantity: 1},
	}, agg.Entries())
}

func TestReadExport_HeaderOnly(t *testing.T) {
	agg, err := newTestConverter(Options{}).ReadExport(strings.NewReader("sep=,\nCard Name,Quantity\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, agg.Len())
}

func TestReadExport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		export string
	}{
		{"empty", ""},
		{"no header", "sep=,\n"},
		{"missing name column", "sep=,\nName,Quantity\nIsland,1\n"},
		{"missing quantity column", "sep=,\nCard Name,Count\nIsland,1\n"},
		{"non numeric quantity", "sep=,\nCard Name,Quantity\nIsland,lots\n"},
		{"negative quantity", "sep=,\nCard Name,Quantity\nIsland,-1\n"},
		{"short row", "sep=,\nQuantity,Card Name\n1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestConverter(Options{}).ReadExport(strings.NewReader(tt.export))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestReadExport_ErrorNamesLine(t *testing.T) {
	export := "sep=,\nCard Name,Quantity\nIsland,1\nForest,x\n"

	_, err := newTestConverter(Options{}).ReadExport(strings.NewReader(export))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
	assert.Contains(t, err.Error(), "Forest")
}

func TestReadExport_SkipInvalidRows(t *testing.T) {
	export := "sep=,\nCard Name,Quantity\nIsland,1\nForest,x\n,3\nIsland,2\n"

	agg, err := newTestConverter(Options{SkipInvalidRows: true}).ReadExport(strings.NewReader(export))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "Island", Quantity: 3}}, agg.Entries())
}

func TestWriteImport(t *testing.T) {
	c := newTestConverter(Options{})
	agg, err := c.ReadExport(strings.NewReader(exampleExport))
	require.NoError(t, err)

	var buf bytes.Buffer
	rows, err := c.WriteImport(context.Background(), &buf, agg)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Count,Tradelist Count,Name,Edition,Condition,Language,Foil,Tags,Last Modified,Collector Number", lines[0])
	assert.Equal(t, "3,0,Lightning Bolt,2XM,Near Mint,English,,,2024-03-09T10:11:12.345Z,", lines[1])
	assert.Equal(t, "40,0,Island,UNF,Near Mint,English,,,2024-03-09T10:11:12.345Z,", lines[2])
}

func TestWriteImport_RoundTrip(t *testing.T) {
	c := newTestConverter(Options{})
	agg := NewAggregate()
	agg.Add("Island", 7)
	agg.Add("Fire", 2)
	agg.Add("Lightning Bolt", 1)
	agg.Add("Island", 3)

	var buf bytes.Buffer
	_, err := c.WriteImport(context.Background(), &buf, agg)
	require.NoError(t, err)

	rows, err := ReadImport(&buf)
	require.NoError(t, err)
	require.Len(t, rows, agg.Len())
	for _, row := range rows {
		qty, ok := agg.Quantity(row.Name)
		require.True(t, ok, row.Name)
		assert.Equal(t, qty, row.Count, row.Name)
		assert.Equal(t, 0, row.TradelistCount)
	}
	assert.Equal(t, "MH2", rows[1].Edition)
	assert.True(t, rows[0].LastModified.Equal(c.now()))
}

func TestWriteImport_ResolverErrorAborts(t *testing.T) {
	c := newTestConverter(Options{})
	agg := NewAggregate()
	agg.Add("Island", 1)
	agg.Add("Unknown Card", 1)
	agg.Add("Lightning Bolt", 1)

	_, err := c.WriteImport(context.Background(), io.Discard, agg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotFound)
	assert.Contains(t, err.Error(), "Unknown Card")
}

func TestWriteImport_NoResolver(t *testing.T) {
	c := NewConverter(logrus.New(), nil, Options{})
	_, err := c.WriteImport(context.Background(), io.Discard, NewAggregate())
	assert.Error(t, err)
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "tmp-ds.csv")
	importPath := filepath.Join(dir, "out", "tmp-mf.csv")
	require.NoError(t, os.WriteFile(exportPath, []byte(exampleExport), 0o644))

	c := newTestConverter(Options{})
	agg, err := c.ReadExportFile(exportPath)
	require.NoError(t, err)

	rows, err := c.WriteImportFile(context.Background(), importPath, agg)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	f, err := os.Open(importPath)
	require.NoError(t, err)
	defer f.Close()
	back, err := ReadImport(f)
	require.NoError(t, err)
	assert.Equal(t, 3, back[0].Count)
	assert.Equal(t, 40, back[1].Count)

	_, err = c.ReadExportFile(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
