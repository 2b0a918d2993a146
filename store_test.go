package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCSVStore(filepath.Join(t.TempDir(), "nested", "data.csv"))

	in := sampleTable()
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, in.Indicators, out.Indicators)
	assert.Equal(t, in.DropMissing().Rows, out.Rows)
}

func TestCSVStore_SaveWritesHeaderAndBlankForMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	tbl := NewTable([]string{testCO2, testGDP})
	tbl.Append("China", 2002, 240, math.NaN())
	tbl.Append("India", 2000, 0.125, 1e12)

	require.NoError(t, NewCSVStore(path).Save(context.Background(), tbl))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Country,Year,CO2,GDP\nChina,2002,240,\nIndia,2000,0.125,1e+12\n", string(data))
}

func TestCSVStore_SaveRejectsDuplicates(t *testing.T) {
	tbl := sampleTable()
	tbl.Append("China", 2000, 1, 1)

	err := NewCSVStore(filepath.Join(t.TempDir(), "data.csv")).Save(context.Background(), tbl)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestCSVStore_LoadLegacyColumns(t *testing.T) {
	path := writeFile(t, "legacy.csv", "country,date,CO2\nChina,2000,200\nChina,2001,NaN\nIndia,2000,50\n")

	out, err := NewCSVStore(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{testCO2}, out.Indicators)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, Row{Country: "China", Year: 2000, Values: []float64{200}}, out.Rows[0])
	assert.Equal(t, Row{Country: "India", Year: 2000, Values: []float64{50}}, out.Rows[1])
}

func TestCSVStore_LoadMissingFile(t *testing.T) {
	_, err := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv")).Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCSVStore_LoadBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad number", "Country,Year,CO2\nChina,2000,lots\n"},
		{"bad year", "Country,Year,CO2\nChina,yr,1\n"},
		{"no year column", "Country,CO2\nChina,1\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "data.csv", tt.content)
			_, err := NewCSVStore(path).Load(context.Background())
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
