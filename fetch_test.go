package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// worldBankStub serves canned pages keyed by "<code>/<page>".
func worldBankStub(t *testing.T, pages map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// country/{countries}/indicator/{code}
		if len(parts) != 4 || parts[0] != "country" || parts[2] != "indicator" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("format") != "json" {
			http.Error(w, "format", http.StatusBadRequest)
			return
		}
		body, ok := pages[parts[3]+"/"+r.URL.Query().Get("page")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testAPIConfig(baseURL string) APIConfig {
	return APIConfig{
		BaseURL:   baseURL,
		Countries: "all",
		PerPage:   2,
		Timeout:   5 * time.Second,
		Workers:   2,
	}
}

func TestFetcher_FetchMergesPagesAndIndicators(t *testing.T) {
	srv, calls := worldBankStub(t, map[string]string{
		"CO2/1": `[{"page":1,"pages":2,"per_page":2,"total":3},[
			{"country":{"id":"US","value":"United States"},"date":"2001","value":110},
			{"country":{"id":"US","value":"United States"},"date":"2000","value":100}]]`,
		"CO2/2": `[{"page":2,"pages":2,"per_page":2,"total":3},[
			{"country":{"id":"CN","value":"China"},"date":"2000","value":200}]]`,
		"GDP/1": `[{"page":1,"pages":1,"per_page":2,"total":2},[
			{"country":{"id":"US","value":"United States"},"date":"2000","value":10.5},
			{"country":{"id":"CN","value":"China"},"date":"2000","value":null}]]`,
	})

	f := NewFetcher(testAPIConfig(srv.URL))
	tbl, err := f.Fetch(context.Background(), []Indicator{
		{Code: "CO2", Name: testCO2},
		{Code: "GDP", Name: testGDP},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))

	assert.Equal(t, []string{testCO2, testGDP}, tbl.Indicators)
	require.Equal(t, 3, tbl.Len())

	assert.Equal(t, "China", tbl.Rows[0].Country)
	assert.Equal(t, 2000, tbl.Rows[0].Year)
	assert.Equal(t, 200.0, tbl.Rows[0].Values[0])
	assert.True(t, math.IsNaN(tbl.Rows[0].Values[1]), "null value must be skipped")

	assert.Equal(t, Row{Country: "United States", Year: 2000, Values: []float64{100, 10.5}}, tbl.Rows[1])
	assert.Equal(t, "United States", tbl.Rows[2].Country)
	assert.Equal(t, 2001, tbl.Rows[2].Year)
	assert.True(t, math.IsNaN(tbl.Rows[2].Values[1]))
}

func TestFetcher_EmptyResult(t *testing.T) {
	srv, _ := worldBankStub(t, map[string]string{
		"CO2/1": `[{"page":1,"pages":0,"per_page":2,"total":0},null]`,
	})

	tbl, err := NewFetcher(testAPIConfig(srv.URL)).Fetch(context.Background(), []Indicator{{Code: "CO2", Name: testCO2}})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestFetcher_APIErrorMessage(t *testing.T) {
	srv, _ := worldBankStub(t, map[string]string{
		"BAD/1": `[{"message":[{"id":"120","key":"Invalid value","value":"The provided parameter value is not valid"}]}]`,
	})

	_, err := NewFetcher(testAPIConfig(srv.URL)).Fetch(context.Background(), []Indicator{{Code: "BAD", Name: "Bad"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Contains(t, err.Error(), "The provided parameter value is not valid")
}

func TestFetcher_Non200(t *testing.T) {
	srv, _ := worldBankStub(t, map[string]string{})

	_, err := NewFetcher(testAPIConfig(srv.URL)).Fetch(context.Background(), []Indicator{{Code: "CO2", Name: testCO2}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetcher_HonorsCancellation(t *testing.T) {
	srv, _ := worldBankStub(t, map[string]string{
		"CO2/1": `[{"page":1,"pages":1},[]]`,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(testAPIConfig(srv.URL)).Fetch(ctx, []Indicator{{Code: "CO2", Name: testCO2}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePage_Invalid(t *testing.T) {
	for _, body := range []string{`not json`, `{"page":1}`} {
		_, _, err := parsePage([]byte(body))
		assert.ErrorIs(t, err, ErrExternalService, body)
	}
}

func TestPageURL(t *testing.T) {
	cfg := testAPIConfig("https://api.example.org/v2/")
	cfg.Countries = "US;CN"
	cfg.DateRange = "2000:2020"

	u := NewFetcher(cfg).pageURL("EN.ATM.CO2E.KT", 3)
	assert.True(t, strings.HasPrefix(u, "https://api.example.org/v2/country/US;CN/indicator/EN.ATM.CO2E.KT?"), u)
	assert.Contains(t, u, "format=json")
	assert.Contains(t, u, "page=3")
	assert.Contains(t, u, "per_page=2")
	assert.Contains(t, u, "date=2000%3A2020")
}

func TestParseYear(t *testing.T) {
	y, err := parseYear("2020")
	require.NoError(t, err)
	assert.Equal(t, 2020, y)

	y, err = parseYear(" 1999-12-31 ")
	require.NoError(t, err)
	assert.Equal(t, 1999, y)

	_, err = parseYear("99")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
