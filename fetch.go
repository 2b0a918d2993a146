package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Fetcher downloads indicator series from the World Bank API v2.
type Fetcher struct {
	cfg    APIConfig
	client *http.Client
}

func NewFetcher(cfg APIConfig) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type observation struct {
	country string
	year    int
	value   float64
}

// Fetch retrieves every indicator and merges them into one flat table keyed by
// (Country, Year). Columns follow the order of indicators.
func (f *Fetcher) Fetch(ctx context.Context, indicators []Indicator) (*Table, error) {
	results := make([][]observation, len(indicators))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.cfg.Workers, 1))
	for i, ind := range indicators {
		g.Go(func() error {
			obs, err := f.fetchIndicator(ctx, ind)
			if err != nil {
				return err
			}
			results[i] = obs
			log.Info().Str("indicator", ind.Code).Int("observations", len(obs)).Msg("indicator fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, len(indicators))
	for i, ind := range indicators {
		names[i] = ind.Name
	}
	return mergeObservations(names, results), nil
}

func mergeObservations(names []string, results [][]observation) *Table {
	t := NewTable(names)
	index := make(map[rowKey]int)
	for col, obs := range results {
		for _, o := range obs {
			k := rowKey{o.country, o.year}
			pos, ok := index[k]
			if !ok {
				values := make([]float64, len(names))
				for i := range values {
					values[i] = math.NaN()
				}
				t.Rows = append(t.Rows, Row{Country: o.country, Year: o.year, Values: values})
				pos = len(t.Rows) - 1
				index[k] = pos
			}
			t.Rows[pos].Values[col] = o.value
		}
	}
	t.sortRows()
	return t
}

func (f *Fetcher) fetchIndicator(ctx context.Context, ind Indicator) ([]observation, error) {
	var all []observation
	for page, pages := 1, 1; page <= pages; page++ {
		body, err := f.get(ctx, f.pageURL(ind.Code, page))
		if err != nil {
			return nil, wrapError(err, CodeExternalService, "fetch %s page %d", ind.Code, page)
		}
		obs, total, err := parsePage(body)
		if err != nil {
			return nil, wrapError(err, CodeExternalService, "parse %s page %d", ind.Code, page)
		}
		all = append(all, obs...)
		pages = total
		log.Debug().Str("indicator", ind.Code).Int("page", page).Int("pages", pages).Msg("page fetched")
	}
	return all, nil
}

func (f *Fetcher) pageURL(code string, page int) string {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("per_page", strconv.Itoa(f.cfg.PerPage))
	q.Set("page", strconv.Itoa(page))
	if f.cfg.DateRange != "" {
		q.Set("date", f.cfg.DateRange)
	}
	countries := f.cfg.Countries
	if countries == "" {
		countries = "all"
	}
	return fmt.Sprintf("%s/country/%s/indicator/%s?%s",
		strings.TrimRight(f.cfg.BaseURL, "/"), countries, url.PathEscape(code), q.Encode())
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newErrorCause(CodeExternalService, err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newErrorCause(CodeExternalService, err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(CodeExternalService, "API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// parsePage decodes one `[meta, records]` response and returns the
// observations it holds along with the total page count.
func parsePage(body []byte) ([]observation, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, newError(CodeExternalService, "response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, 0, newError(CodeExternalService, "unexpected response shape")
	}

	meta := root.Get("0")
	if msg := meta.Get("message"); msg.Exists() {
		var parts []string
		for _, m := range msg.Array() {
			parts = append(parts, strings.TrimSpace(m.Get("key").String()+": "+m.Get("value").String()))
		}
		return nil, 0, newError(CodeExternalService, "API error: %s", strings.Join(parts, "; "))
	}

	pages := int(meta.Get("pages").Int())
	records := root.Get("1")
	if !records.Exists() || records.Type == gjson.Null {
		return nil, pages, nil
	}

	var out []observation
	var parseErr error
	records.ForEach(func(_, rec gjson.Result) bool {
		value := rec.Get("value")
		if value.Type == gjson.Null || !value.Exists() {
			return true
		}
		year, err := parseYear(rec.Get("date").String())
		if err != nil {
			parseErr = err
			return false
		}
		out = append(out, observation{
			country: rec.Get("country.value").String(),
			year:    year,
			value:   value.Float(),
		})
		return true
	})
	if parseErr != nil {
		return nil, 0, parseErr
	}
	return out, pages, nil
}

// parseYear reads the leading four digits, so "2020" and "2020-01-01" both work.
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0, newError(CodeInvalidInput, "invalid year %q", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, newError(CodeInvalidInput, "invalid year %q", s)
	}
	return year, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
