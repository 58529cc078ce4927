package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// StooqClient fetches daily close history from the Stooq CSV endpoint.
type StooqClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewStooqClient creates a new Stooq market data client.
func NewStooqClient(baseURL string, log zerolog.Logger) *StooqClient {
	return &StooqClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "stooq").Logger(),
	}
}

// Fetch downloads daily closes for every symbol and inner-joins them on date.
// Symbols with no data drop the shared dates they are missing; if nothing
// overlaps the result is empty, not an error.
func (c *StooqClient) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*PriceHistory, error) {
	if len(symbols) == 0 {
		return &PriceHistory{}, nil
	}

	perSymbol := make([]map[string]float64, len(symbols))
	for i, symbol := range symbols {
		closes, err := c.fetchSymbol(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
		}
		perSymbol[i] = closes
	}

	// Dates present for every symbol, ascending.
	shared := make([]string, 0, len(perSymbol[0]))
	for date := range perSymbol[0] {
		ok := true
		for i := 1; i < len(perSymbol); i++ {
			if _, has := perSymbol[i][date]; !has {
				ok = false
				break
			}
		}
		if ok {
			shared = append(shared, date)
		}
	}
	sort.Strings(shared)

	history := &PriceHistory{
		Symbols: append([]string(nil), symbols...),
		Dates:   make([]time.Time, 0, len(shared)),
		Closes:  make([][]float64, 0, len(shared)),
	}
	for _, date := range shared {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		row := make([]float64, len(symbols))
		for i := range symbols {
			row[i] = perSymbol[i][date]
		}
		history.Dates = append(history.Dates, day)
		history.Closes = append(history.Closes, row)
	}

	c.log.Debug().
		Int("num_symbols", len(symbols)).
		Int("num_dates", len(history.Dates)).
		Time("start", start).
		Time("end", end).
		Msg("Fetched price history")

	return history, nil
}

// fetchSymbol downloads one symbol's CSV and returns date -> close.
func (c *StooqClient) fetchSymbol(ctx context.Context, symbol string, start, end time.Time) (map[string]float64, error) {
	params := url.Values{}
	params.Set("s", strings.ToLower(symbol))
	params.Set("d1", start.Format("20060102"))
	params.Set("d2", end.AddDate(0, 0, -1).Format("20060102"))
	params.Set("i", "d")

	reqURL := fmt.Sprintf("%s/q/d/l/?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return parseDailyCSV(resp.Body)
}

// parseDailyCSV reads a Date,Open,High,Low,Close[,Volume] CSV into a
// date -> close map. Non-data responses ("No data") yield an empty map.
func parseDailyCSV(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	closes := make(map[string]float64)
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed CSV: %w", err)
		}
		if header {
			header = false
			if len(record) > 0 && strings.EqualFold(record[0], "Date") {
				continue
			}
		}
		if len(record) < 5 {
			continue
		}
		if _, err := time.Parse("2006-01-02", record[0]); err != nil {
			continue
		}
		close, err := strconv.ParseFloat(record[4], 64)
		if err != nil || close <= 0 {
			continue
		}
		closes[record[0]] = close
	}
	return closes, nil
}
