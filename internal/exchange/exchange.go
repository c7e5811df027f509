package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Source maps a normalized symbol to one exchange's public ticker endpoint
// and extracts the last traded price. One attempt per call, no caching.
type Source interface {
	Name() string
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// FetchError wraps any failure to obtain a price from a source: network
// errors, timeouts, unknown symbols and malformed responses all land here.
type FetchError struct {
	Exchange string
	Symbol   string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Exchange, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(exchange, symbol string, err error) error {
	return &FetchError{Exchange: exchange, Symbol: symbol, Err: err}
}

// Registry holds the configured sources, in fallback order.
type Registry struct {
	sources []Source
	byName  map[string]Source
}

func NewRegistry(sources ...Source) *Registry {
	r := &Registry{byName: make(map[string]Source)}
	for _, s := range sources {
		r.sources = append(r.sources, s)
		r.byName[strings.ToLower(s.Name())] = s
	}
	return r
}

// DefaultRegistry builds the built-in source chain. The order is the
// fallback order used for "any": Binance answers first when it can.
func DefaultRegistry(timeout time.Duration) *Registry {
	client := &http.Client{Timeout: timeout}
	return NewRegistry(
		NewBinance(client),
		NewBitunix(client),
		NewBybit(client),
		NewCoinbase(client),
		NewUpbit(client),
		NewOKX(client),
		NewCoinPaprika(client),
	)
}

// Names lists the source names in fallback order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// Lookup finds a source by case-insensitive name.
func (r *Registry) Lookup(name string) (Source, bool) {
	s, ok := r.byName[strings.ToLower(name)]
	return s, ok
}

// Has reports whether name is a known source.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// LastPrice fetches the current price of symbol from the named exchange,
// or walks the fallback chain when exchange is "any". It returns the name
// of the source that answered.
func (r *Registry) LastPrice(ctx context.Context, symbol, exchange string) (decimal.Decimal, string, error) {
	if exchange != "" && !strings.EqualFold(exchange, "any") {
		src, ok := r.Lookup(exchange)
		if !ok {
			return decimal.Zero, "", fetchErr(exchange, symbol, errors.Errorf("unknown exchange"))
		}
		price, err := src.LastPrice(ctx, symbol)
		return price, src.Name(), err
	}

	var failures []string
	for _, src := range r.sources {
		price, err := src.LastPrice(ctx, symbol)
		if err == nil {
			return price, src.Name(), nil
		}
		log.Debugf("%s error for %s: %v", src.Name(), symbol, err)
		failures = append(failures, fmt.Sprintf("%s: %v", src.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return decimal.Zero, "", fetchErr("any", symbol,
		errors.Errorf("all price sources failed: %s", strings.Join(failures, " | ")))
}

// httpJSON issues a GET and decodes the JSON body into v.
func httpJSON(ctx context.Context, client *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "crypto-price-alert")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "bad price %q", raw)
	}
	return price, nil
}
