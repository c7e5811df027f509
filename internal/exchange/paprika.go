package exchange

import (
	"context"
	"net/http"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CoinPaprika is the aggregate fallback at the end of the chain. It is not
// an exchange, so the symbol is resolved to a coin id by search first.
type CoinPaprika struct {
	client *coinpaprika.Client
}

func NewCoinPaprika(httpClient *http.Client) *CoinPaprika {
	return &CoinPaprika{client: coinpaprika.NewClient(httpClient)}
}

func (p *CoinPaprika) Name() string { return "CoinPaprika" }

func (p *CoinPaprika) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	base := baseAsset(symbol)

	searchOpts := &coinpaprika.SearchOptions{
		Query:      base,
		Categories: "currencies",
		Modifier:   "symbol_search",
	}
	result, err := p.client.Search.Search(searchOpts)
	if err != nil {
		return decimal.Zero, fetchErr(p.Name(), symbol, err)
	}
	if len(result.Currencies) == 0 || result.Currencies[0].ID == nil {
		return decimal.Zero, fetchErr(p.Name(), symbol, errors.Errorf("no coin matches %q", base))
	}

	tickerOpts := &coinpaprika.TickersOptions{Quotes: "USD"}
	ticker, err := p.client.Tickers.GetByID(*result.Currencies[0].ID, tickerOpts)
	if err != nil {
		return decimal.Zero, fetchErr(p.Name(), symbol, err)
	}

	quote, ok := ticker.Quotes["USD"]
	if !ok || quote.Price == nil {
		return decimal.Zero, fetchErr(p.Name(), symbol, errors.New("ticker has no USD quote"))
	}
	return decimal.NewFromFloat(*quote.Price), nil
}
