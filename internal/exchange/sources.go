package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// baseAsset strips the USDT quote from a normalized symbol for the
// exchanges that quote against USD or take the pair split apart.
func baseAsset(symbol string) string {
	if strings.HasSuffix(symbol, "USDT") && len(symbol) > 4 {
		return strings.TrimSuffix(symbol, "USDT")
	}
	return symbol
}

// Binance spot ticker. Served from the keyless data mirror.
type Binance struct {
	client *http.Client
	base   string
}

func NewBinance(client *http.Client) *Binance {
	return &Binance{client: client, base: "https://data-api.binance.vision"}
}

func (b *Binance) Name() string { return "Binance" }

func (b *Binance) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out struct {
		Price string `json:"price"`
	}
	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.base, url.QueryEscape(symbol))
	if err := httpJSON(ctx, b.client, u, &out); err != nil {
		return decimal.Zero, fetchErr(b.Name(), symbol, err)
	}
	price, err := parsePrice(out.Price)
	if err != nil {
		return decimal.Zero, fetchErr(b.Name(), symbol, err)
	}
	return price, nil
}

// Bitunix futures tickers; the mark price stands in for spot.
type Bitunix struct {
	client *http.Client
	base   string
}

func NewBitunix(client *http.Client) *Bitunix {
	return &Bitunix{client: client, base: "https://fapi.bitunix.com"}
}

func (b *Bitunix) Name() string { return "Bitunix" }

func (b *Bitunix) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out struct {
		Data []struct {
			MarkPrice string `json:"markPrice"`
		} `json:"data"`
	}
	u := fmt.Sprintf("%s/api/v1/futures/market/tickers?symbols=%s", b.base, url.QueryEscape(symbol))
	if err := httpJSON(ctx, b.client, u, &out); err != nil {
		return decimal.Zero, fetchErr(b.Name(), symbol, err)
	}
	if len(out.Data) == 0 {
		return decimal.Zero, fetchErr(b.Name(), symbol, errors.New("empty ticker list"))
	}
	price, err := parsePrice(out.Data[0].MarkPrice)
	if err != nil {
		return decimal.Zero, fetchErr(b.Name(), symbol, err)
	}
	return price, nil
}

// Bybit spot tickers.
type Bybit struct {
	client *http.Client
	base   string
}

func NewBybit(client *http.Client) *Bybit {
	return &Bybit{client: client, base: "https://api.bybit.com"}
}

func (b *Bybit) Name() string { return "Bybit" }

func (b *Bybit) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out struct {
		Result struct {
			List []struct {
				LastPrice string `json:"lastPrice"`
			} `json:"list"`
		} `json:"result"`
	}
	u := fmt.Sprintf("%s/v5/market/tickers?category=spot&symbol=%s", b.base, url.QueryEscape(symbol))
	if err := httpJSON(ctx, b.client, u, &out); err != nil {
		return decimal.Zero, fetchErr(b.Name(), symbol, err)
	}
	if len(out.Result.List) == 0 {
		return decimal.Zero, fetchErr(b.Name(), symbol, errors.New("empty ticker list"))
	}
	price, err := parsePrice(out.Result.List[0].LastPrice)
	if err != nil {
		return decimal.Zero, fetchErr(b.Name(), symbol, err)
	}
	return price, nil
}

// Coinbase quotes against USD, pair written BASE-USD.
type Coinbase struct {
	client *http.Client
	base   string
}

func NewCoinbase(client *http.Client) *Coinbase {
	return &Coinbase{client: client, base: "https://api.exchange.coinbase.com"}
}

func (c *Coinbase) Name() string { return "Coinbase" }

func (c *Coinbase) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out struct {
		Price string `json:"price"`
	}
	pair := baseAsset(symbol) + "-USD"
	u := fmt.Sprintf("%s/products/%s/ticker", c.base, url.PathEscape(pair))
	if err := httpJSON(ctx, c.client, u, &out); err != nil {
		return decimal.Zero, fetchErr(c.Name(), symbol, err)
	}
	price, err := parsePrice(out.Price)
	if err != nil {
		return decimal.Zero, fetchErr(c.Name(), symbol, err)
	}
	return price, nil
}

// Upbit markets are written QUOTE-BASE (USDT-BTC).
type Upbit struct {
	client *http.Client
	base   string
}

func NewUpbit(client *http.Client) *Upbit {
	return &Upbit{client: client, base: "https://api.upbit.com"}
}

func (u *Upbit) Name() string { return "Upbit" }

func (u *Upbit) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out []struct {
		TradePrice json.Number `json:"trade_price"`
	}
	market := "USDT-" + baseAsset(symbol)
	addr := fmt.Sprintf("%s/v1/ticker?markets=%s", u.base, url.QueryEscape(market))
	if err := httpJSON(ctx, u.client, addr, &out); err != nil {
		return decimal.Zero, fetchErr(u.Name(), symbol, err)
	}
	if len(out) == 0 {
		return decimal.Zero, fetchErr(u.Name(), symbol, errors.New("empty ticker list"))
	}
	price, err := parsePrice(out[0].TradePrice.String())
	if err != nil {
		return decimal.Zero, fetchErr(u.Name(), symbol, err)
	}
	return price, nil
}

// OKX instruments are written BASE-USDT.
type OKX struct {
	client *http.Client
	base   string
}

func NewOKX(client *http.Client) *OKX {
	return &OKX{client: client, base: "https://www.okx.com"}
}

func (o *OKX) Name() string { return "OKX" }

func (o *OKX) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out struct {
		Data []struct {
			Last string `json:"last"`
		} `json:"data"`
	}
	inst := baseAsset(symbol) + "-USDT"
	u := fmt.Sprintf("%s/api/v5/market/ticker?instId=%s", o.base, url.QueryEscape(inst))
	if err := httpJSON(ctx, o.client, u, &out); err != nil {
		return decimal.Zero, fetchErr(o.Name(), symbol, err)
	}
	if len(out.Data) == 0 {
		return decimal.Zero, fetchErr(o.Name(), symbol, errors.New("empty ticker data"))
	}
	price, err := parsePrice(out.Data[0].Last)
	if err != nil {
		return decimal.Zero, fetchErr(o.Name(), symbol, err)
	}
	return price, nil
}
