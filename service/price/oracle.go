package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okdsgnr/Strata/service/audit"
	"github.com/okdsgnr/Strata/service/metrics"
	"github.com/shopspring/decimal"
)

// Default provider endpoints. Each can be overridden for tests or when a
// provider moves its API.
const (
	DefaultJupiterBaseURL     = "https://price.jup.ag/v4"
	DefaultBirdeyeBaseURL     = "https://public-api.birdeye.so"
	DefaultDexScreenerBaseURL = "https://api.dexscreener.com"

	defaultHTTPTimeout = 10 * time.Second
)

// Oracle resolves token USD prices by walking a provider fallback chain:
// Jupiter first, then Birdeye, then DexScreener. A provider error or missing
// listing falls through to the next provider; only when all three come up
// empty is the price reported as unknown (nil, no error). Results, including
// unknown ones, are cached.
//
// Oracle also serves token metadata (name, symbol, liquidity) from
// DexScreener pair listings.
type Oracle struct {
	client *http.Client
	cache  *Cache

	jupiterBase     string
	birdeyeBase     string
	birdeyeAPIKey   string
	dexScreenerBase string

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// OracleConfig configures an Oracle. Zero-value base URLs use the defaults;
// a nil Cache gets a default cache on the system clock.
type OracleConfig struct {
	HTTPClient *http.Client
	Cache      *Cache

	JupiterBaseURL     string
	BirdeyeBaseURL     string
	BirdeyeAPIKey      string
	DexScreenerBaseURL string

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewOracle creates an Oracle from cfg.
func NewOracle(cfg OracleConfig) *Oracle {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewCache(DefaultPriceTTL, DefaultMetadataTTL, nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	o := &Oracle{
		client:          client,
		cache:           cache,
		jupiterBase:     cfg.JupiterBaseURL,
		birdeyeBase:     cfg.BirdeyeBaseURL,
		birdeyeAPIKey:   cfg.BirdeyeAPIKey,
		dexScreenerBase: cfg.DexScreenerBaseURL,
		metrics:         cfg.Metrics,
		logger:          logger,
	}
	if o.jupiterBase == "" {
		o.jupiterBase = DefaultJupiterBaseURL
	}
	if o.birdeyeBase == "" {
		o.birdeyeBase = DefaultBirdeyeBaseURL
	}
	if o.dexScreenerBase == "" {
		o.dexScreenerBase = DefaultDexScreenerBaseURL
	}
	return o
}

var _ audit.PriceOracle = (*Oracle)(nil)
var _ audit.MetadataSource = (*Oracle)(nil)

// FetchUsdPrice returns the USD price for mint, or nil when no provider
// lists the token. An error is returned only for context cancellation; all
// provider failures are absorbed by the fallback chain.
func (o *Oracle) FetchUsdPrice(ctx context.Context, mint string) (*decimal.Decimal, error) {
	if price, ok := o.cache.GetPrice(mint); ok {
		o.recordCache("hit")
		return price, nil
	}
	o.recordCache("miss")

	providers := []struct {
		name  string
		fetch func(context.Context, string) (*decimal.Decimal, error)
	}{
		{"jupiter", o.fetchJupiter},
		{"birdeye", o.fetchBirdeye},
		{"dexscreener", o.fetchDexScreenerPrice},
	}
	for _, p := range providers {
		price, err := p.fetch(ctx, mint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.recordLookup(p.name, "error")
			o.logger.Debug("price provider failed", "provider", p.name, "mint", mint, "error", err)
			continue
		}
		if price == nil {
			o.recordLookup(p.name, "not_found")
			continue
		}
		o.recordLookup(p.name, "success")
		o.cache.PutPrice(mint, price)
		return price, nil
	}

	// Cache the miss so unlisted tokens don't re-walk the chain every call.
	o.cache.PutPrice(mint, nil)
	return nil, nil
}

// FetchTokenMetadata returns the token's name and symbol from its deepest
// DexScreener pair. Missing listings yield a zero TokenMetadata, not an error.
func (o *Oracle) FetchTokenMetadata(ctx context.Context, mint string) (audit.TokenMetadata, error) {
	if meta, ok := o.cache.GetMetadata(mint); ok {
		return meta, nil
	}
	pair, err := o.fetchBestPair(ctx, mint)
	if err != nil {
		return audit.TokenMetadata{}, err
	}
	var meta audit.TokenMetadata
	if pair != nil {
		if pair.BaseToken.Name != "" {
			name := pair.BaseToken.Name
			meta.Name = &name
		}
		if pair.BaseToken.Symbol != "" {
			symbol := pair.BaseToken.Symbol
			meta.Symbol = &symbol
		}
	}
	o.cache.PutMetadata(mint, meta)
	return meta, nil
}

// FetchLiquidityUsd returns the USD liquidity of the token's deepest
// DexScreener pair, or nil when no pair exists.
func (o *Oracle) FetchLiquidityUsd(ctx context.Context, mint string) (*decimal.Decimal, error) {
	pair, err := o.fetchBestPair(ctx, mint)
	if err != nil {
		return nil, err
	}
	if pair == nil || pair.Liquidity == nil {
		return nil, nil
	}
	liq := pair.Liquidity.Usd
	return &liq, nil
}

func (o *Oracle) fetchJupiter(ctx context.Context, mint string) (*decimal.Decimal, error) {
	u := fmt.Sprintf("%s/price?ids=%s", o.jupiterBase, url.QueryEscape(mint))
	var body struct {
		Data map[string]struct {
			Price decimal.Decimal `json:"price"`
		} `json:"data"`
	}
	if err := o.getJSON(ctx, u, nil, &body); err != nil {
		return nil, err
	}
	entry, ok := body.Data[mint]
	if !ok || entry.Price.IsZero() {
		return nil, nil
	}
	return &entry.Price, nil
}

func (o *Oracle) fetchBirdeye(ctx context.Context, mint string) (*decimal.Decimal, error) {
	if o.birdeyeAPIKey == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/defi/price?address=%s", o.birdeyeBase, url.QueryEscape(mint))
	headers := map[string]string{"X-API-KEY": o.birdeyeAPIKey}
	var body struct {
		Success bool `json:"success"`
		Data    *struct {
			Value decimal.Decimal `json:"value"`
		} `json:"data"`
	}
	if err := o.getJSON(ctx, u, headers, &body); err != nil {
		return nil, err
	}
	if !body.Success || body.Data == nil || body.Data.Value.IsZero() {
		return nil, nil
	}
	return &body.Data.Value, nil
}

func (o *Oracle) fetchDexScreenerPrice(ctx context.Context, mint string) (*decimal.Decimal, error) {
	pair, err := o.fetchBestPair(ctx, mint)
	if err != nil {
		return nil, err
	}
	if pair == nil || pair.PriceUsd == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(pair.PriceUsd)
	if err != nil {
		return nil, fmt.Errorf("parse dexscreener price %q: %w", pair.PriceUsd, err)
	}
	if price.IsZero() {
		return nil, nil
	}
	return &price, nil
}

type dexPair struct {
	PriceUsd  string `json:"priceUsd"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity *struct {
		Usd decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
}

// fetchBestPair returns the token's DexScreener pair with the deepest USD
// liquidity, preferring pairs where the token is the base side.
func (o *Oracle) fetchBestPair(ctx context.Context, mint string) (*dexPair, error) {
	u := fmt.Sprintf("%s/latest/dex/tokens/%s", o.dexScreenerBase, url.QueryEscape(mint))
	var body struct {
		Pairs []dexPair `json:"pairs"`
	}
	if err := o.getJSON(ctx, u, nil, &body); err != nil {
		return nil, err
	}
	var best *dexPair
	for i := range body.Pairs {
		p := &body.Pairs[i]
		if !strings.EqualFold(p.BaseToken.Address, mint) {
			continue
		}
		if best == nil || liquidityOf(p).GreaterThan(liquidityOf(best)) {
			best = p
		}
	}
	return best, nil
}

func liquidityOf(p *dexPair) decimal.Decimal {
	if p.Liquidity == nil {
		return decimal.Zero
	}
	return p.Liquidity.Usd
}

func (o *Oracle) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

func (o *Oracle) recordLookup(provider, status string) {
	if o.metrics != nil {
		o.metrics.RecordPriceLookup(provider, status)
	}
}

func (o *Oracle) recordCache(result string) {
	if o.metrics != nil {
		o.metrics.RecordPriceCache(result)
	}
}
