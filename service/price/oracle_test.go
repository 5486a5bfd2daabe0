package price

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "So11111111111111111111111111111111111111112"

func newTestOracle(t *testing.T, jupiter, birdeye, dex http.Handler) *Oracle {
	t.Helper()
	cfg := OracleConfig{
		Cache: NewCache(60*time.Second, time.Hour, &fakeClock{now: time.Now()}),
	}
	if jupiter != nil {
		srv := httptest.NewServer(jupiter)
		t.Cleanup(srv.Close)
		cfg.JupiterBaseURL = srv.URL
	} else {
		cfg.JupiterBaseURL = "http://127.0.0.1:1" // unreachable
	}
	if birdeye != nil {
		srv := httptest.NewServer(birdeye)
		t.Cleanup(srv.Close)
		cfg.BirdeyeBaseURL = srv.URL
		cfg.BirdeyeAPIKey = "test-key"
	}
	if dex != nil {
		srv := httptest.NewServer(dex)
		t.Cleanup(srv.Close)
		cfg.DexScreenerBaseURL = srv.URL
	} else {
		cfg.DexScreenerBaseURL = "http://127.0.0.1:1"
	}
	return NewOracle(cfg)
}

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

func TestFetchUsdPriceJupiterFirst(t *testing.T) {
	jupiter := jsonHandler(fmt.Sprintf(`{"data":{%q:{"price":142.5}}}`, testMint))
	o := newTestOracle(t, jupiter, nil, nil)

	price, err := o.FetchUsdPrice(t.Context(), testMint)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "142.5", price.String())
}

func TestFetchUsdPriceFallsBackToBirdeye(t *testing.T) {
	jupiter := jsonHandler(`{"data":{}}`) // token not listed
	var gotKey atomic.Value
	birdeye := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-KEY"))
		fmt.Fprint(w, `{"success":true,"data":{"value":0.0031}}`)
	})
	o := newTestOracle(t, jupiter, birdeye, nil)

	price, err := o.FetchUsdPrice(t.Context(), testMint)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "0.0031", price.String())
	assert.Equal(t, "test-key", gotKey.Load())
}

func TestFetchUsdPriceFallsBackToDexScreener(t *testing.T) {
	dex := jsonHandler(fmt.Sprintf(
		`{"pairs":[{"priceUsd":"0.042","baseToken":{"address":%q,"name":"Test","symbol":"TST"},"liquidity":{"usd":125000}}]}`,
		testMint))
	o := newTestOracle(t, nil, nil, dex)

	price, err := o.FetchUsdPrice(t.Context(), testMint)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "0.042", price.String())
}

func TestFetchUsdPriceUnknownWhenAllProvidersMiss(t *testing.T) {
	jupiter := jsonHandler(`{"data":{}}`)
	dex := jsonHandler(`{"pairs":[]}`)
	o := newTestOracle(t, jupiter, nil, dex)

	price, err := o.FetchUsdPrice(t.Context(), testMint)
	require.NoError(t, err)
	assert.Nil(t, price, "no listing anywhere means unknown price, not an error")
}

func TestFetchUsdPriceCachesResult(t *testing.T) {
	var calls atomic.Int32
	jupiter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"data":{%q:{"price":1.5}}}`, testMint)
	})
	o := newTestOracle(t, jupiter, nil, nil)

	for i := 0; i < 3; i++ {
		price, err := o.FetchUsdPrice(t.Context(), testMint)
		require.NoError(t, err)
		require.NotNil(t, price)
	}
	assert.Equal(t, int32(1), calls.Load(), "repeated lookups inside the TTL should hit the cache")
}

func TestFetchUsdPriceSkipsBirdeyeWithoutKey(t *testing.T) {
	jupiter := jsonHandler(`{"data":{}}`)
	dex := jsonHandler(fmt.Sprintf(
		`{"pairs":[{"priceUsd":"2.25","baseToken":{"address":%q,"name":"Test","symbol":"TST"}}]}`, testMint))
	o := newTestOracle(t, jupiter, nil, dex)
	o.birdeyeBase = "http://127.0.0.1:1" // would fail if contacted

	price, err := o.FetchUsdPrice(t.Context(), testMint)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "2.25", price.String())
}

func TestFetchTokenMetadataPicksDeepestPair(t *testing.T) {
	dex := jsonHandler(fmt.Sprintf(`{"pairs":[
		{"priceUsd":"1.0","baseToken":{"address":%q,"name":"Shallow","symbol":"SHLW"},"liquidity":{"usd":1000}},
		{"priceUsd":"1.0","baseToken":{"address":%q,"name":"Deep","symbol":"DEEP"},"liquidity":{"usd":500000}},
		{"priceUsd":"1.0","baseToken":{"address":"OtherMint","name":"Other","symbol":"OTH"},"liquidity":{"usd":9000000}}
	]}`, testMint, testMint))
	o := newTestOracle(t, nil, nil, dex)

	meta, err := o.FetchTokenMetadata(t.Context(), testMint)
	require.NoError(t, err)
	require.NotNil(t, meta.Name)
	assert.Equal(t, "Deep", *meta.Name)
	require.NotNil(t, meta.Symbol)
	assert.Equal(t, "DEEP", *meta.Symbol)

	liq, err := o.FetchLiquidityUsd(t.Context(), testMint)
	require.NoError(t, err)
	require.NotNil(t, liq)
	assert.Equal(t, "500000", liq.String())
}

func TestFetchTokenMetadataNoListing(t *testing.T) {
	dex := jsonHandler(`{"pairs":[]}`)
	o := newTestOracle(t, nil, nil, dex)

	meta, err := o.FetchTokenMetadata(t.Context(), testMint)
	require.NoError(t, err)
	assert.Nil(t, meta.Name)
	assert.Nil(t, meta.Symbol)

	liq, err := o.FetchLiquidityUsd(t.Context(), testMint)
	require.NoError(t, err)
	assert.Nil(t, liq)
}

func TestGetJSONRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	o := NewOracle(OracleConfig{})

	var out map[string]any
	err := o.getJSON(t.Context(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}
