package swap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

const (
	testTaker  = "0x1111111111111111111111111111111111111111"
	testRouter = "0x0000000000001fF3684f28c67538d4D072C22734"
	testWBTC   = "0x2222222222222222222222222222222222222222"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.RoutingConfig{
		BaseURL:     srv.URL,
		Timeout:     5 * time.Second,
		SlippageBps: 100,
		SellAmount:  "10000000000000000",
	}
	chain := &config.ChainConfig{
		ID:              10143,
		AllowanceHolder: testRouter,
	}

	return NewClient(cfg, chain, logger), srv
}

func TestGetQuoteSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/allowance-holder/quote", r.URL.Path)
		assert.Equal(t, "v2", r.Header.Get("0x-version"))
		assert.Equal(t, testTaker, r.URL.Query().Get("taker"))
		assert.Equal(t, "0.01", r.URL.Query().Get("slippagePercentage"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"chainId":    10143,
			"sellAmount": "10000000000000000",
			"buyAmount":  "420000",
			"transaction": map[string]string{
				"to":       testRouter,
				"data":     "0xabcdef",
				"gas":      "300000",
				"gasPrice": "52000000000",
				"value":    "10000000000000000",
			},
		})
	}))

	quote, err := client.GetQuote(context.Background(), NativeTokenAddress, testWBTC, "10000000000000000", testTaker, 100, 10143)
	require.NoError(t, err)

	// Nested transaction fields are lifted to the root.
	assert.Equal(t, testRouter, quote.To)
	assert.Equal(t, "0xabcdef", quote.Data)
	assert.Equal(t, "300000", quote.Gas)
	assert.Equal(t, "10000000000000000", quote.Value)
	assert.False(t, quote.Degraded())
}

func TestGetQuoteFallbackOnServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))

	quote, err := client.GetQuote(context.Background(), NativeTokenAddress, testWBTC, "10000000000000000", testTaker, 100, 10143)
	require.NoError(t, err)

	assert.True(t, quote.Degraded())
	assert.Equal(t, testRouter, quote.To)
	// 95% of the input survives the constant-slippage estimate.
	assert.Equal(t, "9500000000000000", quote.BuyAmount)
	// Selling native means the value rides along.
	assert.Equal(t, "10000000000000000", quote.Value)
	require.Len(t, quote.Sources, 1)
	assert.Equal(t, models.FallbackSourceName, quote.Sources[0].Name)
}

func TestGetQuoteFallbackOnNullDestination(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A 200 with a zero destination is as useless as a 500.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"buyAmount": "420000",
			"transaction": map[string]string{
				"to": "0x0000000000000000000000000000000000000000",
			},
		})
	}))

	quote, err := client.GetQuote(context.Background(), NativeTokenAddress, testWBTC, "10000000000000000", testTaker, 100, 10143)
	require.NoError(t, err)

	assert.True(t, quote.Degraded())
	assert.Equal(t, testRouter, quote.To)
}

func TestGetQuoteBadSellAmount(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))

	// Fallback synthesis cannot parse the amount either, so this is the
	// end of the ladder.
	_, err := client.GetQuote(context.Background(), NativeTokenAddress, testWBTC, "not-a-number", testTaker, 100, 10143)
	require.Error(t, err)
	assert.Equal(t, models.ErrKindQuote, models.KindOf(err))
}

func TestGetPriceFallback(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	price, err := client.GetPrice(context.Background(), NativeTokenAddress, testWBTC, "10000000000000000", 10143)
	require.NoError(t, err)
	assert.Equal(t, "9500000000000000", price.BuyAmount)
}

func TestUsableDestination(t *testing.T) {
	assert.True(t, usableDestination(testRouter))

	assert.False(t, usableDestination(""))
	assert.False(t, usableDestination("0x0000000000000000000000000000000000000000"))
	assert.False(t, usableDestination("0x000000000000000000000000000000000000dEaD"))
	assert.False(t, usableDestination("not-an-address"))
}

func TestCreateTransaction(t *testing.T) {
	quote := &models.FirmQuote{
		To:       testRouter,
		Data:     "0xabcdef",
		Value:    "10000000000000000",
		Gas:      "300000",
		GasPrice: "52000000000",
	}

	tx, err := CreateTransaction(quote, testTaker)
	require.NoError(t, err)
	assert.Equal(t, testTaker, tx.From)
	assert.Equal(t, testRouter, tx.To)
	assert.Equal(t, "10000000000000000", tx.Value)
}

func TestCreateTransactionRejectsNullDestination(t *testing.T) {
	for _, to := range []string{"", "0x0000000000000000000000000000000000000000", "0x000000000000000000000000000000000000dEaD"} {
		quote := &models.FirmQuote{To: to, Value: "1"}

		_, err := CreateTransaction(quote, testTaker)
		require.Error(t, err, "destination %q must be rejected", to)
		assert.Equal(t, models.ErrKindInvalidTransaction, models.KindOf(err))
	}
}
