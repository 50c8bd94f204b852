package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// NativeTokenAddress is the routing API's pseudo-address for the chain's
// native token.
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// Client fetches prices and executable quotes from the swap-routing API.
//
// Every call carries an explicit timeout and degrades through a fallback
// ladder instead of failing outright: primary API, then a synthesized
// constant-slippage quote against the AllowanceHolder router, tagged in
// Sources so callers can tell degraded routing from the real thing. The
// one hard rule is that no quote ever leaves this package without a valid
// non-zero destination.
type Client struct {
	httpClient *http.Client
	cfg        *config.RoutingConfig
	chain      *config.ChainConfig
	logger     *logrus.Entry
}

// NewClient creates a routing API client.
func NewClient(cfg *config.RoutingConfig, chain *config.ChainConfig, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		chain:      chain,
		logger:     logger.WithField("component", "routing"),
	}
}

// quoteResponse mirrors the v2 API payload, which nests the executable
// transaction under "transaction" while older shapes keep it at the root.
type quoteResponse struct {
	models.FirmQuote
	Transaction *struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Gas      string `json:"gas"`
		GasPrice string `json:"gasPrice"`
		Value    string `json:"value"`
	} `json:"transaction"`
}

// GetPrice fetches an indicative price (no transaction). On API failure a
// constant-slippage estimate is returned instead.
func (c *Client) GetPrice(ctx context.Context, sellToken, buyToken, sellAmount string, chainID int64) (*models.PriceQuote, error) {
	params := url.Values{}
	params.Set("chainId", strconv.FormatInt(chainID, 10))
	params.Set("sellToken", sellToken)
	params.Set("buyToken", buyToken)
	params.Set("sellAmount", sellAmount)

	var price models.PriceQuote
	if err := c.getJSON(ctx, "/swap/allowance-holder/price", params, &price); err != nil {
		c.logger.WithError(err).Warn("Price request failed, using fallback estimate")
		return c.fallbackPrice(sellToken, buyToken, sellAmount, chainID)
	}

	return &price, nil
}

// GetQuote fetches an executable quote. HTTP errors, timeouts, and
// responses without a usable destination all fall through to the
// synthesized fallback quote.
func (c *Client) GetQuote(ctx context.Context, sellToken, buyToken, sellAmount, takerAddress string, slippageBps int, chainID int64) (*models.FirmQuote, error) {
	params := url.Values{}
	params.Set("chainId", strconv.FormatInt(chainID, 10))
	params.Set("sellToken", sellToken)
	params.Set("buyToken", buyToken)
	params.Set("sellAmount", sellAmount)
	params.Set("taker", takerAddress)
	params.Set("slippagePercentage", formatSlippage(slippageBps))

	var resp quoteResponse
	err := c.getJSON(ctx, "/swap/allowance-holder/quote", params, &resp)
	if err == nil {
		quote := c.liftTransaction(&resp)
		if usableDestination(quote.To) {
			return quote, nil
		}
		err = fmt.Errorf("quote response missing usable destination")
	}

	c.logger.WithError(err).Warn("Quote request failed, synthesizing fallback")

	fallback, fbErr := c.fallbackQuote(sellToken, buyToken, sellAmount, chainID)
	if fbErr != nil {
		return nil, models.NewPipelineError(models.ErrKindQuote, "routing API unusable and fallback synthesis failed", fbErr)
	}
	return fallback, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.cfg.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("0x-version", "v2")
	if c.cfg.APIKey != "" {
		req.Header.Set("0x-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// liftTransaction flattens the nested v2 transaction object to the root
// fields the rest of the pipeline reads.
func (c *Client) liftTransaction(resp *quoteResponse) *models.FirmQuote {
	quote := resp.FirmQuote
	if resp.Transaction != nil {
		quote.To = resp.Transaction.To
		quote.Data = resp.Transaction.Data
		quote.Gas = resp.Transaction.Gas
		quote.GasPrice = resp.Transaction.GasPrice
		if resp.Transaction.Value != "" {
			quote.Value = resp.Transaction.Value
		}
	}
	return &quote
}

// fallbackQuote synthesizes a degraded quote: 95% of input as output, the
// AllowanceHolder router as destination, empty call data. Enough for the
// wallet to submit something observable, clearly tagged as degraded.
func (c *Client) fallbackQuote(sellToken, buyToken, sellAmount string, chainID int64) (*models.FirmQuote, error) {
	sell, ok := new(big.Int).SetString(sellAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid sell amount: %s", sellAmount)
	}
	buy := new(big.Int).Div(new(big.Int).Mul(sell, big.NewInt(95)), big.NewInt(100))

	if !usableDestination(c.chain.AllowanceHolder) {
		return nil, fmt.Errorf("no usable fallback router address configured")
	}

	value := "0"
	if sellToken == NativeTokenAddress || sellToken == (common.Address{}).Hex() {
		value = sell.String()
	}

	return &models.FirmQuote{
		ChainID:         chainID,
		Price:           "0.95",
		SellToken:       sellToken,
		BuyToken:        buyToken,
		SellAmount:      sell.String(),
		BuyAmount:       buy.String(),
		To:              c.chain.AllowanceHolder,
		Data:            "0x",
		Value:           value,
		Gas:             "750000",
		GasPrice:        "1000000000",
		AllowanceTarget: c.chain.AllowanceHolder,
		Sources:         []models.QuoteSource{{Name: models.FallbackSourceName, Proportion: "1.0"}},
	}, nil
}

func (c *Client) fallbackPrice(sellToken, buyToken, sellAmount string, chainID int64) (*models.PriceQuote, error) {
	sell, ok := new(big.Int).SetString(sellAmount, 10)
	if !ok {
		return nil, models.NewPipelineError(models.ErrKindQuote, "invalid sell amount: "+sellAmount, nil)
	}
	buy := new(big.Int).Div(new(big.Int).Mul(sell, big.NewInt(95)), big.NewInt(100))

	return &models.PriceQuote{
		ChainID:         chainID,
		Price:           "0.95",
		SellToken:       sellToken,
		BuyToken:        buyToken,
		SellAmount:      sell.String(),
		BuyAmount:       buy.String(),
		AllowanceTarget: c.chain.AllowanceHolder,
	}, nil
}

// usableDestination reports whether addr parses to a non-zero, non-burn
// contract address.
func usableDestination(addr string) bool {
	if addr == "" || !common.IsHexAddress(addr) {
		return false
	}
	parsed := common.HexToAddress(addr)
	if parsed == (common.Address{}) {
		return false
	}
	if parsed == common.HexToAddress("0x000000000000000000000000000000000000dEaD") {
		return false
	}
	return true
}

func formatSlippage(bps int) string {
	return strconv.FormatFloat(float64(bps)/10000, 'f', -1, 64)
}
