package broker

import (
	"context"
	"strconv"
	"strings"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/internal/utils"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

const (
	// BinanceDecimalPrecision is a default decimal precision used as a fallback.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC) for BTC-like assets.
	// Production systems should use symbol-specific precision from Binance exchange info (e.g. LOT_SIZE, PRICE_FILTER).
	BinanceDecimalPrecision = 8

	// DefaultQuoteAsset is the quote currency equity is reported in.
	DefaultQuoteAsset = "USDT"
)

// Binance API error codes that indicate an authentication problem. These
// halt the whole run instead of a single cycle.
var binanceAuthErrorCodes = map[int64]bool{
	-1002: true, // unauthorized
	-2014: true, // API-key format invalid
	-2015: true, // invalid API-key, IP, or permissions
}

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// CancelOrderService interface for cancelling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrigClientOrderID(id string) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewCancelOrderService() CancelOrderService
	NewGetAccountService() GetAccountService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrigClientOrderID(id string) CancelOrderService {
	s.service = s.service.OrigClientOrderID(id)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

// BinanceConfig configures the Binance broker.
type BinanceConfig struct {
	APIKey     string `yaml:"api_key" validate:"required"`
	SecretKey  string `yaml:"secret_key" validate:"required"`
	BaseURL    string `yaml:"base_url"`
	UseTestnet bool   `yaml:"use_testnet"`
	// QuoteAsset is the currency equity is measured in. Defaults to USDT.
	QuoteAsset string `yaml:"quote_asset"`
}

// BinanceBroker implements ExecutionProvider and AccountProvider against the
// Binance spot API. It is stateless - all data is fetched directly from the
// Binance API. The intent ID travels as the client order ID, which Binance
// deduplicates server side.
type BinanceBroker struct {
	client           BinanceClient
	decimalPrecision int
	quoteAsset       string
}

// NewBinanceBroker creates a Binance broker.
// If config.UseTestnet is true, connects to Binance Testnet (https://testnet.binance.vision/).
// If config.BaseURL is set, it takes precedence over UseTestnet.
func NewBinanceBroker(config BinanceConfig) *BinanceBroker {
	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	quote := config.QuoteAsset
	if quote == "" {
		quote = DefaultQuoteAsset
	}

	return &BinanceBroker{
		client:           &realBinanceClient{client: client},
		decimalPrecision: BinanceDecimalPrecision,
		quoteAsset:       quote,
	}
}

// newBinanceBrokerWithClient creates a broker with a custom client.
// This is used for testing with mock clients.
func newBinanceBrokerWithClient(client BinanceClient) *BinanceBroker {
	return &BinanceBroker{
		client:           client,
		decimalPrecision: BinanceDecimalPrecision,
		quoteAsset:       DefaultQuoteAsset,
	}
}

// PlaceOrder submits a market order. The protective levels on the intent are
// decision-engine state, not venue orders; exits are driven by close prices
// upstream.
func (b *BinanceBroker) PlaceOrder(ctx context.Context, order types.ExecuteOrder) (types.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	var side binance.SideType

	switch order.Side {
	case types.PurchaseTypeBuy:
		side = binance.SideTypeBuy
	case types.PurchaseTypeSell:
		side = binance.SideTypeSell
	default:
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", order.Side)
	}

	rounded := utils.RoundToDecimalPrecision(order.Quantity, b.decimalPrecision)
	if rounded <= 0 {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"order quantity %.8f is too small after rounding to %d decimal places",
			order.Quantity, b.decimalPrecision)
	}

	quantity := strconv.FormatFloat(rounded, 'f', b.decimalPrecision, 64)

	resp, err := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID(order.ID).
		Do(ctx)
	if err != nil {
		return types.OrderResult{}, b.mapError(ctx, err, "failed to place order on Binance")
	}

	fillPrice, fillSize := aggregateFills(resp, order.Price)

	result := types.OrderResult{
		OrderID:   order.ID,
		Status:    types.OrderStatusAccepted,
		FillPrice: fillPrice,
		FillSize:  fillSize,
	}

	if resp.Status == binance.OrderStatusTypeRejected {
		result.Status = types.OrderStatusRejected
		result.FillPrice = 0
		result.FillSize = 0
	}

	return result, nil
}

// GetPosition derives the spot position for a symbol from the free and
// locked balance of its base asset. Spot holdings are always long; entry
// price is not recoverable from balances and is reported as zero.
func (b *BinanceBroker) GetPosition(ctx context.Context, symbol string) (types.ExternalPositionView, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.ExternalPositionView{}, b.mapError(ctx, err, "failed to get account info from Binance")
	}

	baseAsset := strings.TrimSuffix(symbol, b.quoteAsset)

	view := types.ExternalPositionView{
		Symbol: symbol,
		Side:   types.PositionSideNone,
	}

	for _, balance := range account.Balances {
		if balance.Asset != baseAsset {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		total := free + locked

		if total > 0 {
			view.Side = types.PositionSideLong
			view.Size = total
		}

		break
	}

	return view, nil
}

// CancelOrder cancels an order by its client order ID (the intent ID).
// Binance answers -2011 when the order is already filled, already cancelled
// or never existed; all of those mean the order is gone, which is the caller's
// goal, so -2011 is not an error.
func (b *BinanceBroker) CancelOrder(ctx context.Context, symbol string, orderID string) error {
	_, err := b.client.NewCancelOrderService().
		Symbol(symbol).
		OrigClientOrderID(orderID).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == -2011 {
			return nil
		}

		return b.mapError(ctx, err, "failed to cancel order on Binance")
	}

	return nil
}

// GetEquity returns the free plus locked balance of the quote asset.
func (b *BinanceBroker) GetEquity(ctx context.Context) (float64, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, b.mapError(ctx, err, "failed to get account info from Binance")
	}

	var equity float64

	for _, balance := range account.Balances {
		if balance.Asset == b.quoteAsset {
			free, _ := strconv.ParseFloat(balance.Free, 64)
			locked, _ := strconv.ParseFloat(balance.Locked, 64)
			equity += free + locked
		}
	}

	return equity, nil
}

// CheckConnection verifies connectivity and authentication by fetching the
// account.
func (b *BinanceBroker) CheckConnection(ctx context.Context) error {
	_, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return b.mapError(ctx, err, "failed to connect to Binance API")
	}

	return nil
}

// mapError classifies a Binance API failure. Auth failures get the fatal
// code; context expiry maps to a timeout so the lifecycle manager knows the
// submission outcome is unknown and must reconcile.
func (b *BinanceBroker) mapError(ctx context.Context, err error, message string) error {
	if ctx.Err() != nil {
		return errors.Wrap(errors.ErrCodeExecutionTimeout, message, err)
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) && binanceAuthErrorCodes[apiErr.Code] {
		return errors.Wrap(errors.ErrCodeExecutionAuthFailed, message, err)
	}

	return errors.Wrap(errors.ErrCodeExecutionRejected, message, err)
}

// aggregateFills computes the size-weighted average fill price across the
// fills of a market order response. Falls back to the intent's reference
// price when the venue reports no fills.
func aggregateFills(resp *binance.CreateOrderResponse, fallbackPrice float64) (price, size float64) {
	var notional float64

	for _, fill := range resp.Fills {
		p, _ := strconv.ParseFloat(fill.Price, 64)
		q, _ := strconv.ParseFloat(fill.Quantity, 64)
		notional += p * q
		size += q
	}

	if size <= 0 {
		executed, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)

		return fallbackPrice, executed
	}

	return notional / size, size
}

// Ensure BinanceBroker implements both provider interfaces.
var (
	_ ExecutionProvider = (*BinanceBroker)(nil)
	_ AccountProvider   = (*BinanceBroker)(nil)
)
