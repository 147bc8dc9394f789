package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

// Service interfaces for mocking the Binance API

// KlinesService interface for fetching candlestick data.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// KlinesClient interface abstracts the Binance client for testing.
type KlinesClient interface {
	NewKlinesService() KlinesService
}

// realKlinesClient wraps the actual binance.Client.
type realKlinesClient struct {
	client *binance.Client
}

func (r *realKlinesClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceProvider fetches closed klines from the Binance REST API. It is
// stateless; the caller owns bar bookkeeping. Market data endpoints need no
// credentials.
type BinanceProvider struct {
	client KlinesClient
	now    func() time.Time
}

// NewBinanceProvider creates a Binance market data provider. If baseURL is
// not empty it overrides the default endpoint, which is how tests point the
// provider at a mock server.
func NewBinanceProvider(baseURL string) *BinanceProvider {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return &BinanceProvider{
		client: &realKlinesClient{client: client},
		now:    time.Now,
	}
}

// newBinanceProviderWithClient creates a provider with a custom client.
// This is used for testing with mock clients.
func newBinanceProviderWithClient(client KlinesClient, now func() time.Time) *BinanceProvider {
	if now == nil {
		now = time.Now
	}

	return &BinanceProvider{client: client, now: now}
}

// GetLatestClosedBar returns the most recent fully closed bar for the symbol.
// Binance includes the still-forming kline in its response, so the provider
// fetches two and drops any kline whose close time is in the future.
func (p *BinanceProvider) GetLatestClosedBar(ctx context.Context, symbol string, interval string) (types.Bar, error) {
	bars, err := p.fetch(ctx, symbol, interval, 2)
	if err != nil {
		return types.Bar{}, err
	}

	if len(bars) == 0 {
		return types.Bar{}, errors.Newf(errors.ErrCodeMarketDataFetchFailed,
			"no closed bars returned for %s", symbol)
	}

	return bars[len(bars)-1], nil
}

// GetHistoricalBars returns up to limit closed bars, oldest first.
func (p *BinanceProvider) GetHistoricalBars(ctx context.Context, symbol string, interval string, limit int) ([]types.Bar, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	// Fetch one extra so the count still holds after the forming kline is
	// dropped.
	bars, err := p.fetch(ctx, symbol, interval, limit+1)
	if err != nil {
		return nil, err
	}

	// At an exact interval boundary no kline is forming and all limit+1 bars
	// survive; keep the newest limit.
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	return bars, nil
}

func (p *BinanceProvider) fetch(ctx context.Context, symbol string, interval string, limit int) ([]types.Bar, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeExecutionTimeout, "kline fetch cancelled", err)
		}

		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch klines from Binance", err)
	}

	now := p.now()
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		bar, convertErr := convertKlineToBar(k, symbol, interval)
		if convertErr != nil {
			return nil, convertErr
		}

		// Drop the still-forming kline.
		if bar.CloseTime.After(now) {
			continue
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// convertKlineToBar converts a Binance kline to a Bar. Unlike account data,
// a malformed price here is a hard error: a silently zeroed OHLC value would
// poison every indicator downstream.
func convertKlineToBar(k *binance.Kline, symbol string, interval string) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid open %q", k.Open)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid high %q", k.High)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid low %q", k.Low)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid close %q", k.Close)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid volume %q", k.Volume)
	}

	return types.Bar{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.UnixMilli(k.OpenTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		CloseTime: time.UnixMilli(k.CloseTime),
	}, nil
}

// Ensure BinanceProvider implements Provider.
var _ Provider = (*BinanceProvider)(nil)
