package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/portfolio-relay/internal/api"
	"github.com/rickgao/portfolio-relay/internal/model"
	"github.com/rickgao/portfolio-relay/internal/ratelimit"
)

// Exchange is the subset of the REST client the aggregator needs.
type Exchange interface {
	GetAccount(ctx context.Context) (*api.AccountResponse, error)
	GetTickerPrice(ctx context.Context, symbol string) (*api.TickerPriceResponse, error)
}

// Scheduler admits outbound requests under the shared quota.
type Scheduler interface {
	Schedule(ctx context.Context, cost int) error
}

// Config holds the tracked assets.
type Config struct {
	Assets []string // Tracked assets in display order, including Quote
	Quote  string   // Quote asset every value is expressed in
}

// Aggregator computes portfolio snapshots. Safe for concurrent use; it holds
// no per-call state.
type Aggregator struct {
	exchange Exchange
	limiter  Scheduler
	assets   []string
	quote    string
	logger   *slog.Logger

	now func() time.Time
}

// NewAggregator creates an Aggregator. Asset symbols are upper-cased and
// de-duplicated. The tracked set is exactly cfg.Assets; config validation
// requires the quote asset to be one of them.
func NewAggregator(exchange Exchange, limiter Scheduler, cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}

	quote := strings.ToUpper(cfg.Quote)
	seen := make(map[string]bool, len(cfg.Assets))
	assets := make([]string, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		assets = append(assets, a)
	}

	return &Aggregator{
		exchange: exchange,
		limiter:  limiter,
		assets:   assets,
		quote:    quote,
		logger:   logger,
		now:      time.Now,
	}
}

// Assets returns the tracked assets in order.
func (a *Aggregator) Assets() []string {
	return append([]string(nil), a.assets...)
}

// Quote returns the quote asset.
func (a *Aggregator) Quote() string {
	return a.quote
}

// IsTracked reports whether asset is tracked and priced against the quote.
func (a *Aggregator) IsTracked(asset string) bool {
	asset = strings.ToUpper(asset)
	if asset == a.quote {
		return false
	}
	for _, t := range a.assets {
		if t == asset {
			return true
		}
	}
	return false
}

// ComputeSnapshot fetches balances and prices and returns one complete
// snapshot, or an *UpstreamError if any call fails.
func (a *Aggregator) ComputeSnapshot(ctx context.Context) (*model.PortfolioSnapshot, error) {
	start := a.now()

	if err := a.limiter.Schedule(ctx, api.WeightAccount); err != nil {
		return nil, admissionError(StageBalances, "", err)
	}
	account, err := a.exchange.GetAccount(ctx)
	if err != nil {
		return nil, &UpstreamError{Stage: StageBalances, Status: api.StatusOf(err), Err: err}
	}
	balances, err := account.ToBalances()
	if err != nil {
		return nil, &UpstreamError{Stage: StageBalances, Err: err}
	}

	snapshot := &model.PortfolioSnapshot{
		Quote:      a.quote,
		Assets:     a.Assets(),
		Valuations: make(map[string]model.AssetValuation, len(a.assets)),
		TotalValue: decimal.Zero,
	}

	for _, asset := range a.assets {
		quantity := balances[asset].Free // zero value when absent

		v := model.AssetValuation{
			Asset:    asset,
			Quantity: quantity,
		}

		if asset == a.quote {
			v.QuoteEquivalent = quantity
		} else {
			price, err := a.fetchPrice(ctx, asset)
			if err != nil {
				return nil, err
			}
			v.QuoteEquivalent = quantity.Mul(price.Price)
		}

		snapshot.Valuations[asset] = v
		snapshot.TotalValue = snapshot.TotalValue.Add(v.QuoteEquivalent)
	}

	snapshot.Timestamp = a.now()

	a.logger.Debug("snapshot computed",
		"assets", len(a.assets),
		"total", snapshot.TotalValue.StringFixed(model.ValuePlaces),
		"duration", snapshot.Timestamp.Sub(start),
	)

	return snapshot, nil
}

// fetchPrice admits and issues one price lookup for asset against the quote.
func (a *Aggregator) fetchPrice(ctx context.Context, asset string) (model.PriceQuote, error) {
	if err := a.limiter.Schedule(ctx, api.WeightTickerPrice); err != nil {
		return model.PriceQuote{}, admissionError(StagePrice, asset, err)
	}

	resp, err := a.exchange.GetTickerPrice(ctx, model.PairSymbol(asset, a.quote))
	if err != nil {
		return model.PriceQuote{}, &UpstreamError{Stage: StagePrice, Asset: asset, Status: api.StatusOf(err), Err: err}
	}

	quote, err := resp.ToPriceQuote(asset, a.quote)
	if err != nil {
		return model.PriceQuote{}, &UpstreamError{Stage: StagePrice, Asset: asset, Err: err}
	}
	return quote, nil
}

// admissionError maps a limiter failure onto the upstream error taxonomy.
// Context errors pass through unchanged so callers can tell abandonment apart.
func admissionError(stage Stage, asset string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	status := 0
	if isQuotaErr(err) {
		status = http.StatusTooManyRequests
	}
	return &UpstreamError{
		Stage:  stage,
		Asset:  asset,
		Status: status,
		Err:    fmt.Errorf("admission: %w", err),
	}
}

func isQuotaErr(err error) bool {
	return errors.Is(err, ratelimit.ErrQuotaExceeded)
}
