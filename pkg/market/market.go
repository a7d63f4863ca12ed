// Package market supplies instrument rate quotes. Built-in rates cover every
// instrument the engine suggests; when a rates feed URL is configured, the
// provider refreshes from it on a TTL and falls back to the built-ins if the
// feed is down.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
)

// Built-in quotes, refreshed manually when banks revise rates.
var builtinRates = map[string]domain.InstrumentRate{
	"recurring_deposit": {InstrumentType: "recurring_deposit", AnnualRate: 7.5, TenureMonths: 12, ProviderName: "Post Office RD"},
	"ppf":               {InstrumentType: "ppf", AnnualRate: 7.1, TenureMonths: 180, ProviderName: "Public Provident Fund"},
	"fixed_deposit":     {InstrumentType: "fixed_deposit", AnnualRate: 7.0, TenureMonths: 12, ProviderName: "HDFC Bank FD"},
	"mutual_fund":       {InstrumentType: "mutual_fund", AnnualRate: 5.5, TenureMonths: 6, ProviderName: "HDFC Liquid Fund"},
	"mutual_fund_sip":   {InstrumentType: "mutual_fund_sip", AnnualRate: 10.0, TenureMonths: 36, ProviderName: "SBI Equity Hybrid Fund"},
	"gold":              {InstrumentType: "gold", AnnualRate: 8.0, TenureMonths: 12, ProviderName: "Gold Savings Scheme"},
}

// Config configures the provider.
type Config struct {
	// FeedURL serves a JSON array of instrument rates. Empty disables the
	// remote feed entirely.
	FeedURL string
	Timeout time.Duration
	TTL     time.Duration
}

// Provider implements rate lookups with an optional remote feed.
type Provider struct {
	http   *resty.Client
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	fetched   map[string]domain.InstrumentRate
	fetchedAt time.Time
}

// NewProvider creates a rate provider.
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		http:   resty.New().SetTimeout(cfg.Timeout),
		cfg:    cfg,
		logger: logger,
	}
}

// Rate returns the quote for an instrument type, preferring a fresh feed
// value over the built-in table.
func (p *Provider) Rate(ctx context.Context, instrumentType string) (domain.InstrumentRate, error) {
	if fetched := p.feedRates(ctx); fetched != nil {
		if r, ok := fetched[instrumentType]; ok {
			return r, nil
		}
	}
	if r, ok := builtinRates[instrumentType]; ok {
		return r, nil
	}
	return domain.InstrumentRate{}, fmt.Errorf("market: unknown instrument %q", instrumentType)
}

// feedRates returns the cached feed snapshot, refreshing past the TTL.
// Any failure leaves the previous snapshot in place.
func (p *Provider) feedRates(ctx context.Context) map[string]domain.InstrumentRate {
	if p.cfg.FeedURL == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.fetchedAt) < p.cfg.TTL && p.fetched != nil {
		return p.fetched
	}

	rates, err := fn.Retry(ctx, fn.RetryOpts{MaxAttempts: 2, InitialWait: 200 * time.Millisecond},
		func(ctx context.Context) fn.Result[[]domain.InstrumentRate] {
			var out []domain.InstrumentRate
			resp, err := p.http.R().SetContext(ctx).SetResult(&out).Get(p.cfg.FeedURL)
			if err != nil {
				return fn.Err[[]domain.InstrumentRate](err)
			}
			if resp.IsError() {
				return fn.Errf[[]domain.InstrumentRate]("feed returned %s", resp.Status())
			}
			return fn.Ok(out)
		}).Unwrap()
	if err != nil {
		p.logger.Warn("rates feed refresh failed, keeping previous snapshot", "error", err)
		p.fetchedAt = time.Now() // back off for a full TTL
		return p.fetched
	}

	fresh := make(map[string]domain.InstrumentRate, len(rates))
	for _, r := range rates {
		if r.InstrumentType != "" && r.AnnualRate > 0 {
			fresh[r.InstrumentType] = r
		}
	}
	p.fetched = fresh
	p.fetchedAt = time.Now()
	p.logger.Info("rates feed refreshed", "instruments", len(fresh))
	return p.fetched
}
