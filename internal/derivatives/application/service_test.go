package application

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

type fakePublisher struct {
	priced []domain.OptionPricedEvent
	built  []domain.SurfaceBuiltEvent
	err    error
}

func (p *fakePublisher) PublishOptionPriced(_ context.Context, e domain.OptionPricedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.priced = append(p.priced, e)
	return nil
}

func (p *fakePublisher) PublishSurfaceBuilt(_ context.Context, e domain.SurfaceBuiltEvent) error {
	if p.err != nil {
		return p.err
	}
	p.built = append(p.built, e)
	return nil
}

type fakeChainProvider struct {
	chain   *domain.OptionChain
	err     error
	fetches int
}

func (f *fakeChainProvider) FetchChain(_ context.Context, ticker string) (*domain.OptionChain, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.chain, nil
}

type fakeSurfaceRepo struct {
	saved []*domain.Surface
	err   error
}

func (r *fakeSurfaceRepo) SaveSnapshot(_ context.Context, s *domain.Surface) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, s)
	return nil
}

func (r *fakeSurfaceRepo) ListSnapshots(_ context.Context, ticker string, limit int) ([]domain.SurfaceSnapshotSummary, error) {
	summaries := make([]domain.SurfaceSnapshotSummary, 0, len(r.saved))
	for _, s := range r.saved {
		if s.Ticker == ticker {
			summaries = append(summaries, domain.SurfaceSnapshotSummary{
				Ticker:     s.Ticker,
				OptionType: s.OptionType,
				DataPoints: s.DataPoints,
				BuiltAt:    s.BuiltAt,
			})
		}
	}
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

type fakeSurfaceCache struct {
	surfaces map[string]*domain.Surface
}

func newFakeSurfaceCache() *fakeSurfaceCache {
	return &fakeSurfaceCache{surfaces: make(map[string]*domain.Surface)}
}

func (c *fakeSurfaceCache) Set(_ context.Context, s *domain.Surface) error {
	c.surfaces[s.Ticker+":"+string(s.OptionType)] = s
	return nil
}

func (c *fakeSurfaceCache) Get(_ context.Context, ticker string, optionType domain.OptionType) (*domain.Surface, error) {
	return c.surfaces[ticker+":"+string(optionType)], nil
}

func testChain(t *testing.T) *domain.OptionChain {
	t.Helper()
	asOf := time.Now()
	expirations := []time.Time{asOf.Add(30 * 24 * time.Hour), asOf.Add(90 * 24 * time.Hour)}

	var quotes []domain.MarketQuote
	for _, exp := range expirations {
		maturity := exp.Sub(asOf).Hours() / 24 / 365
		for _, strike := range []float64{90, 95, 100, 105, 110} {
			c := domain.OptionContract{
				S: 100, K: strike, T: maturity, R: 0.05, Sigma: 0.3,
				Type: domain.OptionTypeCall, Exercise: domain.ExerciseEuropean,
			}
			priced, err := domain.PriceBlackScholes(c)
			if err != nil {
				t.Fatal(err)
			}
			quotes = append(quotes, domain.MarketQuote{
				Strike:     strike,
				Expiration: exp,
				Bid:        priced.Price - 0.01,
				Ask:        priced.Price + 0.01,
				Volume:     100,
				Type:       domain.OptionTypeCall,
			})
		}
	}
	return &domain.OptionChain{
		Ticker:      "AAPL",
		Spot:        100,
		Expirations: expirations,
		Quotes:      quotes,
		FetchedAt:   asOf,
	}
}

func TestPricingServicePriceOptionModels(t *testing.T) {
	publisher := &fakePublisher{}
	svc := NewPricingService(publisher)
	ctx := context.Background()

	cmd := PriceOptionCommand{
		Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2,
		OptionType: "call",
	}

	bs, err := svc.PriceOption(ctx, cmd)
	if err != nil {
		t.Fatalf("black-scholes pricing failed: %v", err)
	}
	if bs.Model != ModelBlackScholes {
		t.Errorf("default model = %q, want %q", bs.Model, ModelBlackScholes)
	}
	if got := bs.Price.InexactFloat64(); math.Abs(got-10.450583572185565) > 1e-9 {
		t.Errorf("price = %v, want reference value", got)
	}

	cmd.Model = ModelTrinomial
	cmd.Steps = 200
	tri, err := svc.PriceOption(ctx, cmd)
	if err != nil {
		t.Fatalf("trinomial pricing failed: %v", err)
	}
	if tri.Steps != 200 {
		t.Errorf("steps = %d, want 200", tri.Steps)
	}
	if diff := math.Abs(tri.Price.InexactFloat64() - bs.Price.InexactFloat64()); diff > 0.02 {
		t.Errorf("trinomial diff to BS = %v, want < 0.02", diff)
	}

	if len(publisher.priced) != 2 {
		t.Errorf("published %d events, want 2", len(publisher.priced))
	}
}

func TestPricingServiceRejectsAmericanBlackScholes(t *testing.T) {
	svc := NewPricingService(nil)
	_, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2,
		OptionType: "put", ExerciseType: "AMERICAN", Model: ModelBlackScholes,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPricingServiceRejectsUnknownModel(t *testing.T) {
	svc := NewPricingService(nil)
	_, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2,
		OptionType: "call", Model: "heston",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPricingServicePublishFailureDoesNotFailPricing(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := NewPricingService(publisher)

	dto, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2,
		OptionType: "call",
	})
	if err != nil {
		t.Fatalf("pricing failed on publish error: %v", err)
	}
	if dto.Price.IsZero() {
		t.Error("price is zero")
	}
}

func TestPricingServiceSolveImpliedVol(t *testing.T) {
	svc := NewPricingService(nil)
	contract := domain.OptionContract{
		S: 100, K: 100, T: 1, R: 0.05, Sigma: 0.25,
		Type: domain.OptionTypeCall, Exercise: domain.ExerciseEuropean,
	}
	priced, err := domain.PriceBlackScholes(contract)
	if err != nil {
		t.Fatal(err)
	}

	dto, err := svc.SolveImpliedVol(context.Background(), SolveIVCommand{
		MarketPrice: priced.Price, Spot: 100, Strike: 100, TimeToExpiry: 1,
		RiskFreeRate: 0.05, OptionType: "call", WithHistory: true,
	})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if !dto.Converged || math.Abs(dto.ImpliedVolatility-0.25) > 1e-3 {
		t.Errorf("implied vol = %v (converged=%v), want 0.25", dto.ImpliedVolatility, dto.Converged)
	}
	if len(dto.Iterations) == 0 {
		t.Error("iteration history requested but empty")
	}
	if dto.Validation == nil || !dto.Validation.IsValid {
		t.Errorf("validation = %+v, want valid", dto.Validation)
	}
}

func TestSurfaceServiceBuildSurface(t *testing.T) {
	chain := testChain(t)
	publisher := &fakePublisher{}
	repo := &fakeSurfaceRepo{}
	cache := newFakeSurfaceCache()
	svc := NewSurfaceService(&fakeChainProvider{chain: chain}, repo, cache, publisher)
	ctx := context.Background()

	dto, err := svc.BuildSurface(ctx, BuildSurfaceCommand{
		Ticker: "aapl", OptionType: "call", RiskFreeRate: 0.05, IncludeGrid: true,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if dto.Ticker != "AAPL" || dto.DataPoints == 0 {
		t.Errorf("dto = ticker %q with %d points", dto.Ticker, dto.DataPoints)
	}
	if dto.Grid == nil {
		t.Error("grid requested but nil")
	}
	if len(dto.TermStructure) != 2 {
		t.Errorf("term structure has %d points, want one per expiration", len(dto.TermStructure))
	}

	if len(repo.saved) != 1 {
		t.Errorf("persisted %d snapshots, want 1", len(repo.saved))
	}
	if len(publisher.built) != 1 {
		t.Errorf("published %d events, want 1", len(publisher.built))
	}

	// 构建结果应立即可从缓存读出
	cached, err := svc.GetSurface(ctx, "AAPL", "CALL", false)
	if err != nil {
		t.Fatalf("get after build failed: %v", err)
	}
	if cached.DataPoints != dto.DataPoints {
		t.Errorf("cached points = %d, want %d", cached.DataPoints, dto.DataPoints)
	}
	if cached.Grid != nil {
		t.Error("grid included without being requested")
	}
}

func TestSurfaceServiceBuildPersistFailureIsNonFatal(t *testing.T) {
	chain := testChain(t)
	repo := &fakeSurfaceRepo{err: errors.New("mysql down")}
	svc := NewSurfaceService(&fakeChainProvider{chain: chain}, repo, newFakeSurfaceCache(), nil)

	dto, err := svc.BuildSurface(context.Background(), BuildSurfaceCommand{
		Ticker: "AAPL", OptionType: "CALL", RiskFreeRate: 0.05,
	})
	if err != nil {
		t.Fatalf("build failed on persistence error: %v", err)
	}
	if dto.DataPoints == 0 {
		t.Error("no points returned")
	}
}

func TestSurfaceServiceGetSurfaceNotFound(t *testing.T) {
	svc := NewSurfaceService(&fakeChainProvider{}, &fakeSurfaceRepo{}, newFakeSurfaceCache(), nil)
	_, err := svc.GetSurface(context.Background(), "TSLA", "CALL", false)
	if !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("err = %v, want ErrSurfaceNotFound", err)
	}
}

func TestSurfaceServiceTermStructureRebuildsFromChain(t *testing.T) {
	chain := testChain(t)
	provider := &fakeChainProvider{chain: chain}
	cache := newFakeSurfaceCache()
	svc := NewSurfaceService(provider, &fakeSurfaceRepo{}, cache, nil)
	ctx := context.Background()

	// 无任何已构建曲面，期限结构查询依然应重建而非 404
	points, err := svc.GetTermStructure(ctx, "aapl", "call", 0.05)
	if err != nil {
		t.Fatalf("term structure failed with empty cache: %v", err)
	}
	if provider.fetches != 1 {
		t.Errorf("provider fetches = %d, want 1", provider.fetches)
	}
	if len(points) != 2 {
		t.Fatalf("term structure has %d points, want one per expiration", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].TimeToMaturity < points[i-1].TimeToMaturity {
			t.Errorf("points not sorted by maturity: %v before %v",
				points[i-1].TimeToMaturity, points[i].TimeToMaturity)
		}
	}

	// 重建出的曲面回写缓存
	if cache.surfaces["AAPL:"+string(domain.OptionTypeCall)] == nil {
		t.Error("rebuilt surface should be cached")
	}

	// 每次查询都重新拉链重建
	if _, err := svc.GetTermStructure(ctx, "AAPL", "CALL", 0.05); err != nil {
		t.Fatalf("second term structure query failed: %v", err)
	}
	if provider.fetches != 2 {
		t.Errorf("provider fetches = %d after second query, want 2", provider.fetches)
	}
}

func TestSurfaceServiceTermStructurePropagatesProviderError(t *testing.T) {
	provider := &fakeChainProvider{err: domain.ErrNoOptionsData}
	svc := NewSurfaceService(provider, &fakeSurfaceRepo{}, newFakeSurfaceCache(), nil)

	_, err := svc.GetTermStructure(context.Background(), "XYZ", "CALL", 0.05)
	if !errors.Is(err, domain.ErrNoOptionsData) {
		t.Errorf("err = %v, want ErrNoOptionsData", err)
	}
}

func TestSurfaceServiceBuildPropagatesProviderError(t *testing.T) {
	provider := &fakeChainProvider{err: domain.ErrNoOptionsData}
	svc := NewSurfaceService(provider, &fakeSurfaceRepo{}, newFakeSurfaceCache(), nil)

	_, err := svc.BuildSurface(context.Background(), BuildSurfaceCommand{Ticker: "XYZ"})
	if !errors.Is(err, domain.ErrNoOptionsData) {
		t.Errorf("err = %v, want ErrNoOptionsData", err)
	}
}
