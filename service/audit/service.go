package audit

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/okdsgnr/Strata/service/metrics"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

const (
	minMintLength = 32
	maxMintLength = 44

	// defaultFetchConcurrency bounds simultaneous upstream fetches during
	// multi-token comparison so a single request cannot exhaust RPC rate
	// limits.
	defaultFetchConcurrency = 3
)

// Valid base58 mint characters (no 0, O, I, l).
var validMintRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// ServiceConfig contains the collaborators and settings for a Service.
type ServiceConfig struct {
	Balances  BalanceSource
	Supply    SupplySource
	Prices    PriceOracle
	Metadata  MetadataSource // optional: nil disables name/symbol/liquidity enrichment
	Labels    LabelSource    // optional: nil disables label enrichment and CEX/LP exclusion
	Snapshots SnapshotRepository
	Whales    *WhaleTracker  // optional: nil disables whale tracking
	Searches  SearchLog      // optional: nil disables search logging
	Publisher EventPublisher // optional: nil disables snapshot events

	Metrics *metrics.Metrics // optional: nil disables metrics
	Logger  *slog.Logger

	// FetchConcurrency caps parallel per-token fetches in Compare.
	// Zero means the default.
	FetchConcurrency int

	// Now is the clock used for bucket keys and snapshot timestamps.
	// Nil means time.Now; tests inject a fake.
	Now func() time.Time
}

// Service is the holder snapshot and analytics engine. It turns raw holder
// balances into tiered aggregates, deduplicated snapshots, deltas, whale
// duration stats, and multi-token overlap reports.
type Service struct {
	balances  BalanceSource
	supply    SupplySource
	prices    PriceOracle
	meta      MetadataSource
	labels    LabelSource
	snapshots SnapshotRepository
	whales    *WhaleTracker
	searches  SearchLog
	publisher EventPublisher

	deduper          *Deduper
	metrics          *metrics.Metrics
	logger           *slog.Logger
	fetchConcurrency int
	now              func() time.Time
}

// NewService creates the audit engine from its collaborators.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &Service{
		balances:         cfg.Balances,
		supply:           cfg.Supply,
		prices:           cfg.Prices,
		meta:             cfg.Metadata,
		labels:           cfg.Labels,
		snapshots:        cfg.Snapshots,
		whales:           cfg.Whales,
		searches:         cfg.Searches,
		publisher:        cfg.Publisher,
		deduper:          NewDeduper(cfg.Snapshots, logger),
		metrics:          cfg.Metrics,
		logger:           logger,
		fetchConcurrency: concurrency,
		now:              now,
	}
}

// validateMint rejects malformed token identifiers before any external call.
func validateMint(mint string) error {
	if len(mint) < minMintLength || len(mint) > maxMintLength {
		return &InvalidInputError{Reason: fmt.Sprintf("mint must be %d-%d characters, got %d", minMintLength, maxMintLength, len(mint))}
	}
	if !validMintRegex.MatchString(mint) {
		return &InvalidInputError{Reason: "mint contains invalid base58 characters"}
	}
	return nil
}

// Audit runs a full single-token audit: dedup check, fetch, normalize,
// aggregate, persist, then delta/whale/label enrichment. Either the full
// aggregate pipeline completes and persists atomically, or nothing is
// persisted. Enrichment failures after the snapshot lands degrade to
// pending fields instead of failing the request.
func (s *Service) Audit(ctx context.Context, mint string) (*AuditReport, error) {
	start := time.Now()
	report, err := s.audit(ctx, mint)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		} else if report.Deduped {
			status = "deduped"
		}
		s.metrics.RecordAudit(status, time.Since(start).Seconds())
	}
	return report, err
}

func (s *Service) audit(ctx context.Context, mint string) (*AuditReport, error) {
	if err := validateMint(mint); err != nil {
		return nil, err
	}

	if s.searches != nil {
		if err := s.searches.LogSearch(ctx, mint); err != nil {
			s.logger.Warn("search logging failed", "mint", mint, "error", err)
		}
	}

	// Serialize check-then-insert per mint so concurrent requests for the
	// same token cannot both run the full pipeline.
	release := s.deduper.Acquire(mint)
	defer release()

	capturedAt := s.now().UTC()
	if existing, err := s.deduper.Check(ctx, mint, capturedAt); err != nil {
		return nil, err
	} else if existing != nil {
		if s.metrics != nil {
			s.metrics.RecordSnapshotDeduped(mint)
		}
		return s.dedupedReport(mint, existing), nil
	}

	// Required path: supply, holders, price. Any failure here aborts the
	// audit with nothing persisted.
	supply, err := s.supply.FetchSupply(ctx, mint)
	if err != nil {
		return nil, &FetchError{Source: "supply", Mint: mint, Err: err}
	}
	holders, err := s.balances.FetchAllHolders(ctx, mint)
	if err != nil {
		return nil, &FetchError{Source: "balances", Mint: mint, Err: err}
	}
	price, err := s.prices.FetchUsdPrice(ctx, mint)
	if err != nil {
		return nil, &FetchError{Source: "price", Mint: mint, Err: err}
	}

	normalized, err := Normalize(holders, int(supply.Decimals), price)
	if err != nil {
		return nil, err
	}
	totalHolders := len(normalized)

	// Optional enrichment: labels. A label source failure downgrades to an
	// unlabeled report rather than failing the audit.
	labelMap, labelsPending := s.fetchLabels(ctx, normalized)

	analyzable := FilterExcluded(normalized, labelMap)
	var eligible []NormalizedHolder
	if price != nil {
		eligible = FilterEligible(analyzable)
	}

	supplyUI := supply.UIAmount()
	tierCounts := CountTiers(eligible)
	topN := SumTopN(eligible)
	topNPercents := topN.PercentsOfSupply(supplyUI)
	tierSupply := SumTierSupply(analyzable, supplyUI)

	meta, liquidity := s.fetchMetadata(ctx, mint)

	snap := &Snapshot{
		TokenAddress:    mint,
		CapturedAt:      capturedAt,
		BucketKey:       BucketKey(capturedAt),
		PriceUsd:        price,
		TotalHolders:    totalHolders,
		EligibleHolders: len(eligible),
		TierCounts:      tierCounts,
		TopNBalances:    topN,
		TotalSupplyUI:   supplyUI,
		TierSupplyUI:    tierSupply,
		TokenName:       meta.Name,
		TokenSymbol:     meta.Symbol,
	}

	rawByOwner := make(map[string]HolderBalance, len(holders))
	for _, h := range holders {
		rawByOwner[h.Owner] = h
	}
	topRows := buildTopHolderRows(eligible, rawByOwner)

	id, created, err := s.snapshots.Insert(ctx, snap, topRows)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot for %s: %w", mint, err)
	}
	snap.ID = id
	if !created {
		// A concurrent writer (e.g. another process) won the bucket. Benign
		// duplicate work: return the winner's snapshot id.
		s.logger.Info("snapshot insert lost dedup race", "mint", mint, "snapshot_id", id)
		if s.metrics != nil {
			s.metrics.RecordSnapshotDeduped(mint)
		}
		return s.dedupedReport(mint, snap), nil
	}

	s.logger.Info("snapshot created",
		"mint", mint,
		"snapshot_id", id,
		"holders", totalHolders,
		"eligible", len(eligible),
	)
	if s.metrics != nil {
		s.metrics.RecordSnapshotCreated(mint, float64(totalHolders))
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshotCreated(ctx, snap); err != nil {
			s.logger.Warn("snapshot event publish failed", "mint", mint, "snapshot_id", id, "error", err)
		}
	}

	report := &AuditReport{
		SnapshotID: id,
		Created:    true,
		CapturedAt: capturedAt,
		Token: TokenInfo{
			Mint:     mint,
			Name:     meta.Name,
			Symbol:   meta.Symbol,
			Decimals: int(supply.Decimals),
		},
		PriceUsd:             price,
		LiquidityUsd:         liquidity,
		TotalHolders:         totalHolders,
		EligibleHolders:      len(eligible),
		TierCounts:           tierCounts,
		SupplyConcentration:  topNPercents,
		PercentHoldersByTier: percentHoldersByTier(tierCounts, totalHolders),
		PercentSupplyByTier:  tierSupply,
		LabelsPending:        labelsPending,
	}
	if price != nil {
		mc := price.Mul(supplyUI)
		report.MarketCapUsd = &mc
	}

	// Whale tracking and stats: optional enrichment, degrades to a pending
	// flag on failure.
	if s.whales != nil && price != nil && len(analyzable) > 0 {
		if _, err := s.whales.Process(ctx, mint, analyzable, id, capturedAt); err != nil {
			s.logger.Warn("whale tracking failed", "mint", mint, "snapshot_id", id, "error", err)
			report.WhaleStatsPending = true
		} else if stats, err := s.whales.Stats(ctx, mint, id, capturedAt); err != nil {
			s.logger.Warn("whale stats failed", "mint", mint, "snapshot_id", id, "error", err)
			report.WhaleStatsPending = true
		} else {
			report.Whales = stats
		}
	}

	// Deltas against the most recent prior snapshot. No history means nil
	// deltas; a lookup failure degrades the same way.
	if prev, err := s.snapshots.FindPreviousBefore(ctx, mint, capturedAt); err != nil {
		s.logger.Warn("previous snapshot lookup failed", "mint", mint, "error", err)
	} else {
		report.Deltas = ComputeDeltas(totalHolders, tierCounts, topNPercents.Top10, supplyUI, prev)
	}

	byUsd := sortByUsdDesc(eligible)
	report.NotableHolders = selectNotableHolders(byUsd, labelMap, supplyUI)
	report.WhalesDetected = detectWhaleAddresses(byUsd)

	return report, nil
}

// dedupedReport builds the minimal payload for a request served from an
// existing snapshot.
func (s *Service) dedupedReport(mint string, snap *Snapshot) *AuditReport {
	return &AuditReport{
		SnapshotID: snap.ID,
		Deduped:    true,
		CapturedAt: snap.CapturedAt,
		Token:      TokenInfo{Mint: mint, Name: snap.TokenName, Symbol: snap.TokenSymbol},
		PriceUsd:   snap.PriceUsd,
	}
}

func (s *Service) fetchLabels(ctx context.Context, holders []NormalizedHolder) (map[string]Label, bool) {
	if s.labels == nil {
		return map[string]Label{}, false
	}
	addresses := make([]string, len(holders))
	for i, h := range holders {
		addresses[i] = h.Owner
	}
	labelMap, err := s.labels.FetchLabels(ctx, addresses)
	if err != nil {
		s.logger.Warn("label fetch failed", "count", len(addresses), "error", err)
		return map[string]Label{}, true
	}
	return labelMap, false
}

func (s *Service) fetchMetadata(ctx context.Context, mint string) (TokenMetadata, *decimal.Decimal) {
	if s.meta == nil {
		return TokenMetadata{}, nil
	}
	meta, err := s.meta.FetchTokenMetadata(ctx, mint)
	if err != nil {
		s.logger.Debug("token metadata fetch failed", "mint", mint, "error", err)
		meta = TokenMetadata{}
	}
	liquidity, err := s.meta.FetchLiquidityUsd(ctx, mint)
	if err != nil {
		s.logger.Debug("liquidity fetch failed", "mint", mint, "error", err)
		liquidity = nil
	}
	return meta, liquidity
}

// buildTopHolderRows builds persisted top-holder rows from the eligible
// holder set: the top 50 by balance plus any holder at or above the Shark
// floor, ranked by UI amount.
func buildTopHolderRows(eligible []NormalizedHolder, rawByOwner map[string]HolderBalance) []TopHolderRow {
	sorted := SortByUIAmountDesc(eligible)
	rows := make([]TopHolderRow, 0, 50)
	for i, h := range sorted {
		rank := i + 1
		sharkPlus := h.UsdValue != nil && h.UsdValue.GreaterThanOrEqual(SharkFloor)
		if rank > 50 && !sharkPlus {
			continue
		}
		row := TopHolderRow{
			Rank:     rank,
			Address:  h.Owner,
			Balance:  h.UIAmount,
			UsdValue: h.UsdValue,
			Tier:     h.Tier,
		}
		if raw, ok := rawByOwner[h.Owner]; ok {
			row.RawAmount = raw.RawAmount
			row.Decimals = raw.Decimals
		}
		rows = append(rows, row)
	}
	return rows
}

// detectWhaleAddresses returns the addresses holding whale-tier value,
// capped at 50. byUsd must be pre-sorted descending by USD value.
func detectWhaleAddresses(byUsd []NormalizedHolder) []string {
	out := make([]string, 0)
	for _, h := range byUsd {
		if h.UsdValue == nil || h.UsdValue.LessThan(WhaleFloor) {
			break
		}
		out = append(out, h.Owner)
		if len(out) >= whalesDetectedLimit {
			break
		}
	}
	return out
}

// tokenData is the per-mint fetch result used by Compare.
type tokenData struct {
	mint     string
	supply   Supply
	price    decimal.Decimal
	eligible []NormalizedHolder
}

// Compare runs a multi-token holder overlap analysis over two or three
// mints. Per-token fetches fan out in parallel under the configured
// concurrency ceiling. Prices are required for every token; a missing price
// fails the comparison since overlap eligibility is USD-based.
func (s *Service) Compare(ctx context.Context, mints []string) (*CompareReport, error) {
	start := time.Now()
	report, err := s.compare(ctx, mints)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordCompare(status, time.Since(start).Seconds())
	}
	return report, err
}

func (s *Service) compare(ctx context.Context, mints []string) (*CompareReport, error) {
	if len(mints) < 2 || len(mints) > 3 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("comparison requires 2-3 mints, got %d", len(mints))}
	}
	for _, mint := range mints {
		if err := validateMint(mint); err != nil {
			return nil, err
		}
	}

	// Fan out per-token fetches with a bounded worker pool. Each worker
	// writes its own slot; no shared mutable state.
	data := make([]*tokenData, len(mints))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.fetchConcurrency).WithCancelOnError()
	for i, mint := range mints {
		p.Go(func(ctx context.Context) error {
			td, err := s.fetchTokenData(ctx, mint)
			if err != nil {
				return err
			}
			data[i] = td
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	// One label lookup across the union of eligible addresses.
	seen := make(map[string]struct{})
	addresses := make([]string, 0)
	for _, td := range data {
		for _, h := range td.eligible {
			if _, ok := seen[h.Owner]; ok {
				continue
			}
			seen[h.Owner] = struct{}{}
			addresses = append(addresses, h.Owner)
		}
	}
	labelMap := map[string]Label{}
	if s.labels != nil {
		m, err := s.labels.FetchLabels(ctx, addresses)
		if err != nil {
			s.logger.Warn("label fetch failed for comparison", "count", len(addresses), "error", err)
		} else {
			labelMap = m
		}
	}

	sets := make([]HolderSet, len(data))
	for i, td := range data {
		analyzable := FilterExcluded(td.eligible, labelMap)
		holderMap := make(map[string]NormalizedHolder, len(analyzable))
		for _, h := range analyzable {
			holderMap[h.Owner] = h
		}
		sets[i] = HolderSet{
			Mint:     td.mint,
			Holders:  holderMap,
			Price:    td.price,
			SupplyUI: td.supply.UIAmount(),
		}
	}

	report := &CompareReport{
		Tokens:   mints,
		Overlaps: make(map[string]*OverlapGroup),
	}
	summarize := func(key string, entries []OverlapEntry, groupSets ...HolderSet) {
		AttachLabels(entries, labelMap)
		report.Overlaps[key] = SummarizeOverlap(entries, groupSets)
	}

	summarize("ab", FindPairOverlap(sets[0], sets[1]), sets[0], sets[1])
	if len(sets) == 3 {
		summarize("abc", FindTripleOverlap(sets[0], sets[1], sets[2]), sets[0], sets[1], sets[2])
		summarize("ac", FindPairOverlap(sets[0], sets[2]), sets[0], sets[2])
		summarize("bc", FindPairOverlap(sets[1], sets[2]), sets[1], sets[2])
	}

	s.logger.Info("comparison completed",
		"mints", mints,
		"groups", len(report.Overlaps),
	)
	return report, nil
}

// fetchTokenData fetches and normalizes one token's holder set for overlap
// analysis, filtered to tier-eligible holders.
func (s *Service) fetchTokenData(ctx context.Context, mint string) (*tokenData, error) {
	supply, err := s.supply.FetchSupply(ctx, mint)
	if err != nil {
		return nil, &FetchError{Source: "supply", Mint: mint, Err: err}
	}
	holders, err := s.balances.FetchAllHolders(ctx, mint)
	if err != nil {
		return nil, &FetchError{Source: "balances", Mint: mint, Err: err}
	}
	price, err := s.prices.FetchUsdPrice(ctx, mint)
	if err != nil {
		return nil, &FetchError{Source: "price", Mint: mint, Err: err}
	}
	if price == nil {
		return nil, &FetchError{Source: "price", Mint: mint, Err: fmt.Errorf("price unavailable; comparison requires price data for all tokens")}
	}

	normalized, err := Normalize(holders, int(supply.Decimals), price)
	if err != nil {
		return nil, err
	}

	return &tokenData{
		mint:     mint,
		supply:   supply,
		price:    *price,
		eligible: FilterEligible(normalized),
	}, nil
}
