package returns

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/clientdata"
	"github.com/quantfolio/quantfolio/internal/modules/transactions"
	"github.com/quantfolio/quantfolio/internal/modules/valuation"
	"github.com/quantfolio/quantfolio/internal/utils"
)

// SnapshotSource reads the persisted daily snapshot series.
type SnapshotSource interface {
	GetLatestAt(portfolioID, date string) (*valuation.Snapshot, error)
	GetRange(portfolioID, startDate, endDate string) ([]valuation.Snapshot, error)
}

// TransactionSource reads raw transaction flows.
type TransactionSource interface {
	ListForPortfolioRange(portfolioID, startDate, endDate string) ([]transactions.Transaction, error)
	EarliestDate(portfolioID string) (*string, error)
}

// FigureCache stores computed results across requests.
type FigureCache interface {
	Get(key string, dest interface{}) (bool, error)
	Set(key string, value interface{}, ttl time.Duration) error
	DeletePrefix(prefix string) error
}

// Result is a full performance answer for one portfolio and period.
type Result struct {
	PortfolioID  string    `json:"portfolio_id" msgpack:"portfolio_id"`
	Period       string    `json:"period" msgpack:"period"`
	StartDate    string    `json:"start_date" msgpack:"start_date"`
	EndDate      string    `json:"end_date" msgpack:"end_date"`
	TTWR         float64   `json:"ttwr" msgpack:"ttwr"`
	TTWRInvested float64   `json:"ttwr_invested" msgpack:"ttwr_invested"`
	MWRR         float64   `json:"mwrr" msgpack:"mwrr"`
	Breakdown    Breakdown `json:"breakdown" msgpack:"breakdown"`
}

// Service computes performance figures on demand from the snapshot series.
// It never writes snapshots; staleness is the rematerializer's problem, which
// invalidates this service's cache through InvalidatePortfolio.
type Service struct {
	snapshots SnapshotSource
	txs       TransactionSource
	cache     FigureCache
	log       zerolog.Logger
}

// NewService creates a new returns service. cache may be nil.
func NewService(
	snapshots SnapshotSource,
	txs TransactionSource,
	cache FigureCache,
	log zerolog.Logger,
) *Service {
	return &Service{
		snapshots: snapshots,
		txs:       txs,
		cache:     cache,
		log:       log.With().Str("service", "returns").Logger(),
	}
}

// CalculateReturns resolves a symbolic period against endDate (today when
// empty) and computes the full figure set for it.
func (s *Service) CalculateReturns(portfolioID, endDate, period string) (*Result, error) {
	if endDate == "" {
		endDate = utils.Today()
	}

	inception, err := s.txs.EarliestDate(portfolioID)
	if err != nil {
		return nil, err
	}
	startDate, err := ResolvePeriod(period, endDate, inception)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("returns:%s:%s:%s:%s", portfolioID, period, startDate, endDate)
	if s.cache != nil {
		var cached Result
		if hit, err := s.cache.Get(cacheKey, &cached); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("Cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	result, err := s.CalculateRange(portfolioID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	result.Period = period

	if s.cache != nil {
		if err := s.cache.Set(cacheKey, result, clientdata.ReturnsTTL); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("Cache write failed")
		}
	}
	return result, nil
}

// CalculateRange computes the figure set for an explicit [start, end] window.
//
// The value series anchors on the latest snapshot at or before start; when
// none exists the period start itself is the anchor with zero value, which
// degrades gracefully for periods reaching before the portfolio existed.
// Flows strictly after start through end inclusive count toward the period.
func (s *Service) CalculateRange(portfolioID, startDate, endDate string) (*Result, error) {
	beginningValue := 0.0
	beginningInvested := 0.0
	anchor, err := s.snapshots.GetLatestAt(portfolioID, startDate)
	if err != nil {
		return nil, err
	}
	if anchor != nil {
		beginningValue = anchor.TotalValue
		beginningInvested = anchor.TotalValue - anchor.Cash
	}

	windowStart := utils.NextDate(startDate)
	series, err := s.snapshots.GetRange(portfolioID, windowStart, endDate)
	if err != nil {
		return nil, err
	}
	periodTxs, err := s.txs.ListForPortfolioRange(portfolioID, windowStart, endDate)
	if err != nil {
		return nil, err
	}

	endingValue := beginningValue
	endingInvested := beginningInvested
	totalSeries := make([]ValuePoint, len(series))
	investedSeries := make([]ValuePoint, len(series))
	for i := range series {
		invested := series[i].TotalValue - series[i].Cash
		totalSeries[i] = ValuePoint{Date: series[i].Date, Value: series[i].TotalValue}
		investedSeries[i] = ValuePoint{Date: series[i].Date, Value: invested}
		if i == len(series)-1 {
			endingValue = series[i].TotalValue
			endingInvested = invested
		}
	}

	portfolioFlows := DailyFlows(periodTxs, ViewPortfolio)
	investedFlows := DailyFlows(periodTxs, ViewInvested)

	ttwr := ChainLinkedReturn(beginningValue, totalSeries, portfolioFlows)
	ttwrInvested := ChainLinkedReturn(beginningInvested, investedSeries, investedFlows)
	mwrr := XIRR(s.xirrSchedule(startDate, endDate, beginningValue, endingValue, periodTxs))

	breakdown := ComputeBreakdown(
		beginningValue, endingValue,
		beginningInvested, endingInvested,
		SumFlows(periodTxs, ViewPortfolio),
		SumFlows(periodTxs, ViewInvested),
	)

	return &Result{
		PortfolioID:  portfolioID,
		StartDate:    startDate,
		EndDate:      endDate,
		TTWR:         ttwr,
		TTWRInvested: ttwrInvested,
		MWRR:         mwrr,
		Breakdown:    breakdown,
	}, nil
}

// CalculateBreakdown computes only the PnL reconciliation for an explicit
// window.
func (s *Service) CalculateBreakdown(portfolioID, startDate, endDate string) (*Breakdown, error) {
	result, err := s.CalculateRange(portfolioID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return &result.Breakdown, nil
}

// InvalidatePortfolio drops every cached figure for the portfolio. Plugged
// into the rematerializer so snapshot regeneration cannot leave stale returns
// behind.
func (s *Service) InvalidatePortfolio(portfolioID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePrefix("returns:" + portfolioID + ":")
}

// xirrSchedule builds the dated investor cash-flow schedule: the beginning
// value as an initial outlay, the period's investor-view flows, and the
// ending value as a terminal receipt.
func (s *Service) xirrSchedule(startDate, endDate string, beginningValue, endingValue float64, txs []transactions.Transaction) []CashFlow {
	daily := DailyFlows(txs, ViewInvestor)
	dates := make([]string, 0, len(daily))
	for date := range daily {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	schedule := make([]CashFlow, 0, len(dates)+2)
	schedule = append(schedule, CashFlow{Date: startDate, Amount: -beginningValue})
	for _, date := range dates {
		schedule = append(schedule, CashFlow{Date: date, Amount: daily[date]})
	}
	schedule = append(schedule, CashFlow{Date: endDate, Amount: endingValue})
	return schedule
}
