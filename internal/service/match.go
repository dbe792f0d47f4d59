package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/matcher"
	"github.com/persistorai/navgraph/internal/metrics"
	"github.com/persistorai/navgraph/internal/store"
)

// Index names accepted by MatchOptions.Index.
const (
	IndexGrid       = "grid"
	IndexBruteForce = "bruteforce"
)

// MatchStore is what a matching run needs from the backend.
type MatchStore interface {
	matcher.ParcelStore
	store.Locker
}

// MatchOptions configures matching runs.
type MatchOptions struct {
	MaxDistance float64
	Index       string
}

// MatchService runs the bridge matcher under the store's writer lock.
type MatchService struct {
	store   MatchStore
	matcher *matcher.Matcher
	log     *logrus.Logger
}

// NewMatchService creates a MatchService. An unknown index name is an error.
func NewMatchService(st MatchStore, opts MatchOptions, log *logrus.Logger) (*MatchService, error) {
	build, err := indexBuilder(opts.Index)
	if err != nil {
		return nil, err
	}

	mopts := []matcher.Option{matcher.WithIndex(build)}
	if opts.MaxDistance > 0 {
		mopts = append(mopts, matcher.WithMaxDistance(opts.MaxDistance))
	}

	return &MatchService{
		store:   st,
		matcher: matcher.New(st, log, mopts...),
		log:     log,
	}, nil
}

func indexBuilder(name string) (matcher.IndexBuilder, error) {
	switch name {
	case "", IndexGrid:
		return matcher.NewGridIndex, nil
	case IndexBruteForce:
		return matcher.NewBruteForceIndex, nil
	default:
		return nil, fmt.Errorf("unknown match index %q", name)
	}
}

// Run takes the writer lock and matches every unmatched bridge point. It
// returns store.ErrLocked (wrapped) when another run holds the lock. A
// partial report is returned alongside a cancellation error.
func (s *MatchService) Run(ctx context.Context) (*matcher.Report, error) {
	release, err := s.store.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring match lock: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			s.log.WithError(err).Warn("releasing match lock")
		}
	}()

	s.log.WithField("max_distance_m", s.matcher.MaxDistance()).Debug("match.run")

	report, err := s.matcher.Run(ctx)
	if report != nil {
		metrics.MatchPairs.Add(float64(report.PairsMatched))
		metrics.MatchSaveFailures.Add(float64(report.SaveFailures))
	}

	return report, err
}
