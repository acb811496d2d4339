package signalservice

import (
	"context"
	"math"
	"strings"
	"time"

	"signalengine/internal/domain/signal"
	"signalengine/internal/metrics"
	"signalengine/pkg/errors"
	"signalengine/pkg/logger"
)

// SnapshotProvider supplies raw OHLC and indicator values for a symbol
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, symbol string) (signal.RawValues, error)
}

// PriceProvider supplies the last trade price when OHLC is missing
type PriceProvider interface {
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
}

// Publisher receives every successful recommendation
type Publisher interface {
	PublishRecommendation(ctx context.Context, rec *signal.Recommendation) error
}

// DefaultPublishTimeout bounds the event publish on the request path
const DefaultPublishTimeout = 2 * time.Second

// Deps groups the collaborators of Service. Publisher and Tracker are optional.
type Deps struct {
	Engine         *Engine
	Snapshots      SnapshotProvider
	Prices         PriceProvider
	Publisher      Publisher
	PublishTimeout time.Duration // <= 0 uses DefaultPublishTimeout
	Tracker        errors.Tracker
	Log            *logger.Logger
}

// Service is the analyze boundary: it fetches a snapshot, runs the engine and
// converts every failure into an error response.
type Service struct {
	engine         *Engine
	snapshots      SnapshotProvider
	prices         PriceProvider
	publisher      Publisher
	publishTimeout time.Duration
	tracker        errors.Tracker
	log            *logger.Logger
}

// NewService creates a new analyze service
func NewService(deps Deps) *Service {
	engine := deps.Engine
	if engine == nil {
		engine = NewEngine(DefaultParams())
	}
	log := deps.Log
	if log == nil {
		log = logger.Get()
	}
	publishTimeout := deps.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}
	return &Service{
		engine:         engine,
		snapshots:      deps.Snapshots,
		prices:         deps.Prices,
		publisher:      deps.Publisher,
		publishTimeout: publishTimeout,
		tracker:        deps.Tracker,
		log:            log.With("component", "signal_service"),
	}
}

// Analyze never returns partial results: the response holds either a full
// recommendation or an error message.
func (s *Service) Analyze(ctx context.Context, req signal.Request) (resp signal.Response) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			resp = s.fail(ctx, req, errors.Wrapf(errors.ErrInternal, "panic: %v", r), start)
		}
	}()

	rec, err := s.analyze(ctx, req)
	if err != nil {
		return s.fail(ctx, req, err, start)
	}

	metrics.RecordRecommendation(rec.FinalSignal.String(), time.Since(start))
	s.log.Infow("Recommendation generated",
		"symbol", rec.Symbol,
		"summary", rec.Summary(),
		"duration", time.Since(start),
	)
	return signal.Response{Recommendation: rec}
}

func (s *Service) analyze(ctx context.Context, req signal.Request) (*signal.Recommendation, error) {
	symbol, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	if s.snapshots == nil {
		return nil, errors.Wrap(errors.ErrDataUnavailable, "no snapshot provider configured")
	}
	raw, err := s.snapshots.GetSnapshot(ctx, symbol)
	if err != nil {
		return nil, dataUnavailable(err, "fetch snapshot")
	}

	snap, err := signal.NewMarketSnapshot(raw)
	if err != nil {
		return nil, err
	}
	ind, err := signal.NewIndicatorSet(raw)
	if err != nil {
		return nil, err
	}

	if snap.NeedsFallback() {
		snap, err = s.fallbackSnapshot(ctx, symbol, snap)
		if err != nil {
			return nil, err
		}
	}

	rec, err := s.engine.Evaluate(symbol, snap, ind, req.Amount)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, rec)
	return rec, nil
}

// publish is best effort and bounded by publishTimeout
func (s *Service) publish(ctx context.Context, rec *signal.Recommendation) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishRecommendation(pubCtx, rec); err != nil {
		s.log.Warnw("Failed to publish recommendation", "symbol", rec.Symbol, "error", err)
	}
}

func (s *Service) fallbackSnapshot(ctx context.Context, symbol string, snap signal.MarketSnapshot) (signal.MarketSnapshot, error) {
	s.log.Debugw("Snapshot incomplete, using last trade price",
		"symbol", symbol,
		"high", snap.High,
		"low", snap.Low,
		"close", snap.Close,
	)
	if s.tracker != nil {
		s.tracker.AddBreadcrumb(ctx, "price fallback", "snapshot", errors.LevelInfo, map[string]interface{}{
			"symbol": symbol,
		})
	}

	if s.prices == nil {
		return signal.MarketSnapshot{}, errors.Wrap(errors.ErrDataUnavailable, "snapshot incomplete and no price provider configured")
	}
	price, err := s.prices.GetLastPrice(ctx, symbol)
	if err != nil {
		return signal.MarketSnapshot{}, dataUnavailable(err, "fetch last price")
	}
	return signal.SnapshotFromLastPrice(price), nil
}

func (s *Service) fail(ctx context.Context, req signal.Request, err error, start time.Time) signal.Response {
	kind := errors.Kind(err)
	metrics.RecordAnalyzeError(kind, time.Since(start))

	if kind == "internal" {
		tags := map[string]string{"symbol": req.Symbol, "component": "signal_service"}
		if s.tracker != nil {
			s.tracker.CaptureError(ctx, err, tags)
		}
		s.log.Errorw("Analyze failed", "symbol", req.Symbol, "error", err)
	} else {
		s.log.Warnw("Analyze rejected", "symbol", req.Symbol, "kind", kind, "error", err)
	}

	return signal.Response{Error: err.Error()}
}

func validateRequest(req signal.Request) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return "", errors.NewValidationError("symbol", "must not be empty", req.Symbol)
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount < 0 {
		return "", errors.NewValidationError("amount", "must be a finite non-negative number", req.Amount)
	}
	return symbol, nil
}

// dataUnavailable tags provider failures, keeping cancellation and existing tags intact
func dataUnavailable(err error, op string) error {
	if errors.Is(err, errors.ErrDataUnavailable) || errors.Is(err, errors.ErrInvalidSnapshot) {
		return errors.Wrap(err, op)
	}
	return errors.Wrap(errors.Join(errors.ErrDataUnavailable, err), op)
}
