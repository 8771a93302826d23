package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/dermascan/internal/assessment"
	"github.com/example/dermascan/internal/classifier"
	"github.com/example/dermascan/internal/history"
	"github.com/example/dermascan/internal/logging"
	"github.com/example/dermascan/internal/session"
)

// ErrNoPredictions indicates the service has no stored predictions at all;
// the results page renders its empty state instead of an error.
var ErrNoPredictions = errors.New("no predictions available")

// ScanUseCase encapsulates the dashboard's read/write flows against the
// classifier service and the session handoff slot.
type ScanUseCase struct {
	classifier classifier.Client
	slot       session.Slot
	logger     *zap.Logger
}

// NewScanUseCase constructs a new use case instance.
func NewScanUseCase(client classifier.Client, slot session.Slot, logger *zap.Logger) *ScanUseCase {
	return &ScanUseCase{
		classifier: client,
		slot:       slot,
		logger:     logger.Named("scan_usecase"),
	}
}

// SetCurrent writes a prediction into the session's handoff slot. A slot
// write failure is logged but not fatal to the selection: the results page
// falls back to fetching the latest prediction.
func (uc *ScanUseCase) SetCurrent(ctx context.Context, sessionID string, p *classifier.Prediction) error {
	if err := uc.slot.SetCurrent(ctx, sessionID, p); err != nil {
		wrapped := logging.NewOperationError("usecase.set_current", p.PredictionID, err)
		uc.logger.Error("failed to store current prediction", zap.Error(wrapped))
		return wrapped
	}
	return nil
}

// CurrentResult resolves the prediction the results page should show: the
// session slot when populated, otherwise the most recent stored prediction.
// ErrNoPredictions is returned when the service has nothing at all.
func (uc *ScanUseCase) CurrentResult(ctx context.Context, sessionID string) (*classifier.Prediction, error) {
	if p, err := uc.slot.Current(ctx, sessionID); err == nil {
		return p, nil
	} else if !errors.Is(err, session.ErrEmpty) {
		uc.logger.Warn("failed to read session slot", zap.Error(err))
	}

	predictions, err := uc.classifier.List(ctx)
	if err != nil {
		return nil, logging.NewOperationError("usecase.current_result", "", err)
	}
	if len(predictions) == 0 {
		return nil, ErrNoPredictions
	}

	latest := predictions[0]
	for _, p := range predictions[1:] {
		if newer(p.Timestamp, latest.Timestamp) {
			latest = p
		}
	}
	return &latest, nil
}

// History fetches the full prediction list and applies the query and sort.
// The list is refetched on every call; nothing is cached locally.
func (uc *ScanUseCase) History(ctx context.Context, q history.Query, key history.SortKey) ([]classifier.Prediction, error) {
	predictions, err := uc.classifier.List(ctx)
	if err != nil {
		return nil, logging.NewOperationError("usecase.history", "", err)
	}
	return history.Apply(predictions, q, key), nil
}

// Prediction fetches one stored prediction by identifier. ErrNotFound from
// the classifier passes through untouched so handlers can map it to 404.
func (uc *ScanUseCase) Prediction(ctx context.Context, id string) (*classifier.Prediction, error) {
	return uc.classifier.Get(ctx, id)
}

// Delete forwards a deletion upstream. The caller only drops its local row
// after this returns nil; any failure leaves local state unchanged.
func (uc *ScanUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.classifier.Delete(ctx, id); err != nil {
		wrapped := logging.NewOperationError("usecase.delete", id, err)
		uc.logger.Error("failed to delete prediction", zap.Error(wrapped))
		return wrapped
	}
	logging.WithOperation(uc.logger, "usecase.delete", id).Info("prediction deleted")
	return nil
}

// Image streams a stored upload's bytes from the classifier service.
func (uc *ScanUseCase) Image(ctx context.Context, filename string) (*classifier.Document, error) {
	return uc.classifier.FetchImage(ctx, filename)
}

// Report streams the generated report document for a prediction.
func (uc *ScanUseCase) Report(ctx context.Context, id string) (*classifier.Document, error) {
	return uc.classifier.FetchReport(ctx, id)
}

// SlotHealthy probes the session slot with a throwaway read. An empty slot
// still proves the store answered.
func (uc *ScanUseCase) SlotHealthy(ctx context.Context) bool {
	_, err := uc.slot.Current(ctx, "healthz")
	if err == nil || errors.Is(err, session.ErrEmpty) {
		return true
	}
	uc.logger.Warn("session slot health check failed", zap.Error(err))
	return false
}

// Healthy reports whether the classifier service is reachable.
func (uc *ScanUseCase) Healthy(ctx context.Context) bool {
	if err := uc.classifier.Health(ctx); err != nil {
		uc.logger.Warn("classifier health check failed", zap.Error(err))
		return false
	}
	return true
}

func newer(a, b string) bool {
	ta, okA := assessment.ParseTimestamp(a)
	tb, okB := assessment.ParseTimestamp(b)
	if okA && okB {
		return ta.After(tb)
	}
	if okA != okB {
		return okA
	}
	return a > b
}
