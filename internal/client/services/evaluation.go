package services

import (
	"context"
	"errors"

	"github.com/willnicht/willnicht/internal/client/client"
	"github.com/willnicht/willnicht/internal/client/ingest"
	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/logging"
)

var (
	ErrQuotaExceeded    = client.ErrQuotaExceeded
	ErrNothingToAnalyze = errors.New("no pending uploads")
)

// Preferences are the per-submission settings sent with the photos.
type Preferences struct {
	Email               string
	UserLanguage        string
	MarketplaceLanguage string
	SourceURL           string
	AdditionalText      string
}

type Evaluator interface {
	Evaluate(ctx context.Context, req ingest.Request) ([]byte, error)
}

type QuotaChecker interface {
	Session() *models.Session
	CheckQuota(ctx context.Context) (bool, error)
}

// AnalysisOutcome is what one submission produced. Demo is set when the
// evaluator could not be used and demo results were generated instead; the
// reason is in EvaluationErr.
type AnalysisOutcome struct {
	Results       []models.EvaluationResult
	Demo          bool
	EvaluationErr error
	Sync          Outcome
}

type EvaluationService interface {
	Analyze(ctx context.Context, uploads []models.PendingUpload, prefs Preferences) (*AnalysisOutcome, error)
}

type evaluationService struct {
	evaluator     Evaluator
	pipeline      *ingest.Pipeline
	quota         QuotaChecker
	sync          *Synchronizer
	remoteEnabled bool
	logger        logging.Logger
}

func NewEvaluationService(evaluator Evaluator, pipeline *ingest.Pipeline, quota QuotaChecker, sync *Synchronizer, remoteEnabled bool, logger logging.Logger) EvaluationService {
	return &evaluationService{
		evaluator:     evaluator,
		pipeline:      pipeline,
		quota:         quota,
		sync:          sync,
		remoteEnabled: remoteEnabled,
		logger:        logger.With("module", "evaluation"),
	}
}

// Analyze submits uploads for evaluation and hands the results to the
// synchronizer. A signed-in user over quota is refused before anything is
// uploaded; a failed quota check does not block. If the evaluator fails or
// answers with something unreadable, demo results stand in.
func (s *evaluationService) Analyze(ctx context.Context, uploads []models.PendingUpload, prefs Preferences) (*AnalysisOutcome, error) {
	if len(uploads) == 0 {
		return nil, ErrNothingToAnalyze
	}

	if err := s.checkQuota(ctx); err != nil {
		return nil, err
	}

	req := ingest.Request{
		Email:               prefs.Email,
		UserLanguage:        prefs.UserLanguage,
		MarketplaceLanguage: prefs.MarketplaceLanguage,
		SourceURL:           prefs.SourceURL,
		AdditionalText:      prefs.AdditionalText,
		Uploads:             uploads,
	}

	out := &AnalysisOutcome{}

	raw, err := s.evaluator.Evaluate(ctx, req)
	if err == nil {
		out.Results, err = s.pipeline.Ingest(raw, uploads, req.Provenance())
	}
	if err != nil {
		s.logger.Warn(ctx, "evaluation unavailable, using demo results", "images", len(uploads), "err", err)
		out.Results = s.pipeline.Mock(uploads, req.Provenance())
		out.Demo = true
		out.EvaluationErr = err
	}

	out.Sync = s.sync.Create(ctx, out.Results)
	return out, nil
}

func (s *evaluationService) checkQuota(ctx context.Context) error {
	if !s.remoteEnabled || s.quota == nil || s.quota.Session() == nil {
		return nil
	}

	ok, err := s.quota.CheckQuota(ctx)
	if err != nil {
		s.logger.Warn(ctx, "quota check failed, attempting anyway", "err", err)
		return nil
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}
