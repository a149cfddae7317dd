package detector

import (
	"context"
	"time"

	"github.com/valpere/bhasha/internal/langid"
)

// HeuristicService adapts the rule-based classifier to DetectionService. It
// never fails.
type HeuristicService struct {
	classifier *langid.Classifier
}

func NewHeuristicService(classifier *langid.Classifier) *HeuristicService {
	return &HeuristicService{classifier: classifier}
}

func (s *HeuristicService) Name() string {
	return "heuristic"
}

func (s *HeuristicService) Detect(ctx context.Context, req DetectRequest) (*ServiceResult, error) {
	start := time.Now()
	res := s.Analyze(req)
	return &ServiceResult{
		ServiceName: s.Name(),
		Language:    res.Language,
		Confidence:  res.Confidence,
		Metadata:    map[string]string{"method": string(res.Method)},
		Latency:     time.Since(start),
	}, nil
}

// Analyze exposes the classifier diagnostics for req.
func (s *HeuristicService) Analyze(req DetectRequest) *langid.Result {
	return s.classifier.Analyze(req.Text, req.Selected)
}

func (s *HeuristicService) IsAvailable(ctx context.Context) error {
	return nil
}
