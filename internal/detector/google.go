package detector

import (
	"context"
	"fmt"
	"time"

	translate "cloud.google.com/go/translate"
	"google.golang.org/api/option"

	"github.com/valpere/bhasha/internal/langid"
	"github.com/valpere/bhasha/internal/validator"
)

// GoogleService uses the Cloud Translation detect endpoint.
type GoogleService struct {
	credentials string
	validator   *validator.Validator
}

// NewGoogleService creates a detector; credentials is a service-account file
// path, empty to use application default credentials.
func NewGoogleService(credentials string, catalog *langid.Catalog) *GoogleService {
	return &GoogleService{credentials: credentials, validator: validator.New(catalog)}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Detect(ctx context.Context, req DetectRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	var opts []option.ClientOption
	if s.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.credentials))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create client: %v", err)
		return result, fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	detections, err := client.DetectLanguage(ctx, []string{req.Text})
	if err != nil {
		result.Error = fmt.Sprintf("detection failed: %v", err)
		return result, fmt.Errorf("detection failed: %w", err)
	}

	if len(detections) == 0 || len(detections[0]) == 0 {
		result.Error = "no detection returned"
		return result, fmt.Errorf("no detection returned")
	}

	best := detections[0][0]
	for _, d := range detections[0][1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	result.Language = s.validator.Resolve(best.Language.String())
	result.Confidence = best.Confidence
	result.Metadata = map[string]string{
		"raw":      best.Language.String(),
		"reliable": fmt.Sprintf("%t", best.IsReliable),
	}

	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}
