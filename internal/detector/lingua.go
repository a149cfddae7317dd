package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/bhasha/internal/langid"
)

// LinguaService is a statistical n-gram detector limited to the catalog
// languages lingua knows. It works well on native script and poorly on
// romanized text, which is why it is not the primary fallback.
type LinguaService struct {
	detector lingua.LanguageDetector
	codes    map[lingua.Language]string
}

// NewLinguaService builds a lingua detector for catalog. Building loads
// language models; reuse the instance.
func NewLinguaService(catalog *langid.Catalog) *LinguaService {
	s := &LinguaService{codes: make(map[lingua.Language]string)}

	var languages []lingua.Language
	for _, lang := range lingua.AllLanguages() {
		code := strings.ToLower(lang.IsoCode639_1().String())
		if catalog.Supports(code) {
			languages = append(languages, lang)
			s.codes[lang] = code
		}
	}

	// lingua refuses to build with fewer than two languages.
	if len(languages) >= 2 {
		s.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build()
	}

	return s
}

func (s *LinguaService) Name() string {
	return "lingua"
}

func (s *LinguaService) Detect(ctx context.Context, req DetectRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if err := s.IsAvailable(ctx); err != nil {
		result.Error = err.Error()
		return result, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		result.Error = "empty text"
		return result, fmt.Errorf("empty text")
	}

	values := s.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 || values[0].Value() == 0 {
		result.Error = "language could not be determined"
		return result, fmt.Errorf("language could not be determined")
	}

	result.Language = s.codes[values[0].Language()]
	result.Confidence = values[0].Value()
	result.Metadata = map[string]string{"name": values[0].Language().String()}

	return result, nil
}

func (s *LinguaService) IsAvailable(ctx context.Context) error {
	if s.detector == nil {
		return fmt.Errorf("lingua: catalog shares fewer than two languages with lingua")
	}
	return nil
}

// Languages returns the catalog codes lingua can report.
func (s *LinguaService) Languages() []string {
	codes := make([]string, 0, len(s.codes))
	for _, c := range s.codes {
		codes = append(codes, c)
	}
	return codes
}
