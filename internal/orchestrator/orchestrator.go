package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/valpere/bhasha/internal"
	"github.com/valpere/bhasha/internal/detector"
	"github.com/valpere/bhasha/internal/langid"
)

// Cache stores remote detections keyed by message text.
type Cache interface {
	Lookup(ctx context.Context, text string) (language, service string, found bool, err error)
	Remember(ctx context.Context, text, language, service string) error
}

type OrchestratorConfig struct {
	// Timeout bounds each remote service call.
	Timeout time.Duration
	Cache   Cache
	Logger  *slog.Logger
}

// Resolution is the language chosen for one message plus the evidence.
type Resolution struct {
	Language   string                   `json:"language"`
	Service    string                   `json:"service"`
	Confidence float64                  `json:"confidence"`
	Fallback   bool                     `json:"fallback"`
	Cached     bool                     `json:"cached"`
	Results    []detector.ServiceResult `json:"results,omitempty"`
	Errors     []string                 `json:"errors,omitempty"`
	Heuristic  *langid.Result           `json:"heuristic"`
}

// Record converts the resolution of text into a detection log entry. Method
// is "cache" or "remote" unless the heuristic decided, in which case it names
// the heuristic rule.
func (r *Resolution) Record(text, selected string) internal.DetectionRecord {
	rec := internal.DetectionRecord{
		Text:     text,
		Selected: selected,
		Detected: r.Language,
		Service:  r.Service,
		Fallback: r.Fallback,
	}
	switch {
	case r.Cached:
		rec.Method = "cache"
	case !r.Fallback:
		rec.Method = "remote"
	case r.Heuristic != nil:
		rec.Method = string(r.Heuristic.Method)
	}
	return rec
}

// Orchestrator queries remote detectors concurrently and falls back to the
// heuristic classifier when none of them answers.
type Orchestrator struct {
	services  []detector.DetectionService
	heuristic *detector.HeuristicService
	config    OrchestratorConfig
}

// New creates an Orchestrator. services are in precedence order; the first
// one that succeeds decides the language.
func New(services []detector.DetectionService, heuristic *detector.HeuristicService, config OrchestratorConfig) *Orchestrator {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Orchestrator{
		services:  services,
		heuristic: heuristic,
		config:    config,
	}
}

// Services returns the remote service names in precedence order.
func (o *Orchestrator) Services() []string {
	names := make([]string, len(o.services))
	for i, s := range o.services {
		names[i] = s.Name()
	}
	return names
}

// Resolve picks a language for req. It never fails: with no usable remote
// answer the heuristic result is used.
func (o *Orchestrator) Resolve(ctx context.Context, req detector.DetectRequest) *Resolution {
	res := &Resolution{Heuristic: o.heuristic.Analyze(req)}
	log := o.config.Logger.With("selected", req.Selected)

	if o.config.Cache != nil {
		lang, service, found, err := o.config.Cache.Lookup(ctx, req.Text)
		if err != nil {
			log.Warn("detection cache lookup failed", "error", err)
		} else if found {
			res.Language, res.Service, res.Cached = lang, service, true
			res.Confidence = 1.0
			log.Debug("detection served from cache", "language", lang, "service", service)
			return res
		}
	}

	results, errs := o.Execute(ctx, req)
	res.Results = results
	for _, err := range errs {
		res.Errors = append(res.Errors, err.Error())
	}

	if len(results) > 0 {
		best := results[0]
		res.Language, res.Service, res.Confidence = best.Language, best.ServiceName, best.Confidence
		log.Debug("remote detection", "language", best.Language, "service", best.ServiceName, "latency", best.Latency)

		if o.config.Cache != nil {
			if err := o.config.Cache.Remember(ctx, req.Text, best.Language, best.ServiceName); err != nil {
				log.Warn("detection cache write failed", "error", err)
			}
		}
		return res
	}

	if len(o.services) > 0 {
		log.Info("remote detection unavailable, using heuristic", "errors", len(errs))
	}
	res.Language = res.Heuristic.Language
	res.Service = o.heuristic.Name()
	res.Confidence = res.Heuristic.Confidence
	res.Fallback = true
	return res
}

// Execute calls every remote service concurrently and returns the successful
// results in precedence order along with the failures.
func (o *Orchestrator) Execute(ctx context.Context, req detector.DetectRequest) ([]detector.ServiceResult, []error) {
	type resultChan struct {
		index int
		res   *detector.ServiceResult
		err   error
	}

	resultChanSlice := make(chan resultChan, len(o.services))

	var wg sync.WaitGroup
	for i, svc := range o.services {
		wg.Add(1)
		go func(index int, service detector.DetectionService) {
			defer wg.Done()

			serviceCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
			defer cancel()

			res, err := service.Detect(serviceCtx, req)
			resultChanSlice <- resultChan{index: index, res: res, err: err}
		}(i, svc)
	}

	go func() {
		wg.Wait()
		close(resultChanSlice)
	}()

	ordered := make([]*detector.ServiceResult, len(o.services))
	var errs []error
	for rc := range resultChanSlice {
		name := o.services[rc.index].Name()
		switch {
		case rc.err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", name, rc.err))
		case rc.res == nil:
			errs = append(errs, fmt.Errorf("%s: no result", name))
		case rc.res.Error != "":
			errs = append(errs, fmt.Errorf("%s: %s", name, rc.res.Error))
		default:
			ordered[rc.index] = rc.res
		}
	}

	var results []detector.ServiceResult
	for _, r := range ordered {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, errs
}
