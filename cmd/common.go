/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valpere/bhasha/internal/config"
	"github.com/valpere/bhasha/internal/detector"
	"github.com/valpere/bhasha/internal/langid"
	"github.com/valpere/bhasha/internal/orchestrator"
	"github.com/valpere/bhasha/internal/store"
)

// app holds the components shared by the detect, chat and serve commands.
type app struct {
	cfg        *config.Config
	classifier *langid.Classifier
	orch       *orchestrator.Orchestrator
	db         *store.Store
}

// newApp loads the catalog and, when remote is set, the configured detection
// services. The database is opened when the cache or history is enabled.
func newApp(ctx context.Context, cfg *config.Config, remote bool) (*app, error) {
	catalog, err := langid.LoadCatalog(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load language profiles: %w", err)
	}

	a := &app{cfg: cfg, classifier: langid.New(catalog)}

	if cfg.DBPath != "" && (cfg.Detect.Cache || cfg.Detect.History) {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		a.db, err = store.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	var services []detector.DetectionService
	if remote {
		services = buildServices(ctx, cfg, catalog)
	}

	orchCfg := orchestrator.OrchestratorConfig{
		Timeout: cfg.Detect.Timeout,
		Logger:  slog.Default(),
	}
	if a.db != nil && cfg.Detect.Cache && len(services) > 0 {
		orchCfg.Cache = a.db
	}
	a.orch = orchestrator.New(services, detector.NewHeuristicService(a.classifier), orchCfg)

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// history returns the store when detections should be recorded.
func (a *app) history() *store.Store {
	if a.cfg.Detect.History {
		return a.db
	}
	return nil
}

// buildServices constructs the remote detection services in configured
// order, skipping the ones that cannot run.
func buildServices(ctx context.Context, cfg *config.Config, catalog *langid.Catalog) []detector.DetectionService {
	var list []detector.DetectionService

	for _, name := range cfg.Detect.Services {
		var svc detector.DetectionService
		switch name {
		case "openai":
			svc = detector.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, catalog)
		case "ollama":
			svc = detector.NewOllamaService(cfg.Ollama.BaseURL, cfg.Ollama.Model, catalog)
		case "google":
			svc = detector.NewGoogleService(cfg.Google.Credentials, catalog)
		case "lingua":
			svc = detector.NewLinguaService(catalog)
		default:
			slog.Warn("unknown detection service, skipping", "service", name)
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := svc.IsAvailable(checkCtx)
		cancel()
		if err != nil {
			slog.Warn("detection service unavailable, skipping", "service", name, "error", err)
			continue
		}
		list = append(list, svc)
	}

	if len(list) == 0 && len(cfg.Detect.Services) > 0 {
		slog.Info("no remote detection services available, using heuristic only")
	}
	return list
}
