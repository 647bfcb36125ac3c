// Package app bootstraps and wires the application components. It acts as
// the facade for the entire system.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	cvecache "github.com/tarkai/trustlens/internal/adapters/cve"
	"github.com/tarkai/trustlens/internal/adapters/llm"
	"github.com/tarkai/trustlens/internal/adapters/nvd"
	"github.com/tarkai/trustlens/internal/adapters/storage"
	webserver "github.com/tarkai/trustlens/internal/adapters/web/server"
	"github.com/tarkai/trustlens/internal/adapters/web/websocket"
	"github.com/tarkai/trustlens/internal/config"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
	"github.com/tarkai/trustlens/internal/core/services/assessment"
	"github.com/tarkai/trustlens/internal/telemetry"
)

// Application holds the core components of the application.
type Application struct {
	Config    *config.Config
	Store     ports.AssessmentStore
	Cache     ports.CVECache
	Source    ports.CVESource
	Service   *assessment.Service
	WSManager *websocket.Manager
	WebServer *webserver.Server
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}

	provider, err := app.buildProvider()
	if err != nil {
		return err
	}

	if app.Config.MockMode {
		// No real lookups in mock mode: keeps pipeline runs deterministic.
		app.Source = noopSource{}
		slog.Info("Mock mode active: scripted model backend, no NVD lookups")
	} else {
		app.Source = nvd.NewClient(app.Config.NVDAPIKey, app.Config.NVDTimeout)
	}

	agents, err := assessment.NewAgents(provider)
	if err != nil {
		return fmt.Errorf("failed to build agents: %w", err)
	}

	app.WSManager = websocket.NewManager()
	app.Service = assessment.NewService(app.Store, app.Source, agents,
		assessment.WithCache(app.Cache),
		assessment.WithNotifier(app.WSManager),
	)

	app.WebServer = webserver.NewServer(app.Config.Addr, app.Service, app.Cache, app.WSManager)
	return nil
}

func (app *Application) initStorage() error {
	for _, path := range []string{app.Config.DBPath, app.Config.CVECachePath} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStore(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init assessment storage: %w", err)
	}
	app.Store = store

	cache, err := cvecache.NewSQLiteCache(app.Config.CVECachePath)
	if err != nil {
		return fmt.Errorf("failed to init CVE cache: %w", err)
	}
	app.Cache = cache

	return nil
}

func (app *Application) buildProvider() (ports.LLMProvider, error) {
	if app.Config.MockMode {
		return llm.NewCyclingMockProvider(mockResponses...), nil
	}
	if app.Config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required (or run with -mock)")
	}
	// Long-form stages can take minutes at full token budget.
	return llm.NewGeminiProvider(app.Config.GeminiAPIKey, app.Config.GeminiModel, 5*time.Minute), nil
}

// Run starts the web server and blocks until ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting trustlens components")

	err := app.WebServer.Run(ctx)

	app.cleanup()
	return err
}

func (app *Application) cleanup() {
	slog.Info("Cleaning up resources")

	if app.Source != nil {
		app.Source.Close()
	}
	if app.Cache != nil {
		app.Cache.Close()
	}
	if app.Store != nil {
		app.Store.Close()
	}
}

// noopSource serves mock mode: every lookup finds nothing.
type noopSource struct{}

func (noopSource) Search(context.Context, ports.CVEQuery) ([]domain.CVE, error) { return nil, nil }
func (noopSource) Close() error                                                 { return nil }

// mockResponses scripts one full pipeline run (entity, vendor, CPEs, trust
// score; analysis is skipped because mock lookups find no CVEs).
var mockResponses = []string{
	`{"resolved_entity":{
		"name":"Example Chat",
		"vendor":{"name":"Example Corp","website":"https://example.com"},
		"category":"chat",
		"description":"Simulated team messaging product.",
		"usage":"Demonstration data for mock mode."
	}}`,
	`{"vendor":{"name":"Example Corp","website":"https://example.com"}}`,
	`{"cpes":[{"vendor":"example","product":"chat","full_cpe":"cpe:2.3:a:example:chat:*:*:*:*:*:*:*:*"}]}`,
	`{"trust_score":{
		"overall_score":75,
		"overall_level":"high",
		"category_scores":{
			"security":{"score":75,"level":"high","reasoning":"No known vulnerabilities in simulated data.","key_factors":["simulated"]}
		},
		"summary":"Simulated assessment produced by mock mode.",
		"confidence_score":50,
		"assessment_limitations":["mock mode: no real model or NVD data"]
	}}`,
}
