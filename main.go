package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/Kevin-DeBruyne/expense-tracker/config"
	"github.com/Kevin-DeBruyne/expense-tracker/duration"
	"github.com/Kevin-DeBruyne/expense-tracker/enhance"
	"github.com/Kevin-DeBruyne/expense-tracker/extract"
	"github.com/Kevin-DeBruyne/expense-tracker/gemini"
	"github.com/Kevin-DeBruyne/expense-tracker/prom"
	"github.com/Kevin-DeBruyne/expense-tracker/sms"
	"github.com/Kevin-DeBruyne/expense-tracker/store"
	"github.com/Kevin-DeBruyne/expense-tracker/syncer"
	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/prometheus/exporter-toolkit/web"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const AppName = "sms-expense-tracker"
const AppDesc = "Go-based service that turns bank and merchant SMS notifications into structured expense records. It receives live messages from an SMS gateway webhook, periodically reconciles missed messages, and upgrades degraded records once the AI classifier is reachable again."

var cli struct {
	MetricsPath       string `env:"EXPORTER_METRICS_PATH" help:"${env} - Path under which to expose metrics" default:"/metrics"`
	ConfigPath        string `env:"CONFIG_PATH" help:"${env} - Path to config file" default:"./config.yml"`
	ListenAddress     string `env:"EXPORTER_LISTEN_ADDRESS" help:"${env} - Address to listen on for web interface and telemetry" default:"9718"`
	DataDir           string `env:"DATA_DIR" help:"${env} - Directory holding the durable record store" default:"./data"`
	SmsGatewayURL     string `env:"SMS_GATEWAY_URL" help:"${env} - Base URL of the SMS gateway used for catch-up listing" required:""`
	GeminiAPIKey      string `env:"GEMINI_API_KEY" help:"${env} - API Key for Gemini. If none is provided, extraction degrades to the regex tier"`
	GeminiURL         string `env:"GEMINI_URL" help:"${env} - Override for the Gemini endpoint"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" help:"${env} - API Key for OpenAI. If none is provided, the OpenAI tier is disabled"`
	OpenAIModel       string `env:"OPENAI_MODEL" help:"${env} - OpenAI Model type" default:"gpt-3.5-turbo"`
	AzureAIAPIKey     string `env:"AZURE_API_KEY" help:"${env} - API Key for Azure OpenAI. If none is provided, Azure OpenAI support is disabled"`
	AzureEndpoint     string `env:"AZURE_ENDPOINT" help:"${env} - Azure OpenAI Endpoint"`
	ReconcileInterval string `env:"RECONCILE_INTERVAL" help:"${env} - How often to run the catch-up pass (accepts day-suffixed durations like 1d)" default:"30m"`
	EnablePrometheus  bool   `env:"ENABLE_PROMETHEUS" help:"${env} - Enable Prometheus metrics" default:"true"`
	DryRun            bool   `env:"DEBUG_DRY_RUN" help:"${env} - Do not persist extracted records (Debug)" default:"false"`
}

// App bundles the collaborators shared by the sync loop and the HTTP API.
type App struct {
	store       *store.Store
	parser      *extract.TextParser
	classifiers []extract.Classifier
	pipeline    *extract.Pipeline
	watermark   *syncer.Watermark
	reconciler  *syncer.Reconciler
	sweeper     *enhance.Sweeper
}

func main() {
	// Variable Setup //
	///////////////////
	kong.Parse(&cli,
		kong.Name(AppName),
		kong.Description(AppDesc),
	)
	log.Logger = log.Output(os.Stderr).With().Caller().Logger() // Logger
	cfg := config.InitConfig(cli.ConfigPath)                    // Config

	kv, err := store.NewFileKV(cli.DataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cli.DataDir).Msg("Could not open data directory")
	}
	st := store.New(kv)
	st.SeedCategories(cfg.Categories)

	gateway := sms.New(&http.Client{Timeout: time.Second * 30}, cli.SmsGatewayURL)

	// AI Setup //
	/////////////
	// Gemini is always registered; without a key it reports ConfigMissing
	// and records are flagged for a later enhancement pass.
	classifiers := []extract.Classifier{
		gemini.New(&http.Client{Timeout: time.Second * 30}, cli.GeminiAPIKey, cli.GeminiURL),
	}
	// OpenAI
	var oai *openai.Client
	if cli.OpenAIAPIKey != "" {
		oai = openai.NewClient(cli.OpenAIAPIKey)
	}
	// AzureAI
	if cli.AzureAIAPIKey != "" {
		if cli.AzureEndpoint == "" {
			log.Error().Msg("Azure Endpoint is required if Azure API Key is provided")
		} else {
			oai = openai.NewClientWithConfig(openai.DefaultAzureConfig(cli.AzureAIAPIKey, cli.AzureEndpoint))
		}
	}
	if oai != nil {
		classifiers = append(classifiers, extract.NewOpenAIClassifier(oai, cli.OpenAIModel))
	}

	parser := extract.NewTextParser(keywordRules(cfg))
	pipeline := extract.NewPipeline(classifiers, parser, st, bypassRules(cfg))
	watermark := syncer.NewWatermark(kv)

	app := &App{
		store:       st,
		parser:      parser,
		classifiers: classifiers,
		pipeline:    pipeline,
		watermark:   watermark,
		reconciler:  syncer.NewReconciler(gateway, pipeline, watermark),
		sweeper:     enhance.NewSweeper(classifiers, st),
	}

	interval, err := duration.ParseDuration(cli.ReconcileInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse reconcile interval")
	}

	// Start //
	///////////
	log.Logger.Info().
		Str("version", version.Info()).
		Msg("Starting " + AppName)

	// Create a channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	// Catch-up ticker
	ticker := time.NewTicker(interval)
	quit := make(chan struct{})

	// Immediately reconcile whatever arrived while we were down
	go app.runSync()

	// No Prometheus Support, sync loop only
	if !cli.EnablePrometheus {
		log.Info().Msg("Prometheus metrics are disabled. Sync loop only.")
		for {
			select {
			case <-ticker.C:
				app.runSync()
			case <-quit:
				ticker.Stop()
				return
			case sig := <-sigChan:
				log.Info().Msgf("Received signal %s. Exiting...", sig)
				ticker.Stop()
				return
			}
		}
	}

	// Prometheus Support. Sync loop and Metrics
	go func() {
		for {
			select {
			case <-ticker.C:
				app.runSync()
			case <-quit:
				ticker.Stop()
				return
			}
		}
	}()

	// Metric Registration
	prometheus.MustRegister(
		versioncollector.NewCollector("sms_expense_tracker"),
		prom.NewExporter("expense_tracker", st, watermark),
	)

	// HTTP Server
	http.Handle(cli.MetricsPath, promhttp.Handler())
	app.registerRoutes()
	if cli.MetricsPath != "/" && cli.MetricsPath != "" {
		landingConfig := web.LandingConfig{
			Name:        AppName,
			Description: AppDesc,
			Version:     version.Print(AppName),
			Links: []web.LandingLinks{
				{
					Address: cli.MetricsPath,
					Text:    "Metrics",
				},
				{
					Address: "/health",
					Text:    "Health",
				},
				{
					Address: "/expenses",
					Text:    "Expenses",
				},
			},
		}
		landingPage, err := web.NewLandingPage(landingConfig)

		if err != nil {
			log.Fatal().Err(err).Msg("")
		}
		http.Handle("/", landingPage)
		http.HandleFunc("/health", prom.HealthHandler)
	}

	log.Info().Msgf("Starting HTTP server on listen address :%s and metric path %s", cli.ListenAddress, cli.MetricsPath)

	server := &http.Server{
		Addr:         ":" + cli.ListenAddress,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listen and serve
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Error starting HTTP server")
		}
	}()

	// Handle shutdown
	<-sigChan
	log.Info().Msg("Shutdown Signal Received")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down HTTP server...")
	_ = server.Shutdown(ctx)
	log.Info().Msg("Stopping sync ticker")
	ticker.Stop()
	log.Info().Msg("Shutdown Complete; Exiting...")
}

func keywordRules(cfg *config.MasterConfig) []extract.Keyword {
	rules := make([]extract.Keyword, 0, len(cfg.MerchantKeywords))
	for _, kw := range cfg.MerchantKeywords {
		rules = append(rules, extract.Keyword{Match: kw.Match, Merchant: kw.Merchant})
	}
	return rules
}

func bypassRules(cfg *config.MasterConfig) []extract.BypassRule {
	rules := make([]extract.BypassRule, 0, len(cfg.Bypasses))
	for _, b := range cfg.Bypasses {
		rules = append(rules, extract.BypassRule{
			Match:    b.Match,
			Merchant: b.Merchant,
			Category: b.Category,
			Skip:     b.Skip,
		})
	}
	return rules
}
