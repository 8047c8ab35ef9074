package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/coach"
	"nutrition-coach/internal/config"
	"nutrition-coach/internal/database"
	"nutrition-coach/internal/grocery"
	"nutrition-coach/internal/httpapi"
	"nutrition-coach/internal/intake"
	"nutrition-coach/internal/llm"
	"nutrition-coach/internal/logging"
	"nutrition-coach/internal/metrics"
	"nutrition-coach/internal/plan"
	"nutrition-coach/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Debug)

	ctx := context.Background()

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()
	metricsStore := metrics.NewStore(db.SQL)

	textGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create llm client")
	}
	if closer, ok := textGen.(llm.Closer); ok {
		defer closer.Close()
	}
	if textGen != nil {
		textGen = llm.WithUsageRecording("coach", textGen, metricsStore)
	}

	var extractor intake.Extractor
	var generator plan.Generator
	if textGen != nil {
		extractor = intake.NewLLMExtractor(textGen)
		generator, err = plan.NewLLMGenerator(textGen)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create plan generator")
		}
	} else {
		log.Warn().Msg("no llm provider configured, using rule-based extraction and offline plans")
		extractor = intake.NewRuleExtractor()
		generator = plan.NewOfflineGenerator()
	}

	var cartService grocery.CartService
	if cfg.GroceryLive() {
		cartService = grocery.NewClient(cfg.GroceryAPIURL, cfg.GroceryAPIKey, cfg.GroceryCartURL)
	} else {
		log.Warn().Msg("no grocery provider configured, checkout will use mock carts")
	}
	checkout := grocery.NewCheckout(cartService, cfg.GroceryCartURL)

	sessions := session.NewStore(cfg.SessionTTL)
	defer sessions.Close()

	pipeline := coach.NewPipeline(sessions, extractor, generator, checkout, metricsStore)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewServer(pipeline).Handler(),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("coach server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exiting")
}

// newTextGenerator picks the configured provider, Gemini first. A nil return
// with no error means no provider is configured.
func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, error) {
	if cfg.GeminiAPIKey != "" {
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, 0.3)
	}
	if cfg.GroqAPIKey != "" {
		return llm.NewGroqClient(cfg.GroqAPIKey, 0.3), nil
	}
	return nil, nil
}
