package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/providers/synthesis"
	"server/internal/scenario"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	client, err := synthesis.NewClient(synthesis.Options{
		APIKey:     cfg.SynthAPIKey,
		BaseURL:    cfg.SynthBaseURL,
		Model:      cfg.SynthModel,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure synthesis client")
	}
	generator := synthesis.NewRetryingGenerator(client, synthesis.DefaultRetryPolicy(), logger)

	jobs := repo.NewJobRepository(pool)
	ledger := repo.NewLedger(pool)

	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	logger.Info().Int("concurrency", concurrency).Msg("worker: started")

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		// Each loop gets its own orchestrator so the scenario resolver's
		// randomness source is never shared across goroutines.
		orch := orchestrator.New(orchestrator.Options{
			Jobs:      jobs,
			Ledger:    ledger,
			Scenarios: scenario.NewResolver(rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))),
			Generator: generator,
			Assets:    fileStore,
			Logger:    logger,
			Cost:      cfg.GenerationCost,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			runLoop(ctx, jobs, orch, cfg.WorkerPollInterval, logger)
		}()
	}
	wg.Wait()

	logger.Info().Msg("worker: stopped")
}

// runLoop claims pending jobs one at a time until the context is cancelled.
// An empty queue and a failed claim both back off for the poll interval.
func runLoop(ctx context.Context, jobs *repo.JobRepositoryPG, orch *orchestrator.Orchestrator, pollInterval time.Duration, logger infra.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := jobs.ClaimPending(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Error().Err(err).Msg("worker: claim failed")
			}
			if err := sleepCtx(ctx, pollInterval); err != nil {
				return
			}
			continue
		}

		// Process finalizes the job row itself; the returned error is the
		// failure cause and has already been recorded.
		_ = orch.Process(ctx, job)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
