package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrei/ocrwatch/internal/artifact"
	"github.com/andrei/ocrwatch/internal/config"
	"github.com/andrei/ocrwatch/internal/observability"
	"github.com/andrei/ocrwatch/internal/ocr"
	"github.com/andrei/ocrwatch/internal/pipeline"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and extract text from every PDF that lands in it",
	Long: `Runs until interrupted: polls the input directory for new PDFs, waits for
each file to stop changing, extracts its text through the configured OCR
backend, and writes <stem>.txt plus <stem>.json into the output directory.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runWatch,
}

var (
	watchConfigPath     string
	watchInputDir       string
	watchOutputDir      string
	watchCredentials    string
	watchProvider       string
	watchModel          string
	watchAPIKey         string
	watchLanguages      []string
	watchDPI            int
	watchPoll           float64
	watchQuiet          float64
	watchSettle         float64
	watchWorkers        int
	watchRetries        int
	watchExtractTimeout float64
	watchGrace          float64
	watchCollision      string
	watchVerbose        bool
)

func init() {
	// Config file flag (processed first)
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	watchCmd.Flags().StringVarP(&watchInputDir, "input", "i", "", "Directory to watch for incoming PDFs (defaults to OCRWATCH_INPUT_DIR env var)")
	watchCmd.Flags().StringVarP(&watchOutputDir, "output", "o", "", "Directory to write text artifacts into (defaults to OCRWATCH_OUTPUT_DIR env var)")
	watchCmd.Flags().StringVarP(&watchProvider, "provider", "p", "", "OCR backend: vision, gemini, or tesseract")
	watchCmd.Flags().StringVar(&watchModel, "model", "", "Gemini model name override")
	watchCmd.Flags().StringSliceVarP(&watchLanguages, "languages", "l", nil, "Language hints passed to the backend (BCP-47, e.g. en,de)")
	watchCmd.Flags().IntVar(&watchDPI, "dpi", 0, "Rasterization density for the tesseract backend")
	watchCmd.Flags().Float64Var(&watchPoll, "poll", 0, "Seconds between file stability samples")
	watchCmd.Flags().Float64Var(&watchQuiet, "quiet", 0, "Seconds a file must stay unchanged before extraction starts")
	watchCmd.Flags().Float64Var(&watchSettle, "settle", 0, "Seconds before an ever-changing file is given up on")
	watchCmd.Flags().IntVarP(&watchWorkers, "workers", "w", 0, "Concurrent extraction jobs")
	watchCmd.Flags().IntVar(&watchRetries, "retries", 0, "Extraction attempts per file, including the first")
	watchCmd.Flags().Float64Var(&watchExtractTimeout, "extract-timeout", 0, "Seconds allowed for a single extraction attempt")
	watchCmd.Flags().Float64Var(&watchGrace, "grace", 0, "Seconds in-flight jobs get to finish after an interrupt")
	watchCmd.Flags().StringVar(&watchCollision, "collision", "", "What to do when an output name is taken: overwrite or suffix")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Print a formatted summary for every extracted document")

	// Credentials can be passed as flags, or read from the usual env vars
	watchCmd.Flags().StringVar(&watchCredentials, "credentials", "", "Path to Google service account JSON (optional, defaults to GOOGLE_APPLICATION_CREDENTIALS env var)")
	watchCmd.Flags().StringVar(&watchAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := buildWatchConfig(cmd)
	if err != nil {
		return err
	}

	// Make sure the watched directory exists before the first scan. The
	// output directory is created by the artifact writer.
	if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
		return fmt.Errorf("failed to create input directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("Shutting down watcher...")
		cancel()
	}()

	client, err := ocr.New(ctx, ocr.Options{
		Provider:        cfg.Provider,
		CredentialsFile: cfg.Credentials,
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		Languages:       cfg.Languages,
		DPI:             cfg.DPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create extraction client: %w", err)
	}
	defer client.Close()

	retrier := ocr.NewRetrier(client, ocr.RetryOptions{
		MaxAttempts:    cfg.RetryAttempts,
		AttemptTimeout: cfg.ExtractTimeout(),
		OnRetry: func(req ocr.Request, attempt int, backoff time.Duration, err error) {
			log.Printf("extraction attempt %d for %s failed, retrying in %s: %v", attempt-1, req.Filename, backoff, err)
		},
	})

	writer, err := artifact.NewWriter(cfg.OutputDir, cfg.Collision)
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	var printer *observability.Printer
	if cfg.Verbose {
		printer = observability.NewPrinter(os.Stdout)
		printer.PrintWatchConfig(&cfg)
	} else {
		log.Printf("watching %s for PDFs (provider %s, %d workers)", cfg.InputDir, client.Name(), cfg.Workers)
	}

	return pipeline.New(&cfg, retrier, writer, printer).Run(ctx)
}

// buildWatchConfig resolves the effective configuration from the config file,
// CLI flags, environment variables, and defaults, in that priority order.
func buildWatchConfig(cmd *cobra.Command) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if watchConfigPath != "" {
		loadedCfg, err := config.LoadConfig(watchConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if watchVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", watchConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("input") {
		cfg.InputDir = watchInputDir
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = watchOutputDir
	}
	if cmd.Flags().Changed("credentials") {
		cfg.Credentials = watchCredentials
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = watchProvider
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = watchModel
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = watchAPIKey
	}
	if cmd.Flags().Changed("languages") {
		cfg.Languages = watchLanguages
	}
	if cmd.Flags().Changed("dpi") {
		cfg.DPI = watchDPI
	}
	if cmd.Flags().Changed("poll") {
		cfg.PollSeconds = watchPoll
	}
	if cmd.Flags().Changed("quiet") {
		cfg.QuietSeconds = watchQuiet
	}
	if cmd.Flags().Changed("settle") {
		cfg.SettleSeconds = watchSettle
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = watchWorkers
	}
	if cmd.Flags().Changed("retries") {
		cfg.RetryAttempts = watchRetries
	}
	if cmd.Flags().Changed("extract-timeout") {
		cfg.ExtractSeconds = watchExtractTimeout
	}
	if cmd.Flags().Changed("grace") {
		cfg.GraceSeconds = watchGrace
	}
	if cmd.Flags().Changed("collision") {
		cfg.Collision = watchCollision
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = watchVerbose
	}

	// Step 3: Environment fallbacks for the directories, applied before the
	// defaults merge so OCRWATCH_INPUT_DIR beats the built-in ./input
	if cfg.InputDir == "" {
		cfg.InputDir = firstEnv("OCRWATCH_INPUT_DIR", "INPUT_DIR")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = firstEnv("OCRWATCH_OUTPUT_DIR", "OUTPUT_DIR")
	}

	// Step 4: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Default())

	// Step 5: Credential handling
	if cfg.Credentials == "" {
		cfg.Credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if cfg.Credentials == "" {
		// Conventional service account location in the working directory
		if _, err := os.Stat("credentials.json"); err == nil {
			cfg.Credentials = "credentials.json"
		}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Provider == "gemini" && cfg.APIKey == "" && cfg.Credentials == "" {
		return cfg, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required for the gemini provider")
	}

	// Step 6: Validate the merged result
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// firstEnv returns the first non-empty value among the named variables.
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
