package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andrei/ocrwatch/internal/artifact"
	"github.com/andrei/ocrwatch/internal/config"
	"github.com/andrei/ocrwatch/internal/observability"
	"github.com/andrei/ocrwatch/internal/ocr"
	"github.com/andrei/ocrwatch/internal/pipeline"
	"github.com/andrei/ocrwatch/internal/watch"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Extract text from a single PDF and exit",
	Long: `Runs one extraction without watching anything: reads the given PDF, sends it
to the configured OCR backend, and writes <stem>.txt plus <stem>.json into the
output directory.`,
	RunE: runProcess,
}

var (
	procConfigPath  string
	procFile        string
	procOutDir      string
	procCredentials string
	procProvider    string
	procModel       string
	procAPIKey      string
	procLanguages   []string
	procDPI         int
	procRetries     int
	procCollision   string
	procVerbose     bool
)

func init() {
	processCmd.Flags().StringVar(&procConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	processCmd.Flags().StringVarP(&procFile, "file", "f", "", "Path to the PDF to extract (required)")
	processCmd.Flags().StringVarP(&procOutDir, "out", "o", "", "Output directory for the artifacts")
	processCmd.Flags().StringVarP(&procProvider, "provider", "p", "", "OCR backend: vision, gemini, or tesseract")
	processCmd.Flags().StringVar(&procModel, "model", "", "Gemini model name override")
	processCmd.Flags().StringSliceVarP(&procLanguages, "languages", "l", nil, "Language hints passed to the backend (BCP-47, e.g. en,de)")
	processCmd.Flags().IntVar(&procDPI, "dpi", 0, "Rasterization density for the tesseract backend")
	processCmd.Flags().IntVar(&procRetries, "retries", 0, "Extraction attempts, including the first")
	processCmd.Flags().StringVar(&procCollision, "collision", "", "What to do when an output name is taken: overwrite or suffix")
	processCmd.Flags().BoolVarP(&procVerbose, "verbose", "v", false, "Print a formatted summary for the extracted document")

	processCmd.Flags().StringVar(&procCredentials, "credentials", "", "Path to Google service account JSON (optional, defaults to GOOGLE_APPLICATION_CREDENTIALS env var)")
	processCmd.Flags().StringVar(&procAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	processCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	// Step 1: Load config file if provided
	var cfg config.Config
	if procConfigPath != "" {
		loadedCfg, err := config.LoadConfig(procConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = procOutDir
	}
	if cmd.Flags().Changed("credentials") {
		cfg.Credentials = procCredentials
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = procProvider
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = procModel
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = procAPIKey
	}
	if cmd.Flags().Changed("languages") {
		cfg.Languages = procLanguages
	}
	if cmd.Flags().Changed("dpi") {
		cfg.DPI = procDPI
	}
	if cmd.Flags().Changed("retries") {
		cfg.RetryAttempts = procRetries
	}
	if cmd.Flags().Changed("collision") {
		cfg.Collision = procCollision
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = procVerbose
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Default())

	// Step 4: Credential handling
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
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required for the gemini provider")
	}

	// Step 5: Validate the merged result
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Reject unusable input before the backend client is built, so a typo
	// does not cost a credential handshake
	if _, err := os.Stat(procFile); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", procFile)
	}
	if !watch.IsPDF(procFile) {
		return fmt.Errorf("%s is not a PDF file", procFile)
	}

	ctx := context.Background()

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
			fmt.Fprintf(os.Stderr, "Warning: extraction attempt failed, retrying in %s: %v\n", backoff, err)
		},
	})

	writer, err := artifact.NewWriter(cfg.OutputDir, cfg.Collision)
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	var printer *observability.Printer
	if cfg.Verbose {
		printer = observability.NewPrinter(os.Stdout)
	}

	written, err := pipeline.New(&cfg, retrier, writer, printer).ProcessFile(ctx, procFile)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Successfully extracted %s\n", filepath.Base(procFile))
	fmt.Fprintf(os.Stdout, "Text: %s\n", written.TextPath)
	fmt.Fprintf(os.Stdout, "Details: %s\n", written.JSONPath)

	return nil
}
