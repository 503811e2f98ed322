package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/byteowlz/a11yscan/internal/config"
	"github.com/byteowlz/a11yscan/internal/logging"
	"github.com/byteowlz/a11yscan/internal/pipeline"
	"github.com/byteowlz/a11yscan/pkg/scanner"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitNetworkError = 1
	ExitProcessError = 2
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
	ExitPartialError = 6 // some URLs failed, some succeeded
)

var (
	cfgFile           string
	outputFile        string
	outputFormat      string
	htmlDir           string
	file              string
	engine            string
	backend           string
	provider          string
	model             string
	maxImages         int
	maxLinks          int
	maxButtons        int
	noReverse         bool
	concurrency       int
	browser           string
	userAgent         string
	browserAgent      string
	noFollowRedirects bool
	noMetadata        bool
	continueOnError   bool
	delay             float64
	timeout           int
	verbose           bool
	quiet             bool
	force             bool
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "a11yscan",
	Short: "Find and fix missing accessibility labels on web pages",
	Long: `a11yscan scans web pages for images, links and buttons, ranks them by how much a
missing or weak label matters, and generates alt text, link titles and
aria-labels for the most important ones with a vision-capable model.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [urls...]",
	Short: "Analyze pages and generate accessibility labels",
	Long: `Analyze one or more pages. URLs come from arguments, --file, or stdin.
The report is written as JSON (default) or markdown; --html-dir also saves
each page with the generated attributes applied.`,
	RunE: runAnalyze,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		var exit *exitErr
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/a11yscan/config.toml)")

	f := analyzeCmd.Flags()

	// Input/Output flags
	f.StringVarP(&file, "file", "f", "", "read URLs from file (one per line)")
	f.StringVarP(&outputFile, "output", "o", "", "write the report to file (default: stdout)")
	f.StringVar(&outputFormat, "format", "json", "report format (json|markdown)")
	f.StringVar(&htmlDir, "html-dir", "", "save enriched HTML of each page into this directory")

	// Page and content flags
	f.StringVarP(&engine, "engine", "e", "", "page engine (static|chromedp|rod)")
	f.StringVarP(&backend, "backend", "B", "", "content backend (readability|jina|tavily)")
	f.StringVarP(&browser, "browser", "b", "", "browser for cookie import (none|auto|chrome|firefox|safari|zen)")
	f.StringVar(&userAgent, "user-agent", "", "custom user agent string")
	f.StringVar(&browserAgent, "browser-agent", "", "browser agent type (auto|chrome|firefox|safari|edge)")
	f.BoolVar(&noFollowRedirects, "no-follow-redirects", false, "disable following HTTP redirects")
	f.IntVar(&timeout, "timeout", 0, "request timeout in seconds")

	// Generation flags
	f.StringVarP(&provider, "provider", "p", "", "generation provider (claude|openai)")
	f.StringVarP(&model, "model", "m", "", "model name (default depends on provider)")

	// Enrichment flags
	f.IntVar(&maxImages, "max-images", 0, "images to enrich per page")
	f.IntVar(&maxLinks, "max-links", 0, "links to enrich per page")
	f.IntVar(&maxButtons, "max-buttons", 0, "buttons to enrich per page")
	f.BoolVar(&noReverse, "no-reverse", false, "enrich the selected candidates highest score first")
	f.IntVarP(&concurrency, "concurrency", "c", 0, "concurrent generation calls per phase")
	f.BoolVar(&noMetadata, "no-metadata", false, "always generate link titles instead of reading target metadata")

	// Pipeline flags
	f.BoolVar(&continueOnError, "continue-on-error", false, "continue processing remaining URLs on error")
	f.Float64Var(&delay, "delay", 0, "delay in seconds between pages (rate limiting)")

	// System flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-report output")

	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(analyzeCmd, configCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	applyFlags(cmd, cfg)

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return exitError(ExitFileIOError, "failed to open log file: %v", err)
	}
	defer closeLog()

	urls, err := collectURLs(args)
	if err != nil {
		return exitError(ExitInvalidInput, "failed to collect URLs: %v", err)
	}
	if len(urls) == 0 {
		return exitError(ExitInvalidInput, "no URLs provided")
	}

	if outputFormat != "json" && outputFormat != "markdown" {
		return exitError(ExitInvalidInput, "unknown format %q (json|markdown)", outputFormat)
	}
	if htmlDir != "" {
		if err := os.MkdirAll(htmlDir, 0755); err != nil {
			return exitError(ExitFileIOError, "failed to create HTML directory: %v", err)
		}
	}

	s, err := scanner.New(cfg, logger)
	if err != nil {
		return exitError(ExitConfigError, "failed to set up scanner: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "Processing %d URLs\n", len(urls))
	}

	var reports []*pipeline.Report
	failures := 0
	lastCode := ExitSuccess

	for i, url := range urls {
		if verbose && !quiet {
			fmt.Fprintf(os.Stderr, "Processing [%d/%d]: %s\n", i+1, len(urls), url)
		}

		res, err := s.Scan(ctx, url, scanner.ScanOptions{Progress: progressPrinter()})
		if err != nil {
			failures++
			lastCode = exitCodeFor(err)
			if !quiet {
				fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", url, err)
			}
			if !continueOnError || ctx.Err() != nil {
				break
			}
			continue
		}
		reports = append(reports, res.Report)

		if htmlDir != "" && res.HTML != "" {
			path := filepath.Join(htmlDir, urlToFilename(url, ".html"))
			if err := os.WriteFile(path, []byte(res.HTML), 0644); err != nil {
				if !quiet {
					fmt.Fprintf(os.Stderr, "Error writing file %s: %v\n", path, err)
				}
				return exitError(ExitFileIOError, "")
			}
			if verbose && !quiet {
				fmt.Fprintf(os.Stderr, "Saved: %s\n", path)
			}
		}

		// Rate limiting delay between pages
		if delay > 0 && i < len(urls)-1 {
			select {
			case <-time.After(time.Duration(delay * float64(time.Second))):
			case <-ctx.Done():
			}
		}
	}

	if len(reports) > 0 {
		if err := writeReports(reports); err != nil {
			return exitError(ExitFileIOError, "failed to write report: %v", err)
		}
	}

	switch {
	case failures == 0:
		return nil
	case len(reports) > 0:
		return &exitErr{code: ExitPartialError}
	default:
		return &exitErr{code: lastCode}
	}
}

// applyFlags lets explicitly set flags override the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("engine") {
		cfg.Extraction.Engine = engine
	}
	if fl.Changed("backend") {
		cfg.Extraction.Backend = backend
	}
	if fl.Changed("browser") {
		cfg.Browser.Default = browser
	}
	if fl.Changed("user-agent") {
		cfg.Network.UserAgent = userAgent
	}
	if fl.Changed("browser-agent") {
		cfg.Network.BrowserAgent = browserAgent
	}
	if noFollowRedirects {
		cfg.Network.FollowRedirects = false
	}
	if fl.Changed("timeout") {
		cfg.Network.Timeout = timeout
		cfg.Extraction.JSTimeout = timeout
	}
	if fl.Changed("provider") {
		cfg.Generation.Provider = provider
		if !fl.Changed("model") {
			// A model configured for the other provider would not exist there.
			cfg.Generation.Model = ""
		}
	}
	if fl.Changed("model") {
		cfg.Generation.Model = model
	}
	if fl.Changed("max-images") {
		cfg.Enrichment.MaxImages = maxImages
	}
	if fl.Changed("max-links") {
		cfg.Enrichment.MaxLinks = maxLinks
	}
	if fl.Changed("max-buttons") {
		cfg.Enrichment.MaxButtons = maxButtons
	}
	if noReverse {
		cfg.Enrichment.ReverseOrder = false
	}
	if fl.Changed("concurrency") {
		cfg.Enrichment.Concurrency = concurrency
	}
	if noMetadata {
		cfg.Enrichment.FetchMetadata = false
	}
	if !fl.Changed("delay") && cfg.Network.Delay > 0 {
		delay = float64(cfg.Network.Delay)
	}
	if !fl.Changed("format") && cfg.Output.Format != "" {
		outputFormat = cfg.Output.Format
	}
	if !fl.Changed("html-dir") && cfg.Output.HTMLDir != "" {
		htmlDir = cfg.Output.HTMLDir
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	lc := cfg.Logging
	switch {
	case quiet:
		lc.Level = "error"
	case verbose:
		lc.Level = "debug"
	}
	return logging.New(lc, os.Stderr)
}

func progressPrinter() func(string) {
	if quiet || !verbose {
		return nil
	}
	return func(phase string) {
		fmt.Fprintf(os.Stderr, "  %s...\n", phase)
	}
}

// exitCodeFor maps a failed scan to the exit code reported when no URL
// succeeded.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, config.ErrGeneration):
		return ExitConfigError
	case errors.Is(err, pipeline.ErrContentExtraction):
		return ExitProcessError
	default:
		return ExitNetworkError
	}
}

func writeReports(reports []*pipeline.Report) error {
	var out io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if outputFormat == "markdown" {
		return pipeline.WriteMarkdown(out, reports...)
	}
	return pipeline.WriteJSON(out, reports...)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return exitError(ExitConfigError, "cannot determine config path; use --config")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return exitError(ExitConfigError, "config file %s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().CreateExampleConfig(path); err != nil {
		return exitError(ExitFileIOError, "failed to write config: %v", err)
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "Created config file: %s\n", path)
	}
	return nil
}

func collectURLs(args []string) ([]string, error) {
	var urls []string

	// Add URLs from command line arguments
	urls = append(urls, args...)

	// Add URLs from file if specified
	if file != "" {
		fileURLs, err := readURLsFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from file %s: %w", file, err)
		}
		urls = append(urls, fileURLs...)
	}

	// Read URLs from stdin if no args and no file specified
	if len(args) == 0 && file == "" {
		stdinURLs, err := readURLsFromStdin()
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from stdin: %w", err)
		}
		urls = append(urls, stdinURLs...)
	}

	return cleanURLs(urls), nil
}

func cleanURLs(urls []string) []string {
	var clean []string
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url != "" && isValidURL(url) {
			clean = append(clean, url)
		}
	}
	return clean
}

func readURLsFromFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readURLs(f)
}

func readURLsFromStdin() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	// Only read when data is piped in.
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, nil
	}
	return readURLs(os.Stdin)
}

// readURLs reads one URL per line, skipping blanks and # comments.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls, sc.Err()
}

func isValidURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// urlToFilename converts a URL to a safe filename
func urlToFilename(rawURL string, ext string) string {
	name := rawURL
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")

	replacer := strings.NewReplacer(
		"/", "_",
		"?", "_",
		"&", "_",
		"=", "_",
		":", "_",
		"#", "_",
		"%", "_",
	)
	name = strings.TrimRight(replacer.Replace(name), "_")

	if len(name) > 200 {
		name = name[:200]
	}
	return name + ext
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
