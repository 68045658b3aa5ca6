package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/maps-harvester/answer"
	"github.com/aluiziolira/maps-harvester/browser"
	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/corpus"
	"github.com/aluiziolira/maps-harvester/llm"
	"github.com/aluiziolira/maps-harvester/models"
	"github.com/aluiziolira/maps-harvester/pipeline"
	"github.com/aluiziolira/maps-harvester/query"
	"github.com/aluiziolira/maps-harvester/scraper"
)

var (
	harvestTerm         string
	harvestQuantity     int
	harvestOutput       string
	harvestFormat       string
	harvestQuestion     string
	harvestHeadless     bool
	harvestCapturePane  bool
	harvestChunkSize    int
	harvestContactPages int
	harvestScrollPolls  int
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [request...]",
	Short: "Search the map and write one record per listing",
	Long: `Runs a search and extracts every listing up to the requested quantity.

The search is given either with --term/--quantity or as a free-text request
("10 coffee shops in Vienna") that a language model turns into a term and a
quantity. A quantity of 0 takes every listing the surface returns.`,
	Args: cobra.ArbitraryArgs,
	RunE: runHarvest,
}

func init() {
	defaults := config.DefaultConfig()
	f := harvestCmd.Flags()
	f.StringVarP(&harvestTerm, "term", "t", "", "search term; skips free-text resolution")
	f.IntVarP(&harvestQuantity, "quantity", "n", models.Unbounded, "number of listings to harvest (0 = all)")
	f.StringVarP(&harvestOutput, "output", "o", defaults.OutputFile, "output file path")
	f.StringVar(&harvestFormat, "format", defaults.OutputFormat, "output format: csv, json, or dual")
	f.StringVarP(&harvestQuestion, "question", "q", "", "question to answer over the harvested records")
	f.BoolVar(&harvestHeadless, "headless", defaults.Headless, "run the browser without a window")
	f.BoolVar(&harvestCapturePane, "capture-pane", defaults.CapturePaneText, "store the cleaned detail pane text with each record")
	f.IntVar(&harvestChunkSize, "chunk-size", defaults.ChunkSize, "maximum characters per chunk sent to the model")
	f.IntVar(&harvestContactPages, "contact-pages", defaults.ContactPages, "contact pages fetched per website (0 disables)")
	f.IntVar(&harvestScrollPolls, "max-scroll-polls", defaults.MaxScrollPolls, "upper bound on scroll polls during discovery")
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := harvestConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	request := strings.TrimSpace(strings.Join(args, " "))
	if harvestTerm == "" && request == "" {
		return config.Invalid("request", "provide --term or a free-text request")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := scraper.NewHarvester(cfg, browser.ChromeLauncher(cfg))
	if err != nil {
		return err
	}
	defer serveMetrics(cfg.MetricsAddr, h.Metrics.Registry)()

	var gen llm.Generator
	generator := func() (llm.Generator, error) {
		if gen != nil {
			return gen, nil
		}
		g, err := newGenerator(ctx, cfg, h.Metrics)
		if err != nil {
			return nil, err
		}
		gen = g
		return gen, nil
	}

	q, err := resolveQuery(ctx, cmd, request, generator)
	if err != nil {
		return err
	}

	slog.Info("starting harvest",
		slog.String("term", q.SearchTerm),
		slog.Int("quantity", q.Quantity),
		slog.String("output", cfg.OutputFile),
	)

	startTime := time.Now()
	result, err := h.Run(ctx, q)
	if err != nil {
		return fmt.Errorf("harvest failed: %w", err)
	}

	stats, err := writeRecords(ctx, cfg, result.Records)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), result, stats, time.Since(startTime), cfg.OutputFile)

	if strings.TrimSpace(harvestQuestion) == "" {
		return nil
	}
	g, err := generator()
	if err != nil {
		return err
	}
	res, err := answer.NewAggregator(g, h.Metrics).Ask(ctx, corpus.FromRecords(result.Records), cfg.ChunkSize, harvestQuestion)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	printAnswer(cmd.OutOrStdout(), res)
	return nil
}

// harvestConfig applies the harvest flags that were set on top of the
// environment.
func harvestConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("output") {
		cfg.OutputFile = harvestOutput
	}
	if f.Changed("format") {
		cfg.OutputFormat = strings.ToLower(harvestFormat)
	}
	if f.Changed("headless") {
		cfg.Headless = harvestHeadless
	}
	if f.Changed("capture-pane") {
		cfg.CapturePaneText = harvestCapturePane
	}
	if f.Changed("chunk-size") {
		cfg.ChunkSize = harvestChunkSize
	}
	if f.Changed("contact-pages") {
		cfg.ContactPages = harvestContactPages
	}
	if f.Changed("max-scroll-polls") {
		cfg.MaxScrollPolls = harvestScrollPolls
	}
	return cfg, nil
}

// resolveQuery prefers an explicit --term. Otherwise the free-text request is
// resolved by the model, and an explicit --quantity still wins over the
// model's reading.
func resolveQuery(ctx context.Context, cmd *cobra.Command, request string, generator func() (llm.Generator, error)) (models.Query, error) {
	if harvestTerm != "" {
		return models.Query{SearchTerm: strings.TrimSpace(harvestTerm), Quantity: harvestQuantity}, nil
	}

	gen, err := generator()
	if err != nil {
		return models.Query{}, err
	}
	q, err := query.NewResolver(gen).Resolve(ctx, request)
	if err != nil {
		return models.Query{}, fmt.Errorf("resolve request: %w", err)
	}
	if cmd.Flags().Changed("quantity") {
		q.Quantity = harvestQuantity
	}
	return q, nil
}

// writeRecords pushes the harvested records through the output pipeline.
func writeRecords(ctx context.Context, cfg *config.Config, records []*models.BusinessRecord) (pipeline.Stats, error) {
	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("creating writer: %w", err)
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Workers)
	if cfg.Verbose {
		p.StartProgressLogging(10 * time.Second)
	}

	processErr := p.Process(records...)
	closeErr := p.Close()
	stats := p.Stats()

	var validateErr error
	if processErr == nil && closeErr == nil && stats.Processed > 0 {
		if err := writer.Validate(); err != nil {
			validateErr = fmt.Errorf("output validation failed: %w", err)
		}
	}
	if err := errors.Join(processErr, closeErr, validateErr, writer.Close()); err != nil {
		return stats, fmt.Errorf("writing records: %w", err)
	}
	return stats, nil
}

func printSummary(w io.Writer, result *models.HarvestResult, stats pipeline.Stats, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Harvest complete")
	fmt.Fprintf(w, "  Search term:     %s\n", result.Query.SearchTerm)
	if result.Query.IsUnbounded() {
		fmt.Fprintln(w, "  Requested:       all")
	} else {
		fmt.Fprintf(w, "  Requested:       %d\n", result.Query.Quantity)
	}
	fmt.Fprintf(w, "  Discovered:      %d\n", result.Discovered)
	fmt.Fprintf(w, "  Records:         %d\n", len(result.Records))
	fmt.Fprintf(w, "  Written:         %d\n", stats.Processed)
	fmt.Fprintf(w, "  Failed listings: %d\n", result.FailedListings)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:     %v\n", result.ErrorsByType)
	}
	if len(stats.Skipped) > 0 {
		fmt.Fprintf(w, "  Skipped:         %v\n", stats.Skipped)
	}
	fmt.Fprintf(w, "  Website visits:  %d\n", result.WebsiteVisits)
	fmt.Fprintf(w, "  Duration:        %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Output file:     %s\n", outputFile)
	fmt.Fprintln(w, separator)
}

func printAnswer(w io.Writer, res *answer.Result) {
	if !res.Complete() {
		slog.Warn("answer is partial",
			slog.Int("chunks", res.Chunks),
			slog.Int("failed", len(res.Failed)),
		)
	}
	fmt.Fprintln(w, res.Text)
}
