package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"imgdupes/internal/config"
	"imgdupes/internal/finder"
	"imgdupes/internal/history"
	"imgdupes/internal/logging"
	"imgdupes/internal/pipeline"
	"imgdupes/internal/strategy"
)

type scanOptions struct {
	strategy   string
	threshold  int
	similarity float64
	workers    int
	closure    string
	jsonOutput bool
	noProgress bool
	noHistory  bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Find duplicate images below a directory",
		Long: "Scan a directory tree and report groups of duplicate images.\n\n" +
			"Strategies: exact (identical bytes), perceptual (64-bit DCT hash within\n" +
			"--threshold bits), neural (embedding cosine similarity of at least --similarity).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, ctx, args[0], opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.strategy, "strategy", "s", "", "Match strategy: exact, perceptual, or neural (default from config)")
	flags.IntVarP(&opts.threshold, "threshold", "t", 0, "Maximum Hamming distance for the perceptual strategy (0-64)")
	flags.Float64Var(&opts.similarity, "similarity", 0, "Minimum cosine similarity for the neural strategy (0-1)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Parallel workers (default from config, 0 uses all CPUs)")
	flags.StringVar(&opts.closure, "closure", "", "Grouping closure: representative or transitive")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Emit JSON instead of a table")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable progress reporting")
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in history")
	return cmd
}

// scanSettings is the merged view of configuration and flags.
type scanSettings struct {
	kind       strategy.Kind
	threshold  int
	similarity float64
	workers    int
	closure    finder.Closure
}

func resolveScanSettings(cmd *cobra.Command, cfg *config.Config, opts *scanOptions) (scanSettings, error) {
	flags := cmd.Flags()
	settings := scanSettings{
		threshold:  cfg.Strategy.PerceptualThreshold,
		similarity: cfg.Strategy.NeuralThreshold,
		workers:    cfg.Workers(),
	}

	kindValue := cfg.Strategy.Default
	if flags.Changed("strategy") {
		kindValue = opts.strategy
	}
	kind, err := strategy.ParseKind(kindValue)
	if err != nil {
		return settings, err
	}
	settings.kind = kind

	closureValue := cfg.Strategy.Closure
	if flags.Changed("closure") {
		closureValue = opts.closure
	}
	if settings.closure, err = finder.ParseClosure(closureValue); err != nil {
		return settings, err
	}

	if flags.Changed("threshold") {
		if err := config.ValidatePerceptualThreshold(opts.threshold); err != nil {
			return settings, pipeline.Wrap(pipeline.ErrConfiguration, "", "--threshold", "", err)
		}
		settings.threshold = opts.threshold
	}
	if flags.Changed("similarity") {
		if err := config.ValidateNeuralThreshold(opts.similarity); err != nil {
			return settings, pipeline.Wrap(pipeline.ErrConfiguration, "", "--similarity", "", err)
		}
		settings.similarity = opts.similarity
	}
	if flags.Changed("workers") {
		if opts.workers < 0 {
			return settings, pipeline.Wrap(pipeline.ErrConfiguration, "", "--workers", "must be zero or positive", nil)
		}
		if opts.workers > 0 {
			settings.workers = opts.workers
		}
	}
	return settings, nil
}

func runScan(cmd *cobra.Command, ctx *commandContext, root string, opts *scanOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	cliLogger := logging.NewComponentLogger(logger, "cli")

	settings, err := resolveScanSettings(cmd, cfg, opts)
	if err != nil {
		return err
	}
	dir, err := finder.ValidateRoot(root)
	if err != nil {
		return err
	}

	factory := strategy.NewFactoryFromConfig(cfg, logger)
	defer func() {
		if closeErr := factory.Close(); closeErr != nil {
			cliLogger.Warn("strategy shutdown failed", logging.Error(closeErr))
		}
	}()
	matcher, err := factory.ForKind(settings.kind, settings.threshold, settings.similarity)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	runCtx := pipeline.WithRunID(cmd.Context(), runID)
	f := finder.New(matcher, finder.Options{
		Workers: settings.workers,
		Closure: settings.closure,
		Logger:  logger,
	})

	display := newProgressDisplay(cmd.ErrOrStderr(), cliLogger, !opts.noProgress)
	started := time.Now()
	result, runErr := f.Run(runCtx, dir, display.update)
	display.finish(runErr == nil)

	if cfg.Cache.ClearAfterRun {
		factory.ClearCaches()
	}
	if cfg.History.Enabled && !opts.noHistory {
		var groups []finder.Group
		if result != nil {
			groups = result.Groups
		}
		run := history.NewRun(runID, dir, string(settings.kind), started, f.LastStats(), groups, runErr)
		recordHistory(cmd.Context(), cliLogger, cfg.History.Path, run)
	}
	if runErr != nil {
		return runErr
	}

	if opts.jsonOutput {
		return writeJSON(cmd, newScanJSON(result))
	}
	out := cmd.OutOrStdout()
	if len(result.Groups) > 0 {
		fmt.Fprintln(out, renderGroups(result.Groups))
	}
	printSummary(out, result)
	return nil
}

// recordHistory stores run. Failures are logged; history never fails a scan.
func recordHistory(ctx context.Context, logger *slog.Logger, path string, run history.Run) {
	// A cancelled run still gets recorded, so detach from the command context.
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(ctx, path)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database or set history.enabled = false"),
			logging.String(logging.FieldImpact, "run not recorded"),
		)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, run); err != nil {
		logging.WarnWithContext(logger, "history write failed", "history_record_failed",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run not recorded"),
		)
	}
}

func renderGroups(groups []finder.Group) string {
	rows := make([][]string, 0, len(groups))
	for i, g := range groups {
		paths := make([]string, 0, len(g.Files))
		for _, f := range g.Files {
			paths = append(paths, f.Path)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			g.Label,
			strconv.Itoa(g.Count()),
			humanize.IBytes(uint64(g.TotalSize())),
			strings.Join(paths, "\n"),
		})
	}
	return renderTable(
		[]string{"#", "Label", "Files", "Size", "Paths"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func printSummary(w io.Writer, result *finder.Result) {
	p := message.NewPrinter(language.English)
	title := cases.Title(language.English).String(result.Strategy)
	stats := result.Stats
	if len(result.Groups) == 0 {
		p.Fprintf(w, "%s search of %s: no duplicates among %d files (%s)\n",
			title, filepath.Clean(result.Root), stats.Files, stats.Duration.Round(time.Millisecond))
		return
	}
	p.Fprintf(w, "%s search of %s: %d groups, %d files, %s reclaimable (%d files scanned in %s)\n",
		title,
		filepath.Clean(result.Root),
		len(result.Groups),
		finder.DuplicateFiles(result.Groups),
		humanize.IBytes(uint64(finder.Reclaimable(result.Groups))),
		stats.Files,
		stats.Duration.Round(time.Millisecond),
	)
	if stats.KeyFailures > 0 || stats.ComparisonFailures > 0 {
		p.Fprintf(w, "%d files could not be grouped and %d comparisons failed; see log for details\n",
			stats.KeyFailures, stats.ComparisonFailures)
	}
}
