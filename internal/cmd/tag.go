package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/autotag/internal/config"
	"github.com/Digital-Shane/autotag/internal/container"
	"github.com/Digital-Shane/autotag/internal/core"
	"github.com/Digital-Shane/autotag/internal/cover"
	"github.com/Digital-Shane/autotag/internal/log"
	"github.com/Digital-Shane/autotag/internal/media"
	"github.com/Digital-Shane/autotag/internal/runner"
	"github.com/Digital-Shane/autotag/internal/tui/progress"
	"github.com/Digital-Shane/autotag/internal/tui/theme"
)

// tagOptions holds the tag command flags. Only flags set on the command line
// override the loaded configuration.
type tagOptions struct {
	manifest     string
	mode         string
	tvPattern    string
	moviePattern string
	noTag        bool
	noRename     bool
	extended     bool
	noCoverArt   bool
	windowsSafe  bool
	verbose      bool
	workers      int
	instant      bool
}

func newTagCmd() *cobra.Command {
	opts := &tagOptions{}
	c := &cobra.Command{
		Use:   "tag [manifest]",
		Short: "Tag and rename the files listed in a manifest",
		Long: `Tag and rename every file listed in a JSON manifest.

The manifest is an array of {"path": ..., "metadata": {...}} entries. Relative
paths are resolved against the manifest's directory. Settings come from
~/.autotag/config.json; flags given here override them for this run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.manifest = args[0]
			}
			return runTag(cmd, opts)
		},
	}

	opts.register(c)
	return c
}

// register binds the tag flags to c.
func (o *tagOptions) register(c *cobra.Command) {
	f := c.Flags()
	f.StringVarP(&o.manifest, "manifest", "m", "", "Path to the JSON manifest")
	f.StringVar(&o.mode, "mode", "", "Rename pattern to apply: tv or movie")
	f.StringVar(&o.tvPattern, "tv-pattern", "", "Rename pattern for TV mode (e.g. \"%1 - %2x%3:00 - %4\")")
	f.StringVar(&o.moviePattern, "movie-pattern", "", "Rename pattern for movie mode (e.g. \"%1 (%2)\")")
	f.BoolVar(&o.noTag, "no-tag", false, "Do not write tags")
	f.BoolVar(&o.noRename, "no-rename", false, "Do not rename files")
	f.BoolVar(&o.extended, "extended", false, "Write extended fields (director, cast, ids) to Matroska files")
	f.BoolVar(&o.noCoverArt, "no-cover-art", false, "Do not embed cover art")
	f.BoolVar(&o.windowsSafe, "windows-safe", false, "Remove characters invalid on Windows file systems")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Include error details in status messages")
	f.IntVarP(&o.workers, "workers", "w", 0, "Number of files processed concurrently")
	f.BoolVarP(&o.instant, "instant", "i", false, "Print plain progress lines instead of the interactive view")
}

// apply overrides cfg with the flags set on cmd.
func (o *tagOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("mode") {
		mode, err := config.ParseMode(o.mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if changed("tv-pattern") {
		cfg.TVRenamePattern = o.tvPattern
	}
	if changed("movie-pattern") {
		cfg.MovieRenamePattern = o.moviePattern
	}
	if changed("no-tag") {
		cfg.TagFiles = !o.noTag
	}
	if changed("no-rename") {
		cfg.RenameFiles = !o.noRename
	}
	if changed("extended") {
		cfg.ExtendedTagging = o.extended
	}
	if changed("no-cover-art") {
		cfg.AddCoverArt = !o.noCoverArt
	}
	if changed("windows-safe") {
		cfg.WindowsSafe = o.windowsSafe
	}
	if changed("verbose") {
		cfg.Verbose = o.verbose
	}
	if changed("workers") {
		if o.workers <= 0 {
			return fmt.Errorf("--workers must be positive")
		}
		cfg.WorkerCount = o.workers
	}
	return cfg.Validate()
}

func runTag(cmd *cobra.Command, opts *tagOptions) error {
	if opts.manifest == "" {
		return errors.New("a manifest is required (pass it as an argument or with --manifest)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := opts.apply(cmd, cfg); err != nil {
		return err
	}

	jobs, err := media.LoadManifest(opts.manifest)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(jobs) == 0 {
		fmt.Fprintln(out, "Manifest lists no files.")
		return nil
	}

	covers, err := newCoverCache(cfg)
	if err != nil {
		return err
	}
	writer, err := core.NewWriter(cfg, container.NewLibrary(container.NewDetector()), covers)
	if err != nil {
		return err
	}

	log.Initialize(cfg.EnableLogging, cfg.LogRetentionDays)
	if err := log.StartSession("tag", []string{opts.manifest}); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to start log session: %v\n", err)
	}
	sessionID := log.CurrentSessionID()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	th := theme.Default()
	r := runner.New(writer, cfg.WorkerCount)

	var sum runner.Summary
	if opts.instant {
		sum = runInstant(ctx, out, r, jobs, th)
	} else {
		sum, err = runInteractive(ctx, r, jobs, th)
	}

	if perr := covers.Persist(); perr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", perr)
	}
	if lerr := log.EndSession(); lerr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to write session log: %v\n", lerr)
		sessionID = ""
	}
	if err != nil {
		return err
	}

	newConsolePrinter(out, th).Summary(sum, sessionID)
	if n := sum.Failed + sum.Skipped; n > 0 {
		return fmt.Errorf("%d of %d files were not processed successfully", n, sum.Total)
	}
	return nil
}

// newCoverCache builds the cover cache described by cfg.
func newCoverCache(cfg *config.Config) (*cover.Cache, error) {
	opts := cover.Options{
		Client:  cover.NewClient(cfg.HTTPTimeout()),
		Limiter: cover.NewRateLimiter(cfg.CoverRequestsPerWindow, time.Duration(cfg.CoverWindowSeconds)*time.Second),
		TTL:     cfg.CoverCacheTTL(),
	}
	if cfg.CoverCacheEnabled {
		path, err := config.CoverCachePath()
		if err != nil {
			return nil, err
		}
		opts.PersistPath = path
	}
	return cover.New(opts), nil
}

// runInstant processes jobs while printing status lines to out.
func runInstant(ctx context.Context, out io.Writer, r *runner.Runner, jobs []media.Job, th theme.Theme) runner.Summary {
	printer := newConsolePrinter(out, th)
	events := make(chan runner.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			printer.Event(ev)
		}
	}()

	sum := r.Run(ctx, jobs, events)
	<-done
	return sum
}

// runInteractive processes jobs behind the progress view. If the user quits
// early, files already in flight are allowed to finish.
func runInteractive(ctx context.Context, r *runner.Runner, jobs []media.Job, th theme.Theme) (runner.Summary, error) {
	model := progress.NewTagProgressModel(ctx, r, jobs, th)
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return model.Wait(), fmt.Errorf("progress view failed: %w", err)
	}

	if pm, ok := final.(*progress.TagProgressModel); ok && pm != nil {
		model = pm
	}
	return model.Wait(), nil
}
