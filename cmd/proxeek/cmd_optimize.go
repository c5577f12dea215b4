package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"proxeek/internal/config"
	"proxeek/internal/logging"
	"proxeek/internal/loss"
	"proxeek/internal/report"
	"proxeek/internal/scene"
	"proxeek/internal/search"
	"proxeek/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// optimizeFlags override configuration values when set on the command line.
type optimizeFlags struct {
	annotation    string
	physical      string
	proxies       string
	relationships string
	out           string
	noExclusivity bool
	strategy      string
	workers       int
	maxCandidates int64
	timeout       string
	wRealism      float64
	wPriority     float64
	wInteraction  float64
	record        bool
	markdown      bool
}

var optFlags optimizeFlags

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Find the best proxy assignment and write the result document",
	Long: `Loads the four input documents, searches for the assignment with the lowest
total loss and writes it to the configured output path.

Flags override the configuration file, which overrides the built-in defaults.

Example:
  proxeek optimize --annotation StreamingAssets/Export --no-exclusivity
  proxeek optimize --strategy exhaustive --max-candidates 5000000 --timeout 2m`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

func bindOptimizeFlags(cmd *cobra.Command, f *optimizeFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.annotation, "annotation", "", "Haptic annotation file or export directory")
	fs.StringVar(&f.physical, "physical", "", "Physical object database")
	fs.StringVar(&f.proxies, "proxies", "", "Proxy candidate ratings")
	fs.StringVar(&f.relationships, "relationships", "", "Relationship ratings")
	fs.StringVarP(&f.out, "out", "o", "", "Result document path")
	fs.BoolVar(&f.noExclusivity, "no-exclusivity", false, "Allow one physical object to serve several virtual objects")
	fs.StringVar(&f.strategy, "strategy", "", "Search strategy: auto, exhaustive or assignment")
	fs.IntVar(&f.workers, "workers", 0, "Search workers (0 = one per CPU)")
	fs.Int64Var(&f.maxCandidates, "max-candidates", 0, "Stop after this many candidates (0 = unlimited)")
	fs.StringVar(&f.timeout, "timeout", "", "Search deadline, e.g. 30s")
	fs.Float64Var(&f.wRealism, "w-realism", 0, "Realism loss weight")
	fs.Float64Var(&f.wPriority, "w-priority", 0, "Priority loss weight")
	fs.Float64Var(&f.wInteraction, "w-interaction", 0, "Interaction loss weight")
	fs.BoolVar(&f.record, "record", false, "Record the run in the history database")
	fs.BoolVar(&f.markdown, "markdown", false, "Also print a markdown summary")
}

// apply copies every flag the user set into c.
func (f *optimizeFlags) apply(fs *pflag.FlagSet, c *config.Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}
	set("annotation", func() { c.Inputs.Annotation = f.annotation })
	set("physical", func() { c.Inputs.PhysicalDatabase = f.physical })
	set("proxies", func() { c.Inputs.ProxyRatings = f.proxies })
	set("relationships", func() { c.Inputs.RelationshipRatings = f.relationships })
	set("out", func() { c.Output.Path = f.out })
	set("no-exclusivity", func() { c.Optimizer.Exclusivity = !f.noExclusivity })
	set("strategy", func() { c.Optimizer.Strategy = f.strategy })
	set("workers", func() { c.Optimizer.Workers = f.workers })
	set("max-candidates", func() { c.Optimizer.MaxCandidates = f.maxCandidates })
	set("timeout", func() { c.Optimizer.Timeout = f.timeout })
	set("w-realism", func() { c.Optimizer.Weights.Realism = f.wRealism })
	set("w-priority", func() { c.Optimizer.Weights.Priority = f.wPriority })
	set("w-interaction", func() { c.Optimizer.Weights.Interaction = f.wInteraction })
	set("record", func() { c.Store.Enabled = f.record })
	set("markdown", func() { c.Output.Markdown = f.markdown })
}

func runOptimize(cmd *cobra.Command, args []string) error {
	optFlags.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := optimizeOnce(ctx, cfg, cmd.OutOrStdout())
	return err
}

func inputPaths(c *config.Config) scene.Paths {
	return scene.Paths{
		Annotation:          c.Inputs.Annotation,
		PhysicalDatabase:    c.Inputs.PhysicalDatabase,
		ProxyRatings:        c.Inputs.ProxyRatings,
		RelationshipRatings: c.Inputs.RelationshipRatings,
	}
}

func searchOptions(c *config.Config) (loss.Weights, search.Options, error) {
	w := loss.Weights{
		Realism:     c.Optimizer.Weights.Realism,
		Priority:    c.Optimizer.Weights.Priority,
		Interaction: c.Optimizer.Weights.Interaction,
	}
	strategy, err := search.ParseStrategy(c.Optimizer.Strategy)
	if err != nil {
		return w, search.Options{}, fmt.Errorf("%w: %q", err, c.Optimizer.Strategy)
	}
	return w, search.Options{
		Exclusive:     c.Optimizer.Exclusivity,
		Strategy:      strategy,
		Workers:       c.Optimizer.Workers,
		MaxCandidates: c.Optimizer.MaxCandidates,
		BlowupWarning: c.Optimizer.BlowupWarning,
	}, nil
}

// optimizeOnce runs load, search, report and optional recording, and prints
// the terminal report to out.
func optimizeOnce(ctx context.Context, c *config.Config, out io.Writer) (*report.Document, error) {
	paths := inputPaths(c)
	problem, diag, err := scene.Load(ctx, paths)
	if err != nil {
		return nil, err
	}

	w, opts, err := searchOptions(c)
	if err != nil {
		return nil, err
	}

	searchCtx := ctx
	if d := c.GetSearchTimeout(); d > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	res, err := search.Solve(searchCtx, problem, w, opts)
	if err != nil {
		return nil, err
	}

	doc := report.New(problem, diag, w, opts.Exclusive, res)
	if err := report.WriteJSON(c.Output.Path, doc); err != nil {
		return nil, err
	}

	if c.Store.Enabled {
		if err := recordRun(ctx, c, doc); err != nil {
			return nil, err
		}
	}

	fmt.Fprint(out, report.Render(doc, report.DetectStyles()))
	if c.Output.Markdown {
		fmt.Fprint(out, renderMarkdown(report.Markdown(doc)))
	}
	return doc, nil
}

func recordRun(ctx context.Context, c *config.Config, doc *report.Document) error {
	rs, err := store.NewRunStore(c.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer rs.Close()

	source := c.Inputs.Annotation
	if resolved, err := scene.ResolveAnnotationPath(source); err == nil {
		source = resolved
	}
	return rs.SaveRun(ctx, doc, source)
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		logging.Get(logging.CategoryReport).Debug("markdown renderer unavailable: %v", err)
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return rendered
}
