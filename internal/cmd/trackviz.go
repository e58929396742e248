// Package cmd owns the implementation details of the CLI command.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fredbi/trackviz/internal/pkg/chart"
	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
	"github.com/fredbi/trackviz/internal/pkg/derive"
	"github.com/fredbi/trackviz/internal/pkg/image"
	"github.com/fredbi/trackviz/internal/pkg/server"
	"github.com/fredbi/trackviz/internal/pkg/view"
)

const stdio = "-"

// Command holds command line flags and executes the trackviz command.
//
// It knows how to load a configuration file in a [config.Config] and manage CLI flag configuration overrides.
//
// The main purpose of this package is to deal with io's: opening and closing files, listening to signals.
//
// The command runs in one of three modes:
//   - report: print a JSON report about the dataset
//   - serve: run the HTTP dashboard until interrupted
//   - render (default): render one page as HTML, and optionally as a PNG screenshot
type Command struct {
	Config      string
	Dataset     string
	Environment string
	Page        string
	OutputFile  string
	Listen      string
	Report      bool
	Serve       bool
	Png         bool
	L           *slog.Logger

	out io.Writer
}

// NewCommand builds a CLI command with registered flags and an injected logger.
func NewCommand() *Command {
	// inject a structured logger
	cli := &Command{
		L:   slog.Default().With(slog.String("module", "main")),
		out: os.Stdout,
	}

	cli.registerFlags()

	return cli
}

// Parse command line flags and arguments.
func (*Command) Parse() error {
	return flag.CommandLine.Parse(os.Args[1:])
}

// Fatalf logs an error message then exits. The output is spewed on both stderr and the structured logger output.
func (c *Command) Fatalf(err error) {
	c.L.Error(err.Error())
	log.Fatalf("%v", err)
}

// Execute the CLI with flags and extra arguments.
//
// An extra argument is the dataset file, and takes precedence over the -dataset flag.
// If no argument is passed, command line arguments (i.e. [os.Args]) are used.
func (c *Command) Execute(args ...string) error {
	if args == nil { // passing explicit args allows for testing Execute without altering [os.Args]
		args = c.args()
	}
	if len(args) > 0 {
		c.Dataset = args[0]
	}

	if c.Environment != "" {
		if err := godotenv.Load(c.Environment); err != nil {
			return fmt.Errorf("loading environment file %q: %w", c.Environment, err)
		}
	}

	cfg, cleanup, err := c.prepareConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	t0 := time.Now()
	ds, err := dataset.LoadConfig(cfg)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	c.L.Info("loaded dataset",
		slog.String("source", ds.Source()),
		slog.Int("rows", ds.Len()),
		slog.Duration("duration", time.Since(t0)),
	)

	switch {
	case c.Report:
		// just want to report about the content of the dataset
		return c.report(ds)
	case c.Serve:
		return c.serve(cfg, ds)
	}

	// 1. compute the charts of the requested page
	htmlRenderer, err := c.buildPage(cfg, ds)
	if err != nil {
		return err
	}

	// 2. render the page as HTML, possibly to stdout, possibly to temp file
	htmlWriter, htmlCloser, err := c.getWriter(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}

	if err := htmlRenderer.Render(htmlWriter); err != nil {
		htmlCloser()
		return fmt.Errorf("rendering page: %w", err)
	}

	htmlCloser()

	if cfg.Outputs.PngFile == "" {
		// html only: we're done
		return nil
	}

	// 3. convert the HTML page to a PNG image, possibly to stdout
	htmlReader, htmlCloser, err := getReader(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}
	defer htmlCloser()

	pngWriter, pngCloser, err := c.getWriter(cfg.Outputs.PngFile, "PNG")
	if err != nil {
		return err
	}
	defer pngCloser()

	r := image.New(
		image.WithScreenshot(cfg.Render.Screenshot),
		image.WithWaitSelector("canvas"),
	)

	if err = r.Render(context.Background(), pngWriter, htmlReader); err != nil {
		return fmt.Errorf("rendering image: %w", err)
	}

	return nil
}

func (*Command) args() []string {
	return flag.CommandLine.Args()
}

func (c *Command) registerFlags() {
	defaults := Command{
		Config:      "",
		Dataset:     "",
		Environment: "",
		Page:        view.PageOverview.String(),
		OutputFile:  stdio,
		Listen:      "",
		Png:         false,
		Report:      false,
		Serve:       false,
	}

	flag.StringVar(&c.Config, "config", defaults.Config, "config file (defaults to the embedded configuration)")
	flag.StringVar(&c.Config, "c", defaults.Config, "config file (shorthand)")
	flag.StringVar(&c.Dataset, "dataset", defaults.Dataset, "dataset file, as csv or xlsx, or - for standard input")
	flag.StringVar(&c.Dataset, "d", defaults.Dataset, "dataset file (shorthand)")
	flag.StringVar(&c.Environment, "env", defaults.Environment, "environment file with TRACKVIZ_* variables")
	flag.StringVar(&c.Page, "page", defaults.Page, "page to render: overview, trends or features")
	flag.StringVar(&c.Page, "p", defaults.Page, "page to render (shorthand)")
	flag.StringVar(&c.OutputFile, "output", defaults.OutputFile, "file output or - for standard output")
	flag.StringVar(&c.OutputFile, "o", defaults.OutputFile, "file output or - for standard output (shorthand)")
	flag.StringVar(&c.Listen, "listen", defaults.Listen, "listen address of the dashboard server")
	flag.BoolVar(&c.Report, "r", defaults.Report, "report dataset contents only, no rendering (shorthand)")
	flag.BoolVar(&c.Report, "report", defaults.Report, "report dataset contents only")
	flag.BoolVar(&c.Serve, "s", defaults.Serve, "serve the dashboard over HTTP (shorthand)")
	flag.BoolVar(&c.Serve, "serve", defaults.Serve, "serve the dashboard over HTTP")
	flag.BoolVar(&c.Png, "png", defaults.Png, "enable PNG screenshot output")
}

func (c *Command) prepareConfig() (cfg *config.Config, cleanup func(), err error) {
	if c.Config == "" {
		cfg, err = config.LoadDefaults()
	} else {
		cfg, err = config.Load(c.Config)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	cfg.OverrideFromEnv()

	if err = c.setConfig(cfg); err != nil {
		return nil, nil, fmt.Errorf("preparing config: %w", err)
	}

	if cfg.Outputs.IsTemp {
		cleanup = func() {
			_ = os.Remove(cfg.Outputs.HTMLFile)
		}

		return cfg, cleanup, err
	}

	return cfg, func() {}, err
}

// apply CLI flags overrides to YAML config.
func (c *Command) setConfig(cfg *config.Config) error {
	if c.Dataset != "" {
		cfg.Dataset.File = c.Dataset
	}

	if c.Listen != "" {
		cfg.Server.Listen = c.Listen
	}

	if c.OutputFile != "" && c.OutputFile != stdio {
		// an outfile is defined: infer the PNG file from the HTML file provided
		cfg.Outputs.HTMLFile = inferHTMLFile(c.OutputFile)
		if cfg.Outputs.PngFile == "" && c.Png {
			cfg.Outputs.PngFile = inferImageFile(cfg.Outputs.HTMLFile)
		}
	}

	if c.Report || c.Serve {
		return nil
	}

	if c.Png && cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile == "" {
		// no outfile: the PNG image goes to standard output
		cfg.Outputs.PngFile = stdio
	}

	switch {
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile == "":
		c.L.Info("output sent to standard output as HTML, no PNG image rendered")
		cfg.Outputs.HTMLFile = stdio
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile != "":
		c.L.Info("HTML generated as a temporary file to produce PNG")
		tmp, err := os.CreateTemp("", "trackviz.*.html")
		if err != nil {
			return err
		}
		cfg.Outputs.HTMLFile = tmp.Name()
		cfg.Outputs.IsTemp = true
		_ = tmp.Close()
	}

	return nil
}

// report produces a report that explores the dataset.
func (c *Command) report(ds *dataset.Dataset) error {
	enc := json.NewEncoder(c.stdout())
	enc.SetIndent("", " ")

	return enc.Encode(ds.Report())
}

// serve runs the dashboard server until SIGINT or SIGTERM.
func (c *Command) serve(cfg *config.Config, ds *dataset.Dataset) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := server.New(c.deriver(cfg, ds), newBuilder(cfg, ds), server.WithListen(cfg.Server.Listen))

	return s.ListenAndServe(ctx)
}

// buildPage computes every chart of the requested page with the default selection.
func (c *Command) buildPage(cfg *config.Config, ds *dataset.Dataset) (*chart.Page, error) {
	db := view.NewDashboard(c.deriver(cfg, ds), newBuilder(cfg, ds))

	specs, err := db.Navigate(view.PageID(c.Page), view.DefaultSelection(cfg))
	if err != nil {
		return nil, fmt.Errorf("building page %q: %w", c.Page, err)
	}

	if !db.Page().Found() {
		return nil, fmt.Errorf("building page %q: %s", c.Page, view.NotFoundMessage)
	}

	return chart.NewPage(cfg.Render.Title+" - "+db.Page().Title, specs...), nil
}

// deriver reports skipped rows once per derivation.
func (c *Command) deriver(cfg *config.Config, ds *dataset.Dataset) *derive.Deriver {
	return derive.New(ds, cfg, derive.WithObserver(func(derivation string, s derive.Stats) {
		if s.BadDate == 0 && s.Missing == 0 {
			return
		}

		c.L.Warn("rows skipped",
			slog.String("derivation", derivation),
			slog.Int("bad_date", s.BadDate),
			slog.Int("missing", s.Missing),
			slog.Int("kept", s.Kept),
		)
	}))
}

func newBuilder(cfg *config.Config, ds *dataset.Dataset) *chart.Builder {
	return chart.New(cfg, chart.WithSubtitle(filepath.Base(ds.Source())))
}

func (c *Command) stdout() io.Writer {
	if c.out == nil {
		return os.Stdout
	}

	return c.out
}

func getReader(file, kind string) (rdr *os.File, cleanup func(), err error) {
	rdr, err = os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = rdr.Close()
	}

	return rdr, cleanup, nil
}

func (c *Command) getWriter(file, kind string) (wrt io.Writer, cleanup func(), err error) {
	if file == stdio {
		return c.stdout(), func() {}, nil
	}

	f, err := os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file for writing: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = f.Close()
	}

	return f, cleanup, nil
}

func inferHTMLFile(base string) string {
	ext := path.Ext(base)
	stem, _ := strings.CutSuffix(base, ext)

	return stem + ".html"
}

func inferImageFile(base string) string {
	ext := path.Ext(base)
	stem, _ := strings.CutSuffix(base, ext)

	return stem + ".png"
}
