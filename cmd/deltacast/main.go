package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	deltacast "github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/api"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/config"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/correlation"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/metrics"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/reference"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/sheet"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/store"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingPath    = errors.New("missing file path argument")
	ErrUnknownProfile = errors.New("profile must be cpu or mem")
)

const usage = `usage: deltacast [flags] <command> [args]

commands:
  fit [-o model.json]   fit the delta model and print it
  predict               forecast the next week
  reconstruct           print every week with both estimates
  correlate [-o rows]   fit cases against the lagged index, optionally saving the analysed rows
  plot [-o page.html]   render actual cases against both estimates
  template <path>       write a blank csv or xlsx entry sheet
  import <path>         store a csv or xlsx sheet under dataset_name
  export <path>         write the stored dataset to csv or xlsx
  serve                 serve the HTTP API

flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "deltacast: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("deltacast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.GetConfigPath(), "Path to the YAML config file")
	dataPath := fs.String("data", "", "csv or xlsx sheet to load, overrides data_path")
	referencePath := fs.String("reference", "", "Saved model json or sheet to use as reference, overrides reference_path")
	profileMode := fs.String("profile", "", "Write a cpu or mem profile to the working directory")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return ErrUnknownCommand
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		return fmt.Errorf("%q, %w", *profileMode, ErrUnknownProfile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *referencePath != "" {
		cfg.ReferencePath = *referencePath
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, logger: logger, stdout: stdout}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "fit":
		return a.fit(rest)
	case "predict":
		return a.predict()
	case "reconstruct":
		return a.reconstruct()
	case "correlate":
		return a.correlate(rest)
	case "plot":
		return a.plot(rest)
	case "template":
		return a.template(rest)
	case "import":
		return a.importSheet(rest)
	case "export":
		return a.exportSheet(rest)
	case "serve":
		return a.serve()
	default:
		return fmt.Errorf("%q, %w", cmd, ErrUnknownCommand)
	}
}

func (a *app) options() *deltacast.Options {
	return &deltacast.Options{
		MinObservations: a.cfg.MinObservations,
		WeekInterval:    a.cfg.WeekInterval,
		Logger:          a.logger,
	}
}

// loadDataset reads data_path when set and otherwise the stored dataset_name.
func (a *app) loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	if a.cfg.DataPath != "" {
		return sheet.ReadFile(a.cfg.DataPath)
	}
	db, err := store.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.Load(ctx, a.cfg.DatasetName)
}

func (a *app) loadReference(s *deltacast.Session) error {
	path := a.cfg.ReferencePath
	if path == "" {
		return nil
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		ref, err := reference.LoadModel(path)
		if err != nil {
			return fmt.Errorf("unable to load reference model, %w", err)
		}
		s.SetReference(ref)
		return nil
	}
	ds, err := sheet.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to load reference data, %w", err)
	}
	return s.LoadReference(ds, filepath.Base(path))
}

func (a *app) session(ctx context.Context) (*deltacast.Session, error) {
	s, err := deltacast.New(a.options())
	if err != nil {
		return nil, err
	}
	ds, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ds); err != nil {
		return nil, err
	}
	if err := a.loadReference(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) fit(args []string) error {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	out := fs.String("o", "", "Write the model as json to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.session(context.Background())
	if err != nil {
		return err
	}
	m, err := s.Model()
	if err != nil {
		return err
	}
	if err := m.TablePrint(a.stdout); err != nil {
		return err
	}
	if *out == "" {
		return nil
	}
	if err := m.Save(*out); err != nil {
		return fmt.Errorf("unable to save model, %w", err)
	}
	a.logger.Info("model saved", "path", *out, "ready", m.Ready)
	return nil
}

func (a *app) predict() error {
	s, err := a.session(context.Background())
	if err != nil {
		return err
	}
	f, err := s.PredictNext()
	if err != nil {
		return err
	}

	source := string(f.Source)
	if f.Label != "" {
		source = fmt.Sprintf("%s (%s)", f.Source, f.Label)
	}
	next := f.NextWeek
	if next == "" {
		next = "next"
	}
	if f.NextPeriod != nil {
		next = fmt.Sprintf("%s (%s)", next, f.NextPeriod.Format(dataset.DateLayout))
	}
	_, err = fmt.Fprintf(a.stdout,
		"Week: %s\nModel: %s    Alpha: %.3f    Beta: %.3f\nDelta Index: %.3f\nForecast Without Intercept: %.2f\nForecast With Intercept: %.2f\n",
		next, source, f.Coefficients.Alpha, f.Coefficients.Beta, f.DeltaIndex, f.WithoutIntercept, f.WithIntercept,
	)
	return err
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "..."
	}
	return fmt.Sprintf("%.2f", v)
}

func (a *app) reconstruct() error {
	s, err := a.session(context.Background())
	if err != nil {
		return err
	}
	if !s.Ready() {
		a.logger.Warn("delta model not ready, estimates are zero", "reason", s.NotReadyReason())
	}

	tbl := tabwriter.NewWriter(a.stdout, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "Week\tPeriod\tIndex\tIndex t-1\tCases\tEst Without\tEst With\t\n"); err != nil {
		return err
	}
	for _, r := range s.Dataset().Rows() {
		period := ""
		if !r.Period.IsZero() {
			period = r.Period.Format(dataset.DateLayout)
		}
		if _, err := fmt.Fprintf(tbl, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Week, period,
			formatValue(r.IndexT), formatValue(r.IndexTMinus1), formatValue(r.CasesT),
			formatValue(r.EstWithoutIntercept), formatValue(r.EstWithIntercept),
		); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

func (a *app) correlate(args []string) error {
	fs := flag.NewFlagSet("correlate", flag.ContinueOnError)
	out := fs.String("o", "", "Write the analysed rows as csv or xlsx to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.session(context.Background())
	if err != nil {
		return err
	}
	rep, err := s.Correlation()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(a.stdout,
		"Cases ~ Index t-1:\n  Slope: %.3f    Intercept: %.3f\n  r: %.3f    R2: %.3f\n  Rows: %d\n",
		rep.Slope, rep.Intercept, rep.R, rep.R2, len(rep.Rows),
	); err != nil {
		return err
	}
	if rep.Weak {
		if _, err := fmt.Fprintf(a.stdout, "  Weak relationship: index levels explain less than %.0f%% of case variance\n", 100*correlation.WeakR2); err != nil {
			return err
		}
	}
	if *out == "" {
		return nil
	}

	records := make([]dataset.Record, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		records = append(records, r.Record())
	}
	if err := sheet.WriteRecordsFile(*out, records); err != nil {
		return err
	}
	a.logger.Info("analysed rows written", "path", *out, "rows", len(records))
	return nil
}

func (a *app) plot(args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	out := fs.String("o", a.cfg.PlotPath, "Write the html page to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.session(context.Background())
	if err != nil {
		return err
	}
	file, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := s.PlotFit(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	a.logger.Info("plot written", "path", *out)
	return nil
}

func pathArg(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", ErrMissingPath
	}
	return args[0], nil
}

func (a *app) template(args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	if err := sheet.WriteTemplate(path); err != nil {
		return err
	}
	a.logger.Info("template written", "path", path)
	return nil
}

func (a *app) importSheet(args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	ds, err := sheet.ReadFile(path)
	if err != nil {
		return err
	}
	db, err := store.Open(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Save(context.Background(), a.cfg.DatasetName, ds); err != nil {
		return err
	}
	a.logger.Info("dataset imported", "path", path, "name", a.cfg.DatasetName, "observations", ds.Len())
	return nil
}

func (a *app) exportSheet(args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	ds, err := a.loadDataset(context.Background())
	if err != nil {
		return err
	}
	if err := sheet.WriteFile(path, ds); err != nil {
		return err
	}
	a.logger.Info("dataset exported", "path", path, "observations", ds.Len())
	return nil
}

func (a *app) serve() error {
	ctx := context.Background()
	s, err := deltacast.New(a.options())
	if err != nil {
		return err
	}

	db, err := store.Open(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if a.cfg.DataPath != "" {
		ds, err := sheet.ReadFile(a.cfg.DataPath)
		if err != nil {
			return err
		}
		if err := s.Load(ds); err != nil {
			return err
		}
	} else if ds, err := db.Load(ctx, a.cfg.DatasetName); err == nil {
		if err := s.Load(ds); err != nil {
			return err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := a.loadReference(s); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("deltacast", reg)
	collector.RecordRefit(s.Ready(), s.Dataset().Len())

	handler := api.NewHandler(s, db, a.logger, collector)
	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      api.NewRouter(handler, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
