package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ml_dashboard/internal/config"
	"ml_dashboard/internal/core"
	"ml_dashboard/internal/gateway"
	"ml_dashboard/internal/nodes"
	"ml_dashboard/internal/render"
	"ml_dashboard/internal/server"
	"ml_dashboard/internal/state"
	"ml_dashboard/internal/storage"
	"ml_dashboard/src"
	"ml_dashboard/src/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	apperrors "ml_dashboard/internal/errors"
)

const usage = `Usage: ml_dashboard <command> [flags]

Commands:
  upload <file>                         upload a CSV or Excel dataset
  target <column>                       select the target column
  train [-target col] [-name name]      train a model on the current dataset
  predict <file>                        predict rows from a CSV or Excel file
  summary                               fetch insights for the current model
  status                                show the dashboard
  models                                list trained models
  reset                                 clear the dashboard state and model list
  run -file f -target col [-predict f]  upload, train, summarize and predict in one go
  serve [-addr :8090]                   serve the dashboard JSON API
`

// app holds everything a command needs
type app struct {
	cfg     *src.Config
	core    core.Config
	dash    *nodes.Dashboard
	logger  zerolog.Logger
	closers []io.Closer
}

func newApp(ctx context.Context) (*app, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := src.LoadConfig()
	if err != nil {
		return nil, err
	}

	logCloser, err := logger.InitLogger(cfg.LogConfig)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger.Logger, closers: []io.Closer{logCloser}}

	configPath := os.Getenv("DASHBOARD_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	yamlConfig, err := config.LoadConfig(configPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.core = config.BuildCoreConfig(yamlConfig)

	backend, err := storage.Open(ctx, cfg.StorageConfig)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("error opening %s storage: %w", cfg.StorageConfig.Driver, err)
	}
	a.closers = append(a.closers, backend)

	store := state.NewStore(ctx, backend, cfg.StorageConfig.StateKey, a.logger)
	registry := state.NewRegistry(ctx, backend, cfg.StorageConfig.ModelsKey, a.logger)
	client := gateway.NewClient(cfg.BackendConfig.URL, cfg.BackendConfig.Timeout, a.logger)

	a.dash, err = nodes.NewDashboard(ctx, nodes.Deps{
		Store:    store,
		Registry: registry,
		Backend:  client,
		Config:   a.core.Dashboard,
		Logger:   a.logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("error building dashboard: %w", err)
	}
	return a, nil
}

// Close releases storage first, then the log file
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Close failed")
		}
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, render.Failure(err.Error()))
		os.Exit(1)
	}

	err = a.dispatch(ctx, os.Args[1], os.Args[2:])
	a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, render.Failure(apperrors.UserMessage(err)))
		os.Exit(1)
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "upload":
		return a.cmdUpload(ctx, args)
	case "target":
		return a.cmdTarget(ctx, args)
	case "train":
		return a.cmdTrain(ctx, args)
	case "predict":
		return a.cmdPredict(ctx, args)
	case "summary":
		return a.cmdSummary(ctx)
	case "status":
		fmt.Println(render.Dashboard(a.dash.State(), a.dash.Models(), a.core.Dashboard.ImportanceTopN))
		return nil
	case "models":
		fmt.Println(render.Models(a.dash.Models()))
		return nil
	case "reset":
		a.dash.Reset(ctx)
		fmt.Println(render.Success("Dashboard reset."))
		return nil
	case "run":
		return a.cmdRun(ctx, args)
	case "serve":
		return a.cmdServe(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Validation("usage: upload <file>")
	}
	file, err := readFile(args[0])
	if err != nil {
		return err
	}
	out, err := a.dash.Upload.Execute(ctx, core.NodeInput{Upload: file})
	if err := outcome(out, err); err != nil {
		return err
	}
	st := a.dash.State()
	fmt.Println(render.Success(fmt.Sprintf("Uploaded %s (session %s).", file.Name, st.SessionID)))
	fmt.Println(render.Schema(st.Schema))
	return nil
}

func (a *app) cmdTarget(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Validation("usage: target <column>")
	}
	st, err := a.dash.SelectTarget(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(render.Status(st))
	return nil
}

func (a *app) cmdTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	target := fs.String("target", "", "target column (defaults to the selected one)")
	name := fs.String("name", "", "model name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	out, err := a.dash.Train.Execute(ctx, core.NodeInput{TargetColumn: *target, ModelName: *name})
	if err := outcome(out, err); err != nil {
		return err
	}
	st := a.dash.State()
	fmt.Println(render.Success(fmt.Sprintf("Trained model %s.", st.ModelID)))
	fmt.Println(render.Metrics(st.Metrics))
	return nil
}

func (a *app) cmdPredict(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Validation("usage: predict <file>")
	}
	file, err := readFile(args[0])
	if err != nil {
		return err
	}
	out, err := a.dash.Predict.Execute(ctx, core.NodeInput{PredictFile: file})
	if err := outcome(out, err); err != nil {
		return err
	}
	if excluded, ok := out.Data["excluded_columns"].([]string); ok && len(excluded) > 0 {
		fmt.Println(render.MutedStyle.Render("Excluded columns: " + strings.Join(excluded, ", ")))
	}
	fmt.Println(render.Predictions(a.dash.State().Predictions))
	return nil
}

func (a *app) cmdSummary(ctx context.Context) error {
	out, err := a.dash.Summary.Execute(ctx, core.NodeInput{})
	if err := outcome(out, err); err != nil {
		return err
	}
	st := a.dash.State()
	fmt.Println(render.Importance(st.FeatureImportance, a.core.Dashboard.ImportanceTopN))
	fmt.Println(render.Insights(st.Insights))
	return nil
}

func (a *app) cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	dataPath := fs.String("file", "", "dataset to upload")
	target := fs.String("target", "", "target column")
	predictPath := fs.String("predict", "", "optional file to predict after training")
	name := fs.String("name", "", "model name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return apperrors.Validation("usage: run -file <dataset> -target <column> [-predict <file>]")
	}

	input := core.ProcessorInput{TargetColumn: *target, ModelName: *name}
	var err error
	if input.Upload, err = readFile(*dataPath); err != nil {
		return err
	}
	if *predictPath != "" {
		if input.PredictFile, err = readFile(*predictPath); err != nil {
			return err
		}
	}

	processor := core.NewGraphProcessor(a.core, a.logger)
	if err := a.dash.Register(processor); err != nil {
		return err
	}

	result, err := processor.Execute(ctx, input)
	if err != nil {
		return err
	}
	fmt.Println(render.Dashboard(a.dash.State(), a.dash.Models(), a.core.Dashboard.ImportanceTopN))
	fmt.Println(render.MutedStyle.Render(fmt.Sprintf("Path: %s (%d ms)",
		strings.Join(result.ExecutionPath, " -> "), result.ProcessingTime)))
	if result.Failed() {
		return errors.New(strings.Join(result.Errors, "; "))
	}
	return nil
}

func (a *app) cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.ServerConfig.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return server.New(a.dash, a.logger).ListenAndServe(ctx, *addr)
}

// outcome folds a node's returned error and its output error into one
func outcome(out core.NodeOutput, err error) error {
	if err != nil {
		return err
	}
	return out.Error
}

func readFile(path string) (*core.FileInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("Cannot read %s: %v", path, err))
	}
	return &core.FileInput{Name: filepath.Base(path), Data: data}, nil
}
