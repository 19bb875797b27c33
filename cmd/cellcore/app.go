package main

import (
	"io"

	"github.com/vogtb/cellcore"
	"github.com/vogtb/cellcore/internal/config"
	"github.com/vogtb/cellcore/internal/console"
	"github.com/vogtb/cellcore/internal/logging"
	"github.com/vogtb/cellcore/internal/metrics"
	"github.com/vogtb/cellcore/internal/render"
)

// app is the wiring shared by every subcommand
type app struct {
	cfg     config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	grid    *render.Grid
	journal *render.Journal
	sheet   *cellcore.Sheet
}

func newApp(out io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Service: "cellcore",
		JSON:    cfg.Log.JSON,
	})

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		grid:    render.NewGrid(),
	}

	renderers := render.Multi{a.grid}
	if cfg.Journal.Path != "" {
		a.journal, err = render.OpenJournal(cfg.Journal.Path, logger.Slog())
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, a.journal)
	}
	if echo && out != nil {
		renderers = append(renderers, render.NewWriter(out))
	}

	opts := append(cfg.SheetOptions(),
		cellcore.WithRenderer(renderers),
		cellcore.WithLogger(logger.Slog()),
		cellcore.WithObserver(a.metrics),
	)
	a.sheet = cellcore.New(opts...)

	logger.Debug("sheet ready",
		"buckets", cfg.Sheet.Buckets,
		"max_depth", cfg.Sheet.MaxDepth,
		"journal", cfg.Journal.Path,
	)
	return a, nil
}

func (a *app) console(out io.Writer) *console.Interpreter {
	return console.New(a.sheet, a.grid, out, a.logger.Slog())
}

func (a *app) Close() error {
	a.sheet.Destroy()
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}
