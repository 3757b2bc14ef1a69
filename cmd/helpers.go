package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/config"
	"github.com/ziadkadry99/flowchat/internal/controller"
	"github.com/ziadkadry99/flowchat/internal/db"
	"github.com/ziadkadry99/flowchat/internal/diagrams"
	"github.com/ziadkadry99/flowchat/internal/dispatch"
	"github.com/ziadkadry99/flowchat/internal/export"
	"github.com/ziadkadry99/flowchat/internal/files"
	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/preview"
	"github.com/ziadkadry99/flowchat/internal/resolve"
	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/theme"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `flowchat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// app holds everything one session needs.
type app struct {
	cfg      *config.Config
	db       *db.DB
	service  *client.Client
	themes   theme.Store
	state    *surface.State
	ctrl     *controller.Controller
	exporter *export.Exporter
	selector files.Selector
}

// openApp wires the session from config. The theme is read from the
// preferences database before anything renders.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	themes := theme.NewSQLStore(database)
	current, err := themes.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read saved theme: %v\n", err)
		current = theme.Dark
	}

	renderer, err := diagrams.New(string(cfg.Renderer.Kind), cfg.Renderer.Command)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}
	svc := client.New(cfg.Endpoint, cfg.Timeout())
	if verbose {
		log.Printf("flowchat: renderer %T, endpoint %s, database %s", renderer, svc.BaseURL(), database.Path())
	}

	state := surface.New(transcript.NewStore(), current)
	res := resolve.New(renderer, markup.NewMarkdown(), state)
	res.SetVerbose(verbose)

	prev, err := preview.New(cfg.Preview.CacheSize)
	if err != nil {
		database.Close()
		return nil, err
	}

	exp := export.New(cfg.ExportDir, state)
	ctrl := controller.New(controller.Deps{
		State:      state,
		Dispatcher: dispatch.New(svc, res, state),
		Previewer:  prev,
		Exporter:   exp,
		Themes:     themes,
	})

	return &app{
		cfg:      cfg,
		db:       database,
		service:  svc,
		themes:   themes,
		state:    state,
		ctrl:     ctrl,
		exporter: exp,
		selector: files.Selector{
			MaxFileSize: cfg.Files.MaxFileSize,
			Exclude:     cfg.Files.Exclude,
		},
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// attach loads the selected files into the form through the same events the
// web page fires.
func (a *app) attach(ctx context.Context, codeGlobs []string, diagramPath string) error {
	if len(codeGlobs) > 0 {
		code, err := a.selector.LoadCode(codeGlobs)
		if err != nil {
			return err
		}
		if _, err := a.ctrl.Handle(ctx, controller.Event{Kind: controller.EventSelectCodeFiles, Files: code}); err != nil {
			return err
		}
	}
	if diagramPath != "" {
		img, err := a.selector.LoadDiagram(diagramPath)
		if err != nil {
			return err
		}
		if _, err := a.ctrl.Handle(ctx, controller.Event{Kind: controller.EventSelectDiagramFile, Files: []client.File{*img}}); err != nil {
			return err
		}
	}
	return nil
}
