package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"vividfusion/internal/builtin"
	"vividfusion/internal/config"
	"vividfusion/internal/extension"
	"vividfusion/internal/httputil"
	"vividfusion/internal/logging"
	"vividfusion/internal/store"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger hclog.Logger
	http   *http.Client
	store  *store.Store
	ext    *extension.Manager
	paths  config.Paths
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.New(cfg)

	paths, err := cfg.Paths()
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, paths.Database)
	if err != nil {
		return nil, err
	}

	client := httputil.NewClient()
	mgr := extension.New(extension.Options{
		Paths:         paths,
		PluginExt:     cfg.PluginExtension,
		FeaturePrefix: cfg.FeaturePrefix,
		Registry:      builtin.Registry(cfg.FlixHQBase),
		Store:         st,
		HTTP:          client,
		Logger:        logger,
	})

	a := &app{cfg: cfg, logger: logger, http: client, store: st, ext: mgr, paths: paths}
	if cfg.Watch {
		if err := mgr.Watch(ctx); err != nil {
			logger.Warn("watching extension directories", "error", err)
		}
	}
	return a, nil
}

// loadFailures drains the discovery failures reported so far.
func (a *app) loadFailures() []error {
	var errs []error
	for {
		select {
		case err := <-a.ext.Errors():
			errs = append(errs, err)
		default:
			return errs
		}
	}
}

func (a *app) Close() error {
	err := a.ext.Close()
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// withApp opens the app around a command and closes it afterwards.
func withApp(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(ctx, a, args)
	}
}
