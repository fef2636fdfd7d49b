package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coralpages/reef/internal/compiler"
	"github.com/coralpages/reef/internal/config"
	"github.com/coralpages/reef/internal/logging"
	"github.com/coralpages/reef/internal/server"
	"github.com/coralpages/reef/internal/watcher"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Start the preview server with live reload",
	Long: `Compile every template under the configured scan paths and serve
them for browser preview. Changed templates are recompiled and
connected browsers reload automatically. A template that fails to
compile shows an error overlay instead of the page.

Examples:
  reef preview                  Serve on the configured host and port
  reef preview --port 9000      Override the port
  reef preview --no-reload      Disable live reload`,
	RunE: runPreview,
}

var previewNoReload bool

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().IntP("port", "p", 0, "port to serve on")
	previewCmd.Flags().BoolVar(&previewNoReload, "no-reload", false, "disable live reload")
	_ = viper.BindPFlag("server.port", previewCmd.Flags().Lookup("port"))
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if previewNoReload {
		cfg.Development.LiveReload = false
	}

	logger := newLogger(cfg)
	comp := compiler.New(compiler.Options{
		Limits:       cfg.Limits,
		Logger:       logger,
		DisableCache: cfg.Development.DisableCache,
	})

	srv := server.New(cfg, comp, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.LoadTemplates(ctx); err != nil {
		return err
	}

	if cfg.Development.LiveReload {
		w, err := newTemplateWatcher(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer w.Stop()

		w.AddHandler(func(changes []watcher.Change) error {
			paths := make([]string, 0, len(changes))
			for _, c := range changes {
				if c.Type != watcher.EventDeleted {
					paths = append(paths, c.Path)
				}
			}
			if len(paths) > 0 {
				srv.NotifyChanged(ctx, paths)
			}
			return nil
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Preview server running at http://%s\n", srv.Addr())
	return srv.Start(ctx)
}

// newTemplateWatcher builds a started watcher over the configured scan
// paths with the standard template filters applied.
func newTemplateWatcher(ctx context.Context, cfg *config.Config, logger logging.Logger) (*watcher.TemplateWatcher, error) {
	w, err := watcher.New(time.Duration(cfg.Development.DebounceMs)*time.Millisecond, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w.AddFilter(watcher.ExtensionFilter(cfg.Templates.Extensions...))
	w.AddFilter(watcher.NoHiddenFilter)

	for _, root := range cfg.Templates.ScanPaths {
		if err := w.AddRecursive(root); err != nil {
			logger.Warn(ctx, err, "cannot watch path", "path", root)
		}
	}

	w.Start(ctx)
	return w, nil
}
