package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coralpages/reef/internal/compiler"
	"github.com/coralpages/reef/internal/config"
	"github.com/coralpages/reef/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompile templates on file changes without serving",
	Long: `Watch the configured scan paths and recompile changed templates,
writing fresh artifacts to the output directory. Useful when another
server consumes the artifacts and only the compilation step is needed.

Examples:
  reef watch                    Watch all configured paths
  reef watch --verbose          Print each changed file`,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	comp := compiler.New(compiler.Options{
		Limits:       cfg.Limits,
		Logger:       logger,
		DisableCache: cfg.Development.DisableCache,
	})

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := newTemplateWatcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	w.AddHandler(func(changes []watcher.Change) error {
		if watchVerbose {
			for _, c := range changes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Type, c.Path)
			}
		}
		for _, c := range changes {
			if c.Type == watcher.EventDeleted {
				continue
			}
			source, err := os.ReadFile(c.Path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", c.Path, err)
				continue
			}
			result, err := comp.Compile(ctx, string(source))
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s\n", c.Path)
				printCompileError(err)
				continue
			}
			outPath, err := writeArtifact(cfg, c.Path, result.Template)
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", c.Path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s → %s\n", c.Path, outPath)
		}
		return nil
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %v for changes (Ctrl+C to stop)\n", cfg.Templates.ScanPaths)
	<-ctx.Done()
	return nil
}
