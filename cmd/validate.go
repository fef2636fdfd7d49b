package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coralpages/reef/internal/compiler"
	"github.com/coralpages/reef/internal/config"
	reeferr "github.com/coralpages/reef/internal/errors"
)

var validateCmd = &cobra.Command{
	Use:   "validate [templates...]",
	Short: "Check templates without emitting artifacts",
	Long: `Run the full compile pipeline on each template and report every
syntax error, unknown component, and limit violation, without writing
any output. All problems in a template are reported in one pass.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	comp := compiler.New(compiler.Options{
		Limits:       cfg.Limits,
		Logger:       newLogger(cfg),
		DisableCache: true,
	})

	failed := 0
	for _, path := range args {
		source, err := os.ReadFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
			continue
		}

		result, err := comp.Compile(cmd.Context(), string(source))
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s\n", path)
			printCompileError(err)
			continue
		}

		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stderr, "  warning: %s\n", warning.Error())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%d islands)\n", path, len(result.Template.Islands))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d template(s) failed validation", failed, len(args))
	}
	return nil
}

func printCompileError(err error) {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return
	}
	for _, e := range ce.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", e.Error())
		if hint := reeferr.Suggestion(e); hint != "" {
			fmt.Fprintf(os.Stderr, "    hint: %s\n", hint)
		}
	}
}
