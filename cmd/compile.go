package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/coralpages/reef/internal/artifact"
	"github.com/coralpages/reef/internal/compiler"
	"github.com/coralpages/reef/internal/config"
	reeferr "github.com/coralpages/reef/internal/errors"
)

var compileCmd = &cobra.Command{
	Use:   "compile [templates...]",
	Short: "Compile templates into hydratable artifacts",
	Long: `Compile one or more templates into artifacts containing the static
HTML skeleton, the detected islands, and their precomputed props.

Examples:
  reef compile page.reef                 Compile one template
  reef compile --format msgpack a.reef   Emit a msgpack artifact
  reef compile --out ./build *.reef      Choose the output directory`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

var (
	compileFormat  string
	compileOut     string
	compileNoCache bool
)

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileFormat, "format", "f", "", "artifact format: json or msgpack (default from config)")
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "output directory (default from config)")
	compileCmd.Flags().BoolVar(&compileNoCache, "no-cache", false, "bypass the artifact cache")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if compileFormat != "" {
		cfg.Output.Format = compileFormat
	}
	if compileOut != "" {
		cfg.Output.Dir = compileOut
	}
	if cfg.Output.Format != "json" && cfg.Output.Format != "msgpack" {
		return fmt.Errorf("unknown artifact format %q", cfg.Output.Format)
	}

	comp := compiler.New(compiler.Options{
		Limits:       cfg.Limits,
		Logger:       newLogger(cfg),
		DisableCache: compileNoCache || cfg.Development.DisableCache,
	})

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	printer := message.NewPrinter(language.English)
	failed := 0

	for _, path := range args {
		if err := compileOne(cmd, comp, cfg, printer, path); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s\n%s\n", path, indent(err.Error()))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d template(s) failed to compile", failed, len(args))
	}
	return nil
}

func compileOne(cmd *cobra.Command, comp *compiler.Compiler, cfg *config.Config, printer *message.Printer, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := comp.Compile(cmd.Context(), string(source))
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", warning.Error())
		if hint := reeferr.Suggestion(warning); hint != "" {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", hint)
		}
	}

	outPath, err := writeArtifact(cfg, path, result.Template)
	if err != nil {
		return err
	}

	usage := result.Template.Limits
	printer.Fprintf(cmd.OutOrStdout(), "✓ %s → %s (%d bytes in, %d components, %d islands, %d vars)\n",
		path, outPath, usage.SourceBytes, usage.ComponentCount, len(result.Template.Islands), usage.ComputedVars)
	return nil
}

func writeArtifact(cfg *config.Config, srcPath string, tpl *artifact.CompiledTemplate) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)
	switch cfg.Output.Format {
	case "msgpack":
		data, err = artifact.EncodeMsgpack(tpl)
		ext = ".msgpack"
	default:
		data, err = artifact.EncodeJSON(tpl)
		ext = ".json"
	}
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	outPath := filepath.Join(cfg.Output.Dir, base+ext)
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
