package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coralpages/reef/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new Reef project",
	Long: `Create a starter .reef.yml configuration and a templates directory
with an example template in the given directory (default: current
directory).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const starterTemplate = `<Page>
  <Card>
    <Heading value="Welcome to Reef"/>
    <Paragraph value="Everything on this card is static and ships as plain HTML."/>
  </Card>
  <Card>
    <Var name="count" value="0"/>
    <Text value={count}/>
    <Button label="Increment">
      <OnClick>
        <Increment target="count"/>
      </OnClick>
    </Button>
  </Card>
</Page>
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	templatesDir := filepath.Join(dir, "templates")
	if err := os.MkdirAll(templatesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create templates directory: %w", err)
	}

	configPath := filepath.Join(dir, ".reef.yml")
	if err := config.WriteStarter(configPath); err != nil {
		return err
	}

	templatePath := filepath.Join(templatesDir, "index.reef")
	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		if err := os.WriteFile(templatePath, []byte(starterTemplate), 0o644); err != nil {
			return fmt.Errorf("failed to write starter template: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", configPath)
	fmt.Fprintf(out, "Created %s\n", templatePath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  reef preview        Start the preview server")
	fmt.Fprintln(out, "  reef compile templates/index.reef")
	return nil
}
