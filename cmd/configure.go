package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmurray2011/ddlogs/internal/config"

	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure ddlogs with API credentials and site",
	Long: `Interactively set up Datadog API credentials.

Prompts for an API key, an application key, and the Datadog site, then
writes them to ~/.config/ddlogs/config.toml, overwriting any existing
file. Keys are stored with owner-only permissions.

The DD_API_KEY, DD_APP_KEY, and DD_SITE environment variables override
the saved values field-by-field at runtime.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintln(out, "Configure ddlogs")
	fmt.Fprintln(out)

	apiKey, err := prompt(out, reader, "Datadog API Key: ")
	if err != nil {
		return err
	}
	appKey, err := prompt(out, reader, "Datadog Application Key: ")
	if err != nil {
		return err
	}
	site, err := prompt(out, reader, fmt.Sprintf("Datadog Site [%s]: ", config.DefaultSite))
	if err != nil {
		return err
	}
	if site == "" {
		site = config.DefaultSite
	}

	creds := config.Credentials{
		APIKey: apiKey,
		AppKey: appKey,
		Site:   site,
	}
	if err := config.Save(creds); err != nil {
		return err
	}

	path, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", path)

	return nil
}

// prompt prints a label and reads one trimmed line. EOF with a partial
// line still returns that line, so piped input works.
func prompt(out io.Writer, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
