package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmurray2011/ddlogs/internal/config"
	"github.com/jmurray2011/ddlogs/internal/datadog"
	clierrors "github.com/jmurray2011/ddlogs/internal/errors"
	"github.com/jmurray2011/ddlogs/internal/output"
	"github.com/jmurray2011/ddlogs/internal/poller"
	"github.com/jmurray2011/ddlogs/internal/ui"
	"github.com/jmurray2011/ddlogs/pkg/timeutil"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	follow       bool
	service      string
	sourceFilter string
	host         string
	rawQuery     string
	limit        int
	interval     int
	since        string
	to           string
	verbose      bool
	noColor      bool
	quiet        bool

	// render is the shared renderer for all diagnostics. Stdout carries
	// nothing but the JSON log stream.
	render *ui.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "ddlogs",
	Short: "Tail logs from Datadog",
	Long: `ddlogs - query and tail Datadog logs as newline-delimited JSON.

Each matching log entry is printed as a single JSON line on stdout, so
output pipes cleanly into jq and other line-oriented JSON tools. All
status and error messages go to stderr.

Credentials are read from ~/.config/ddlogs/config.toml; the DD_API_KEY,
DD_APP_KEY, and DD_SITE environment variables override individual fields.
Run 'ddlogs configure' for interactive setup.

Examples:
  # Logs from the last hour for a service
  ddlogs --service web-api

  # Raw Datadog query syntax
  ddlogs -q "status:error @http.status_code:500"

  # Combine filters (joined with AND)
  ddlogs --service web-api --host i-0abc123

  # Follow new logs, like tail -f
  ddlogs -f --service web-api

  # Feed errors into jq
  ddlogs -q "status:error" | jq -r '.content.message'`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, printing errors to stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// SetVersion sets the version string for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	// Assigned here rather than in the literal to avoid an
	// initialization cycle (runRoot -> getLimit -> rootCmd).
	rootCmd.RunE = runRoot

	cobra.OnInitialize(initSettings, initRenderer)

	rootCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Continuously poll for new logs")
	rootCmd.Flags().StringVar(&service, "service", "", "Filter by service")
	rootCmd.Flags().StringVar(&sourceFilter, "source", "", "Filter by source")
	rootCmd.Flags().StringVar(&host, "host", "", "Filter by host")
	rootCmd.Flags().StringVarP(&rawQuery, "query", "q", "", "Raw Datadog query string")
	rootCmd.Flags().IntVarP(&limit, "limit", "l", 100, "Number of logs to retrieve per request")
	rootCmd.Flags().IntVar(&interval, "interval", 12, "Poll interval in seconds for follow mode (default respects Datadog's 300 req/hour limit)")
	rootCmd.Flags().StringVarP(&since, "since", "s", "1h", "Start time for one-shot mode - RFC3339 or relative (e.g., 2h, 30m, 7d)")
	rootCmd.Flags().StringVar(&to, "to", "now", "End time for one-shot mode - RFC3339 or relative")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress status messages")

	// Bind to viper so DDLOGS_* env vars can set defaults
	_ = viper.BindPFlag("limit", rootCmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("interval", rootCmd.Flags().Lookup("interval"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initSettings() {
	viper.SetEnvPrefix("DDLOGS")
	viper.AutomaticEnv()
}

// initRenderer initializes the shared renderer with current settings.
func initRenderer() {
	render = ui.NewRenderer(
		ui.WithNoColor(noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd())),
		ui.WithQuiet(quiet),
		ui.WithVerbose(IsVerbose()),
	)
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("verbose")
}

// getLimit returns the per-request limit from flags or environment.
func getLimit() int {
	if rootCmd.Flags().Changed("limit") {
		return limit
	}
	return viper.GetInt("limit")
}

// getInterval returns the follow-mode poll interval.
func getInterval() time.Duration {
	if rootCmd.Flags().Changed("interval") {
		return time.Duration(interval) * time.Second
	}
	return time.Duration(viper.GetInt("interval")) * time.Second
}

func runRoot(cmd *cobra.Command, args []string) error {
	creds, err := config.Load()
	if err != nil {
		return err
	}
	if err := creds.Validate(); err != nil {
		return clierrors.MissingCredentialsError(err)
	}
	render.Debug("Using site %s", creds.Site)

	client := datadog.NewClient(creds.APIKey, creds.AppKey, creds.Site)
	query := buildQuery(service, sourceFilter, host, rawQuery)
	render.Debug("Effective query: %s", query)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := poller.New(client, output.NewWriter(os.Stdout), render, poller.Options{
		Query:    query,
		Limit:    getLimit(),
		Interval: getInterval(),
	})

	if follow {
		render.Status("Following logs matching %q every %s (Ctrl+C to stop)...", query, getInterval())
		return p.Follow(ctx)
	}

	start, err := timeutil.Parse(since)
	if err != nil {
		return fmt.Errorf("invalid --since value: %w", err)
	}
	end, err := timeutil.Parse(to)
	if err != nil {
		return fmt.Errorf("invalid --to value: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("start time must be before end time")
	}
	for _, warning := range timeutil.ValidateTimeRange(start, end) {
		if warning.Level == "warning" {
			render.Warning("%s", warning.Message)
		} else {
			render.Status("%s", warning.Message)
		}
	}

	return p.Fetch(ctx, start, end)
}

// buildQuery joins the filter flags and the raw query into a single
// Datadog search query. Space-separated terms are ANDed by the API; an
// empty set of filters matches everything.
func buildQuery(service, source, host, raw string) string {
	var parts []string

	if service != "" {
		parts = append(parts, "service:"+service)
	}
	if source != "" {
		parts = append(parts, "source:"+source)
	}
	if host != "" {
		parts = append(parts, "host:"+host)
	}
	if raw != "" {
		parts = append(parts, raw)
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}
