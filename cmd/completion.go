package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for ddlogs.

To load completions:

Bash:
  $ source <(ddlogs completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ ddlogs completion bash > /etc/bash_completion.d/ddlogs
  # macOS:
  $ ddlogs completion bash > $(brew --prefix)/etc/bash_completion.d/ddlogs

Zsh:
  $ ddlogs completion zsh > "${fpath[1]}/_ddlogs"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ ddlogs completion fish | source

  # To load completions for each session, execute once:
  $ ddlogs completion fish > ~/.config/fish/completions/ddlogs.fish

PowerShell:
  PS> ddlogs completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
