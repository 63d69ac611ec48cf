package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for supply-chain.

Cargo does not complete the flags of external subcommands, so these scripts
complete the supply-chain binary itself.

To load completions:

Bash:
  $ source <(supply-chain completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ supply-chain completion bash > /etc/bash_completion.d/supply-chain
  # macOS:
  $ supply-chain completion bash > $(brew --prefix)/etc/bash_completion.d/supply-chain

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ supply-chain completion zsh > "${fpath[1]}/_supply-chain"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ supply-chain completion fish | source

  # To load completions for each session, execute once:
  $ supply-chain completion fish > ~/.config/fish/completions/supply-chain.fish

PowerShell:
  PS> supply-chain completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> supply-chain completion powershell > supply-chain.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}
