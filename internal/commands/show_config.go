// internal/commands/show_config.go
package pdfrag

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/pdfrag/internal/appconfig"
)

// showCmd groups the read-only display commands.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for displaying resources",
}

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON config, the environment and the flags merge as expected. Credentials are masked.`,
	Run: func(cmd *cobra.Command, args []string) {
		appconfig.ShowConfig(cmd.OutOrStdout(), viper.ConfigFileUsed(), GetConfig())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showConfigCmd)
}
