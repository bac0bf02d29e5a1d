package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/CrazyWorldPL/IVshop/internal/config"
)

var (
	logger *slog.Logger
	cfg    *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ivshop",
	Short: "IVshop voucher storefront for Minecraft servers",
	Long: `IVshop runs web shops for Minecraft server owners.

Customers redeem voucher codes for in-game perks, which are delivered by sending
console commands to the game server over RCON. The same binary serves the REST API
and offers CLI commands for operating servers and vouchers.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration first so LOG_* from .env apply
		var err error
		cfg, err = config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
			os.Exit(1)
		}

		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		logger = config.SetupLogger(level, format)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringP("log-format", "f", "", "Log format (json, text)")
}
