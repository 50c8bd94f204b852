package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "harmonad",
	Short: "Lid-angle swap pipeline for Monad testnet",
	Long: `HarMonad turns a laptop's lid angle into token swaps on Monad testnet.

A WebSocket bridge streams lid-angle readings from the hinge sensor. Once
an angle holds steady through the stability window it resolves to a token,
and an authorized swap of native MON into that token is queued and
executed through the swap-routing API.

Angle ranges:
  20-35    USDC
  35-50    USDT
  50-65    WBTC
  65-80    WETH
  80-135   WSOL`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
