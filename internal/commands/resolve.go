package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AazimAnish/HarMonad/internal/tokens"
)

// resolveCmd maps an angle (or prints the whole table) without starting
// the pipeline. Handy when calibrating the hinge sensor.
var resolveCmd = &cobra.Command{
	Use:   "resolve [angle]",
	Short: "Resolve a lid angle to its token",
	Long: `Resolve a lid angle in degrees to the token it would trade into.

Without an argument, prints the full angle-to-token table.

Examples:
  harmonad resolve          # print the table
  harmonad resolve 42.5     # which token does 42.5 degrees buy?`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Printf("%-12s %-8s %s\n", "RANGE", "TOKEN", "ADDRESS")
		for _, rng := range tokens.Table() {
			fmt.Printf("%5.1f-%-6.1f %-8s %s\n", rng.Min, rng.Max, rng.Token.Symbol, rng.Token.Address.Hex())
		}
		return nil
	}

	angle, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid angle %q: %w", args[0], err)
	}

	token := tokens.Resolve(angle)
	if token == nil {
		fmt.Printf("%.1f° is outside the tradable range (%.0f-%.0f)\n",
			angle, tokens.MinVisibleAngle, tokens.MaxOpeningAngle)
		return nil
	}

	fmt.Printf("%.1f° -> %s (%s) %s\n", angle, token.Symbol, token.Name, token.Address.Hex())
	return nil
}
