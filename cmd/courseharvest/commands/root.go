package commands

import (
	"context"
	"fmt"
	"os"

	"courseharvest/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:   "courseharvest",
	Short: "courseharvest saves every lesson of a storefront course as a PDF.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		env, err := loadEnv()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		telemetry.InitSlog(*verbose || env.Verbose)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "courseharvest.json5", "The config file listing courses and timings.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
