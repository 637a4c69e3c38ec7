// Command bulkbench drives one bulktask engine variant against a synthetic
// workload and reports dispatch latency and throughput. It exists to let a
// human compare the five scheduling disciplines from the command line the
// same way the library's own benchmarks compare them in code.
package main

import (
	"fmt"
	"os"

	"github.com/devhale/bulktask/internal/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	variantFlag string
	workersFlag int
	nFlag       int
	repeatFlag  int
	verboseFlag bool

	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "bulkbench",
	Short: "Benchmark the bulktask scheduling engines",
	Long: `bulkbench drives a single bulktask.Engine variant through a
synthetic bulk workload and reports how long dispatch took.

Run without a subcommand to print this help; use "list" to list the
available variants.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			logger.SetLevel(logrus.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one bulk workload on the selected engine variant",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available engine variants",
	Run: func(cmd *cobra.Command, args []string) {
		for _, v := range allVariants() {
			fmt.Printf("%-12s %s\n", variantFlagName(v), v.String())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().StringVarP(&variantFlag, "variant", "e", "sleep-dag", "engine variant: serial, spawn, spin, sleep, sleep-dag")
	runCmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "worker count (0 = runtime.NumCPU)")
	runCmd.Flags().IntVarP(&nFlag, "n", "n", 100000, "number of task indices per bulk launch")
	runCmd.Flags().IntVarP(&repeatFlag, "repeat", "r", 1, "number of bulk launches to submit")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}

func allVariants() []engine.Variant {
	return []engine.Variant{engine.Serial, engine.AlwaysSpawn, engine.SpinPool, engine.SleepPool, engine.SleepPoolDAG}
}

func variantFlagName(v engine.Variant) string {
	switch v {
	case engine.Serial:
		return "serial"
	case engine.AlwaysSpawn:
		return "spawn"
	case engine.SpinPool:
		return "spin"
	case engine.SleepPool:
		return "sleep"
	case engine.SleepPoolDAG:
		return "sleep-dag"
	default:
		return "unknown"
	}
}

func parseVariant(name string) (engine.Variant, error) {
	for _, v := range allVariants() {
		if variantFlagName(v) == name {
			return v, nil
		}
	}
	return 0, &engine.ConfigError{Msg: fmt.Sprintf("unknown variant %q", name)}
}

func main() {
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("bulkbench: command failed")
		os.Exit(1)
	}
}
