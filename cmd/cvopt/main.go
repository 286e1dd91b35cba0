// Command cvopt scores a CV against a job description and rewrites it for
// applicant tracking systems, calling the completion provider directly or
// through the cvopt server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	stateDir string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "cvopt",
		Short:         "ATS CV optimizer",
		Long:          "cvopt analyses a CV against a job description, reports the ATS and match scores with missing keywords, and produces an optimized CV or rewritten CV sections.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.stateDir, "state-dir", "", "Directory for the local session database (default $CVOPT_STATE_DIR or ~/.cvopt)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Write debug logs to stderr instead of cvopt.log in the state directory")

	cmd.AddCommand(
		newKeyCmd(opts),
		newFlowCmd(opts, flowAnalyze),
		newFlowCmd(opts, flowOptimize),
		newResultCmd(opts),
	)
	return cmd
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		os.Exit(1)
	}
}
