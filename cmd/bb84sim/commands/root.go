package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the bb84sim command tree. Each call returns fresh
// commands with their own flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bb84sim",
		Short: "bb84sim - BB84 quantum key distribution simulator",
		Long: `bb84sim simulates the BB84 protocol over an ideal channel: a sender
prepares random bits in random bases, an optional eavesdropper performs an
intercept-resend attack, and a receiver measures in bases of its own. The
sifted keys and their error rate reveal whether the channel was observed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		// Enable strict flag parsing - unknown flags will cause an error
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		// Errors are printed with color by the printer package
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newInspectCmd(),
		newHistoryCmd(),
	)
	return root
}

// Execute runs the command line. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}
