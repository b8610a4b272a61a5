package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRootCommand builds the jitbisect command.
//
// Everything after the flags (or after an explicit "--") is the external
// command, treated as an opaque remainder; interspersed flag parsing is
// disabled so the external command's own flags are never consumed.
func NewRootCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "jitbisect [flags] -- <command> [args...]",
		Short: "Find a minimal jit-list that reproduces a command failure",
		Long: `jitbisect minimizes the set of jit-compiled functions needed to reproduce
a failure in the given command.

The command must fail with the full jit-list enabled and succeed with an
empty one. jitbisect discovers the compiled functions from one diagnostic
run, then repeatedly re-runs the command with candidate subsets enabled via
the jit-list file, halving the set where possible and recursing when the
failure needs functions from both halves of a split.

The jit-list file is overwritten before every run and is left holding the
final minimized set.

Examples:
  # Bisect a failing test run
  jitbisect -- ./python -X jit -m test test_foo

  # Keep the list somewhere else and record the trial log
  jitbisect --jitlist /tmp/jitlist.txt --trial-log trials.json -- ./repro.sh`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return invalidInvocationf("no command given: pass the failing command after the flags")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := NewInvocation(args, opts)
			if err != nil {
				return err
			}

			logger, err := newLogger(inv)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			_, err = Execute(cmd.Context(), inv, logger, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&opts.JitlistPath, "jitlist", "", "candidate file path (default jitlist.txt)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&opts.TrialLogPath, "trial-log", "", "write the canonical trial log to this path")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug-level progress output")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "errors only")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return invalidInvocationf("%v", err)
	})

	return cmd
}

// newLogger builds the progress logger. Progress output is informational
// only and goes to stderr; stdout carries nothing but the final report.
func newLogger(inv Invocation) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	switch {
	case inv.Verbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case inv.Quiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	return cfg.Build()
}
