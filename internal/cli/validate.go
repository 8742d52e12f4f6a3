package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a pipeline config without running it",
		Long: `Load a pipeline config, report every problem found, and print the
stages the pipeline would run.

Example:
  rxpipe validate ./pipeline.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd, opts, args[0])
		},
	}
	return cmd
}

type validateResult struct {
	Name   string   `json:"name"`
	Source string   `json:"source"`
	Stages []string `json:"stages"`
}

func validateConfig(cmd *cobra.Command, opts *ValidateOptions, path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	res := validateResult{Name: cfg.Name, Source: cfg.Source.Kind, Stages: cfg.StageNames()}
	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "ok: %s (source %s, %d ops)\n", res.Name, res.Source, len(res.Stages))
	for _, s := range res.Stages {
		fmt.Fprintf(out, "  %s\n", s)
	}
	return nil
}
