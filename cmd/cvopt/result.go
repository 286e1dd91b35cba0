package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/presenter"
)

var errNoResult = errors.New("no analysis yet: run cvopt analyze or cvopt optimize first")

func newResultCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Show or export the last successful analysis",
	}

	var showFormat string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the last result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := presenter.ParseFormat(showFormat)
			if err != nil {
				return err
			}
			a, err := lastAnalysis(cmd, opts)
			if err != nil {
				return err
			}
			return writeResult(cmd, a.Result, format, "")
		},
	}
	show.Flags().StringVarP(&showFormat, "format", "f", string(presenter.FormatText), "Output format: text, markdown, json or yaml")

	var exportFormat, exportOut string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the last result to a file",
		Long:  "Writes the last result to --out, or to ats-optimized-cv-sections.<ext> in the current directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := presenter.ParseFormat(exportFormat)
			if err != nil {
				return err
			}
			a, err := lastAnalysis(cmd, opts)
			if err != nil {
				return err
			}
			out := exportOut
			if out == "" {
				out = presenter.Filename(format)
			}
			return writeResult(cmd, a.Result, format, out)
		},
	}
	export.Flags().StringVarP(&exportFormat, "format", "f", string(presenter.FormatText), "Output format: text, markdown, json or yaml")
	export.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default ats-optimized-cv-sections.<ext>)")

	cmd.AddCommand(show, export)
	return cmd
}

func lastAnalysis(cmd *cobra.Command, opts *rootOptions) (domain.Analysis, error) {
	ctx, s, err := openSession(cmd, opts)
	if err != nil {
		return domain.Analysis{}, err
	}
	defer func() { _ = s.Close() }()

	a, err := s.service.LastResult(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Analysis{}, errNoResult
	}
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("load last result: %w", err)
	}
	return a, nil
}
