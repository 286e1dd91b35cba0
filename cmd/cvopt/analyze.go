package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/textextractor"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/presenter"
)

type flowCommand struct {
	use   string
	short string
	long  string
	flow  domain.Flow
}

var (
	flowAnalyze = flowCommand{
		use:   "analyze",
		short: "Score a CV against a job description",
		long:  "Reports the ATS and match scores, missing keywords, suggestions and keyword density, and returns a fully rewritten CV.",
		flow:  domain.FlowAnalysis,
	}
	flowOptimize = flowCommand{
		use:   "optimize",
		short: "Rewrite CV sections for a 90+ ATS score",
		long:  "Produces an optimized professional summary, core skills, personalized achievements and concrete ATS improvements. Requires an experience summary.",
		flow:  domain.FlowSections,
	}
)

type flowOptions struct {
	cv             string
	experience     string
	experienceFile string
	job            string
	jobFile        string
	jobURL         string
	apiKey         string
	format         string
	out            string
}

func newFlowCmd(root *rootOptions, fc flowCommand) *cobra.Command {
	o := &flowOptions{}
	cmd := &cobra.Command{
		Use:   fc.use,
		Short: fc.short,
		Long:  fc.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlow(cmd, root, o, fc.flow)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.cv, "cv", "", "Path to the CV (.txt, .pdf or .docx) (required)")
	f.StringVarP(&o.experience, "experience", "e", "", "Experience summary text")
	f.StringVar(&o.experienceFile, "experience-file", "", "Path to a file holding the experience summary")
	f.StringVarP(&o.job, "job", "j", "", "Job description text")
	f.StringVar(&o.jobFile, "job-file", "", "Path to a file holding the job description")
	f.StringVar(&o.jobURL, "job-url", "", "Job posting URL, fetched when no description is given")
	f.StringVar(&o.apiKey, "api-key", "", "Provider API key for this run (default: the stored key)")
	f.StringVarP(&o.format, "format", "f", string(presenter.FormatText), "Output format: text, markdown, json or yaml")
	f.StringVarP(&o.out, "out", "o", "", "Write the result to this file instead of stdout")

	if err := cmd.MarkFlagRequired("cv"); err != nil {
		panic(fmt.Sprintf("failed to mark cv flag as required: %v", err))
	}
	return cmd
}

func runFlow(cmd *cobra.Command, root *rootOptions, o *flowOptions, flow domain.Flow) error {
	format, err := presenter.ParseFormat(o.format)
	if err != nil {
		return err
	}
	experience, err := readTextFlag(o.experience, o.experienceFile, "experience")
	if err != nil {
		return err
	}
	job, err := readTextFlag(o.job, o.jobFile, "job")
	if err != nil {
		return err
	}

	ctx, s, err := openSession(cmd, root)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	data, err := os.ReadFile(o.cv)
	if err != nil {
		return fmt.Errorf("%w: read CV: %w", domain.ErrInvalidArgument, err)
	}
	cvText, err := textextractor.New().Extract(ctx, filepath.Base(o.cv), data)
	if err != nil {
		return err
	}

	a, err := s.service.Analyze(ctx, o.apiKey, domain.RawInput{
		CVText:            cvText,
		ExperienceSummary: experience,
		JobDescription:    job,
		JobURL:            o.jobURL,
	}, flow)
	if err != nil {
		return err
	}
	return writeResult(cmd, a.Result, format, o.out)
}

// writeResult renders r to path, or to stdout when path is empty.
func writeResult(cmd *cobra.Command, r domain.OptimizationResult, format presenter.Format, path string) error {
	if path == "" {
		return presenter.Render(cmd.OutOrStdout(), r, format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := presenter.Render(f, r, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Result written to %s\n", path)
	return nil
}
