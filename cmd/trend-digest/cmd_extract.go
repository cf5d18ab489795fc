package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/joelkehle/trend-digest/internal/analysis"
)

var (
	extractDesc string
	extractLang string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run extraction, normalization and the quality gate on text from stdin",
	Long: `Reads a raw model reply from stdin and prints what the pipeline makes of
it: the extracted object, schema issues, the normalized result and the
reasons it would be rejected. No generator is called.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractDesc, "desc", "", "fallback description")
	extractCmd.Flags().StringVar(&extractLang, "lang", "", "fallback language")
}

type extractReport struct {
	Found        bool            `json:"found"`
	Candidate    map[string]any  `json:"candidate,omitempty"`
	SchemaIssues []string        `json:"schema_issues,omitempty"`
	Result       analysis.Result `json:"result"`
	WeakReasons  []string        `json:"weak_reasons,omitempty"`
	Accepted     bool            `json:"accepted"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), buildExtractReport(string(raw), extractDesc, extractLang))
}

func buildExtractReport(raw, desc, lang string) extractReport {
	obj, found := analysis.ExtractJSONObject(raw)
	rep := extractReport{Found: found, Candidate: obj}
	if found {
		rep.SchemaIssues = analysis.ValidateCandidate(obj)
	}
	rep.Result = analysis.Normalize(obj, desc, lang)
	rep.WeakReasons = analysis.WeakReasons(rep.Result)
	rep.Accepted = found && len(rep.WeakReasons) == 0
	return rep
}
