package analysis

import "time"

const (
	MaxStackEntries  = 8
	MaxCoreEntries   = 6
	MinCoreEntries   = 3
	MinFeatureRunes  = 40
	DefaultTimeout   = 600 * time.Second
	ExitCodeTimeout  = 124
	ExitCodeNoRun    = -1
	UnknownLanguage  = "未知"
	MaxAttemptStages = 3
)

// Result is the canonical record handed to the digest renderer.
type Result struct {
	Feature string   `json:"feature"`
	Stack   []string `json:"stack"`
	Core    []string `json:"core"`
	Note    string   `json:"note,omitempty"`
}

// Candidate returns r keyed by the primary field names, so it can be fed
// back through Normalize.
func (r Result) Candidate() map[string]any {
	stack := make([]any, 0, len(r.Stack))
	for _, s := range r.Stack {
		stack = append(stack, s)
	}
	core := make([]any, 0, len(r.Core))
	for _, c := range r.Core {
		core = append(core, c)
	}
	return map[string]any{
		fieldFeature: r.Feature,
		fieldStack:   stack,
		fieldCore:    core,
	}
}

// Request describes one repository to analyze. FallbackDesc and FallbackLang
// come from the trending listing and are used whenever the generator yields
// nothing usable.
type Request struct {
	RepoName     string
	RepoDir      string
	FallbackDesc string
	FallbackLang string
}

type CandidateSource string

const (
	SourceNone       CandidateSource = "none"
	SourceOutputFile CandidateSource = "output_file"
	SourceRawText    CandidateSource = "raw_text"
)

// AttemptRecord is the diagnostic trace of one generator invocation.
type AttemptRecord struct {
	Stage        Stage           `json:"stage"`
	ExitCode     int             `json:"exit_code"`
	TimedOut     bool            `json:"timed_out"`
	Source       CandidateSource `json:"source"`
	SchemaIssues []string        `json:"schema_issues,omitempty"`
	WeakReasons  []string        `json:"weak_reasons,omitempty"`
	Accepted     bool            `json:"accepted"`
	Duration     time.Duration   `json:"duration"`
}

// Outcome is what Analyze returns. It is always usable: when every attempt
// fails, Result holds the degraded record and Degraded is true.
type Outcome struct {
	Result        Result          `json:"result"`
	Attempts      []AttemptRecord `json:"attempts"`
	Degraded      bool            `json:"degraded"`
	AcceptedStage *Stage          `json:"accepted_stage,omitempty"`
}

// ExitCodes lists the exit code of every attempt in order.
func (o Outcome) ExitCodes() []int {
	out := make([]int, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		out = append(out, a.ExitCode)
	}
	return out
}
