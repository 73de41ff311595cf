package codegen

import (
	"sort"

	"github.com/tiktoken-go/tokenizer"
)

// TokenBudgets caps the soft per-artifact-kind token budget the optimizer
// checks generated files against, chosen so an agent loading the full
// .claude/ tree into context stays well within typical model windows.
var TokenBudgets = map[string]int{
	KindAgent:        800,
	KindSkill:        600,
	KindCommand:      200,
	KindRule:         300,
	KindRoot:         2000,
	KindConstitution: 1500,
}

// TokenReport is one artifact's token count against its kind's soft budget.
type TokenReport struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Tokens  int    `json:"tokens"`
	Budget  int    `json:"budget,omitempty"`
	Overrun int    `json:"overrun,omitempty"`
}

// Optimizer counts cl100k_base tokens per generated file and ranks overruns
// against TokenBudgets so the worst offenders surface first.
type Optimizer struct {
	codec tokenizer.Codec
}

// NewOptimizer constructs an Optimizer, loading the cl100k_base encoder.
func NewOptimizer() (*Optimizer, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, err
	}
	return &Optimizer{codec: codec}, nil
}

// Analyze counts tokens for every artifact and ranks those exceeding their
// kind's budget by estimated overrun, worst first. Artifact kinds with no
// configured budget are counted but never flagged.
func (o *Optimizer) Analyze(artifacts []Artifact) ([]TokenReport, error) {
	reports := make([]TokenReport, 0, len(artifacts))
	for _, a := range artifacts {
		ids, _, err := o.codec.Encode(string(a.Content))
		if err != nil {
			return nil, err
		}
		r := TokenReport{Path: a.Path, Kind: a.Kind, Tokens: len(ids)}
		if budget, ok := TokenBudgets[a.Kind]; ok {
			r.Budget = budget
			if len(ids) > budget {
				r.Overrun = len(ids) - budget
			}
		}
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Overrun > reports[j].Overrun })
	return reports, nil
}

// Overruns filters Analyze's result down to artifacts that exceed budget.
func (o *Optimizer) Overruns(artifacts []Artifact) ([]TokenReport, error) {
	all, err := o.Analyze(artifacts)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.Overrun > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}
