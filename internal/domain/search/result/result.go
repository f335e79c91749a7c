package result

import "github.com/docusmart/blacklab/internal/results"

// Result is a single hit in keyword-in-context form.
type Result struct {
	doc     int
	docName string
	start   int
	end     int
	left    []string
	match   []string
	right   []string
	groups  map[string]results.Span
}

// New creates a hit result.
func New(
	doc int, docName string, start, end int,
	left, match, right []string,
	groups map[string]results.Span,
) Result {
	return Result{
		doc: doc, docName: docName, start: start, end: end,
		left: left, match: match, right: right, groups: groups,
	}
}

// Doc returns the document id.
func (r *Result) Doc() int { return r.doc }

// DocName returns the document name.
func (r *Result) DocName() string { return r.docName }

// Start returns the first token position of the hit.
func (r *Result) Start() int { return r.start }

// End returns the token position after the hit.
func (r *Result) End() int { return r.end }

// Left returns the tokens before the hit.
func (r *Result) Left() []string { return r.left }

// Match returns the matched tokens.
func (r *Result) Match() []string { return r.match }

// Right returns the tokens after the hit.
func (r *Result) Right() []string { return r.right }

// Groups returns the captured groups by name (nil if the pattern captures none).
func (r *Result) Groups() map[string]results.Span { return r.groups }

// Group is one group of a grouped search.
type Group struct {
	Identity string
	Size     int
	Hits     []Result
}

// Summary describes the state of the search behind a response.
type Summary struct {
	Pattern       string
	Processed     int
	Retrieved     int
	Docs          int
	StillCounting bool
	MaxStats      results.MaxStats
	Window        *results.WindowStats
	Sample        *results.SampleParameters
}
