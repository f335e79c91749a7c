package blacklab

// Document is a text to index. Name identifies it in hit results.
type Document struct {
	Name string
	Text string
}

// CorpusInfo describes a registered corpus.
type CorpusInfo struct {
	Name      string
	Documents int
}

// Span is a half-open token range [Start, End).
type Span struct {
	Start int
	End   int
}

// Hit is one match in keyword-in-context form.
type Hit struct {
	Doc     int
	DocName string
	Start   int
	End     int
	Left    []string
	Match   []string
	Right   []string
	Groups  map[string]Span // captured groups; nil when the pattern captures none
}

// Summary describes the search behind a page.
type Summary struct {
	Processed     int
	Retrieved     int
	Docs          int
	StillCounting bool
	// LimitReached is set when the hit retrieval limit stopped the search.
	LimitReached bool
}

// HitsPage is a window of hits.
type HitsPage struct {
	Summary Summary
	First   int
	HasNext bool
	Hits    []Hit
}

// Group is a set of hits sharing one property value.
type Group struct {
	Identity string
	Size     int
	Hits     []Hit
}

// GroupsPage is a window of groups, largest first.
type GroupsPage struct {
	Summary Summary
	Total   int
	HasNext bool
	Groups  []Group
}

// CacheStatus is a snapshot of the search cache.
type CacheStatus struct {
	Entries   int
	Running   int
	Queued    int
	SizeBytes int64
	Hits      int64
	Misses    int64
}
