package mode

// Mode selects what a search request returns.
type Mode string

// View mode constants.
const (
	// Hits returns a page of hits.
	Hits  Mode = "hits"
	Count Mode = "count"
	// Group returns hits grouped by a property, largest group first.
	Group Mode = "group"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hits || m == Count || m == Group
}
