// Package hit defines a match in a corpus and the properties hits can be
// filtered and grouped by.
package hit

import "fmt"

// Hit is a match of a query: tokens [Start, End) of document Doc.
type Hit struct {
	Doc   int
	Start int
	End   int
}

// DocID returns the document the hit belongs to.
func (h Hit) DocID() int { return h.Doc }

// Len returns the number of matched tokens.
func (h Hit) Len() int { return h.End - h.Start }

func (h Hit) String() string { return fmt.Sprintf("doc %d [%d,%d)", h.Doc, h.Start, h.End) }
