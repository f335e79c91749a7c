package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturedGroups_OmitEmpty(t *testing.T) {
	x := testHit{doc: 1, start: 0, end: 5}
	g := NewCapturedGroups[testHit]([]string{"a", "b"})
	g.Put(x, []Span{{0, 0}, {2, 5}})

	assert.Equal(t, []*Span{nil, {2, 5}}, g.Get(x, true))
	assert.Equal(t, []*Span{{0, 0}, {2, 5}}, g.Get(x, false))
	assert.Equal(t, []NamedSpan{{Name: "b", Span: &Span{2, 5}}}, g.GetMap(x, true))
	assert.Equal(t, []NamedSpan{
		{Name: "a", Span: &Span{0, 0}},
		{Name: "b", Span: &Span{2, 5}},
	}, g.GetMap(x, false))

	// Normalizing never touches the stored array.
	raw, ok := g.Raw(x)
	require.True(t, ok)
	assert.Equal(t, []Span{{0, 0}, {2, 5}}, raw)
}

func TestCapturedGroups_Absent(t *testing.T) {
	g := NewCapturedGroups[testHit]([]string{"a"})
	assert.Nil(t, g.Get(testHit{}, false))
	assert.Nil(t, g.GetMap(testHit{}, true))
	_, ok := g.Raw(testHit{})
	assert.False(t, ok)
}

func TestCapturedGroups_PutCopiesInput(t *testing.T) {
	x := testHit{doc: 2}
	g := NewCapturedGroups[testHit]([]string{"a"})
	spans := []Span{{1, 4}}
	g.Put(x, spans)
	spans[0] = Span{9, 9}

	assert.Equal(t, []*Span{{1, 4}}, g.Get(x, false))
}

func TestCapturedGroups_PutAllLastWriteWins(t *testing.T) {
	x, y := testHit{doc: 1}, testHit{doc: 2}
	a := NewCapturedGroups[testHit]([]string{"g"})
	a.Put(x, []Span{{0, 1}})
	b := NewCapturedGroups[testHit]([]string{"g"})
	b.Put(x, []Span{{5, 6}})
	b.Put(y, []Span{{7, 8}})

	a.PutAll(b)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []*Span{{5, 6}}, a.Get(x, false))
	a.PutAll(nil)
	a.PutAll(a)
	assert.Equal(t, 2, a.Len())
}

func TestCapturedGroups_PutWrongArity(t *testing.T) {
	g := NewCapturedGroups[testHit]([]string{"a", "b"})
	assert.Panics(t, func() { g.Put(testHit{}, []Span{{0, 1}}) })
}

func TestSequence_CapturesGroupsFromProducer(t *testing.T) {
	items := seqHits(3)
	gp := &groupProducer{
		sliceProducer: newSliceProducer(items),
		names:         []string{"adj", "noun"},
		spans:         map[testHit][]Span{items[0]: {{0, 1}, {1, 2}}},
	}
	s := FromProducer[testHit](gp)
	_, err := s.ProcessedTotal(t.Context())
	require.NoError(t, err)

	groups := s.CapturedGroups()
	require.NotNil(t, groups)
	assert.Equal(t, 3, groups.Len())
	assert.Equal(t, []*Span{{0, 1}, {1, 2}}, groups.Get(items[0], true))
	assert.Equal(t, []*Span{nil, nil}, groups.Get(items[2], true))
}
