package cellcore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderCall struct {
	pos  Position
	text string
}

// recorder captures every render call in order
type recorder struct {
	calls []renderCall
}

func (r *recorder) Render(pos Position, text string) {
	r.calls = append(r.calls, renderCall{pos: pos, text: text})
}

func (r *recorder) last(pos Position) (string, bool) {
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].pos == pos {
			return r.calls[i].text, true
		}
	}
	return "", false
}

func (r *recorder) reset() {
	r.calls = nil
}

// SheetTestCase drives a sheet through a chain of edits and assertions
type SheetTestCase struct {
	t        *testing.T
	name     string
	sheet    *Sheet
	rendered *recorder
}

func NewSheetTestCase(t *testing.T, name string, opts ...Option) *SheetTestCase {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithRenderer(rec)}, opts...)
	return &SheetTestCase{
		t:        t,
		name:     name,
		sheet:    New(opts...),
		rendered: rec,
	}
}

func (tc *SheetTestCase) Set(address, text string) *SheetTestCase {
	tc.t.Helper()
	require.NoError(tc.t, tc.sheet.SetAddress(address, text), "%s: Set(%s)", tc.name, address)
	return tc
}

func (tc *SheetTestCase) Clear(address string) *SheetTestCase {
	tc.t.Helper()
	require.NoError(tc.t, tc.sheet.Clear(MustParseAddress(address)), "%s: Clear(%s)", tc.name, address)
	return tc
}

func (tc *SheetTestCase) Free(address string) *SheetTestCase {
	tc.t.Helper()
	require.NoError(tc.t, tc.sheet.Free(MustParseAddress(address)), "%s: Free(%s)", tc.name, address)
	return tc
}

// AssertRendered checks the most recent text rendered for address
func (tc *SheetTestCase) AssertRendered(address, expected string) *SheetTestCase {
	tc.t.Helper()
	got, ok := tc.rendered.last(MustParseAddress(address))
	require.True(tc.t, ok, "%s: %s was never rendered", tc.name, address)
	assert.Equal(tc.t, expected, got, "%s: rendered %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertDisplay(address, expected string) *SheetTestCase {
	tc.t.Helper()
	got, err := tc.sheet.Display(MustParseAddress(address))
	require.NoError(tc.t, err)
	assert.Equal(tc.t, expected, got, "%s: display %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertTextual(address, expected string) *SheetTestCase {
	tc.t.Helper()
	got, err := tc.sheet.GetTextualValue(MustParseAddress(address))
	require.NoError(tc.t, err)
	assert.Equal(tc.t, expected, got, "%s: textual %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertKind(address string, expected Kind) *SheetTestCase {
	tc.t.Helper()
	v, err := tc.sheet.Value(MustParseAddress(address))
	require.NoError(tc.t, err)
	got := KindEmpty
	if v != nil {
		got = v.Kind()
	}
	assert.Equal(tc.t, expected, got, "%s: kind of %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertError(address string, code ErrorCode) *SheetTestCase {
	tc.t.Helper()
	v, err := tc.sheet.Value(MustParseAddress(address))
	require.NoError(tc.t, err)
	evalErr, ok := v.(*EvalError)
	require.True(tc.t, ok, "%s: %s holds %v, want error", tc.name, address, v)
	assert.Equal(tc.t, code, evalErr.Code, "%s: error code of %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertDependents(address string, expected ...string) *SheetTestCase {
	tc.t.Helper()
	deps, err := tc.sheet.Dependents(MustParseAddress(address))
	require.NoError(tc.t, err)
	want := make([]Position, 0, len(expected))
	for _, e := range expected {
		want = append(want, MustParseAddress(e))
	}
	assert.ElementsMatch(tc.t, want, deps, "%s: dependents of %s", tc.name, address)
	return tc
}

func TestSet_Literals(t *testing.T) {
	NewSheetTestCase(t, "number literal").
		Set("A1", "5").
		AssertRendered("A1", "5").
		AssertKind("A1", KindNumber).
		AssertTextual("A1", "5")

	NewSheetTestCase(t, "number literal keeps input verbatim").
		Set("A1", "2.50").
		AssertRendered("A1", "2.50").
		AssertDisplay("A1", "2.50")

	NewSheetTestCase(t, "text literal").
		Set("A1", "hello").
		AssertRendered("A1", "hello").
		AssertKind("A1", KindText).
		AssertTextual("A1", "hello")

	NewSheetTestCase(t, "partial number is text").
		Set("A1", "12abc").
		AssertKind("A1", KindText)

	NewSheetTestCase(t, "overwrite replaces variant").
		Set("A1", "hello").
		Set("A1", "7").
		AssertKind("A1", KindNumber).
		AssertRendered("A1", "7")
}

func TestSet_Formulas(t *testing.T) {
	NewSheetTestCase(t, "sum of references").
		Set("A1", "5").
		Set("A2", "3").
		Set("B3", "=A1+A2").
		AssertRendered("B3", "8.0").
		AssertKind("B3", KindNumber).
		AssertTextual("B3", "=A1+A2").
		AssertDependents("A1", "B3").
		AssertDependents("A2", "B3")

	NewSheetTestCase(t, "constants only").
		Set("A1", "=1+2.5").
		AssertRendered("A1", "3.5")

	NewSheetTestCase(t, "empty formula is zero").
		Set("A1", "=").
		AssertRendered("A1", "0.0").
		AssertKind("A1", KindNumber)

	NewSheetTestCase(t, "empty tokens are skipped").
		Set("A1", "=1++2+").
		AssertRendered("A1", "3.0")

	NewSheetTestCase(t, "lowercase reference").
		Set("A1", "4").
		Set("B1", "=a1+1").
		AssertRendered("B1", "5.0")

	NewSheetTestCase(t, "text reference overrides").
		Set("A1", "hello").
		Set("B1", "=A1").
		AssertRendered("B1", "hello").
		AssertKind("B1", KindText).
		AssertTextual("B1", "hello")

	NewSheetTestCase(t, "text concatenation").
		Set("A1", "foo").
		Set("A2", "bar").
		Set("B1", "=A1+A2").
		AssertRendered("B1", "foobar")

	NewSheetTestCase(t, "text plus zero is text").
		Set("A1", "foo").
		Set("A2", "0").
		Set("B1", "=A1+A2").
		AssertRendered("B1", "foo")

	NewSheetTestCase(t, "text plus number is incompatible").
		Set("A1", "hello").
		Set("A2", "3").
		Set("B1", "=A1+A2").
		AssertError("B1", ErrorCodeValue).
		AssertRendered("B1", "ERROR: incompatible types")

	NewSheetTestCase(t, "error reference folds into text").
		Set("A1", "=Z9").
		Set("B1", "=A1").
		AssertError("A1", ErrorCodeRef).
		AssertKind("B1", KindText).
		AssertRendered("B1", "ERROR: invalid cell reference").
		AssertDependents("A1", "B1").
		Set("C1", "=B1+5").
		AssertError("C1", ErrorCodeValue).
		AssertRendered("C1", "ERROR: incompatible types")

	NewSheetTestCase(t, "error reference ends the token pass").
		Set("A1", "=Z9").
		Set("A2", "x").
		Set("B1", "=A2+A1+Q7").
		AssertKind("B1", KindText).
		AssertRendered("B1", "ERROR: invalid cell reference").
		AssertDependents("A2", "B1").
		AssertDependents("A1", "B1")

	NewSheetTestCase(t, "error reference with a constant is incompatible").
		Set("A1", "=Z9").
		Set("B1", "=1+A1").
		AssertError("B1", ErrorCodeValue)
}

func TestSet_InvalidReferences(t *testing.T) {
	tests := []struct {
		name    string
		formula string
	}{
		{name: "missing cell", formula: "=C1"},
		{name: "two letter column", formula: "=AB1"},
		{name: "row zero", formula: "=A0"},
		{name: "trailing garbage", formula: "=A1x"},
		{name: "bare letter", formula: "=A"},
		{name: "not a number", formula: "=1.2.3"},
		{name: "whitespace", formula: "= A1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := NewSheetTestCase(t, tt.name).
				Set("A1", "1").
				Set("B1", tt.formula)
			tc.AssertError("B1", ErrorCodeRef).
				AssertRendered("B1", "ERROR: invalid cell reference")
		})
	}
}

func TestSet_Cycles(t *testing.T) {
	NewSheetTestCase(t, "self reference").
		Set("A1", "=A1").
		AssertError("A1", ErrorCodeCircular).
		AssertRendered("A1", "ERROR: circular dependency").
		AssertDependents("A1")

	NewSheetTestCase(t, "self reference among other tokens").
		Set("A2", "1").
		Set("A1", "=A2+A1").
		AssertError("A1", ErrorCodeCircular)

	// a cycle across cells is only visible while one evaluation is in flight;
	// settled cells are read, so the pair settles instead of looping
	tc := NewSheetTestCase(t, "two cell cycle").
		Set("A1", "=B1").
		AssertError("A1", ErrorCodeRef).
		Set("B1", "=A1").
		AssertKind("B1", KindText).
		AssertRendered("B1", "ERROR: invalid cell reference")

	tc.Set("A1", "5").
		AssertRendered("A1", "5").
		AssertRendered("B1", "5.0")

	tc.rendered.reset()
	tc.Set("A1", "=B1").
		AssertRendered("A1", "5.0").
		AssertRendered("B1", "5.0")
	assert.Len(t, tc.rendered.calls, 2)
}

func TestSet_PropagatesOneHop(t *testing.T) {
	tc := NewSheetTestCase(t, "chain").
		Set("A1", "2").
		Set("B1", "=A1+3").
		Set("C1", "=B1+1").
		AssertRendered("B1", "5.0").
		AssertRendered("C1", "6.0")

	tc.rendered.reset()
	tc.Set("A1", "10").
		AssertRendered("A1", "10").
		AssertRendered("B1", "13.0").
		AssertDisplay("C1", "6.0")

	_, rendered := tc.rendered.last(MustParseAddress("C1"))
	assert.False(t, rendered, "second hop must not be re-rendered")

	// editing the middle of the chain refreshes the next hop
	tc.Set("B1", "=A1+3").
		AssertRendered("C1", "14.0")
}

func TestSet_SettledReferenceIsRead(t *testing.T) {
	tc := NewSheetTestCase(t, "settled").
		Set("A1", "1").
		Set("B1", "=A1").
		Set("C1", "=B1+1").
		AssertRendered("C1", "2.0")

	tc.rendered.reset()
	tc.Set("D1", "=C1").
		AssertRendered("D1", "2.0").
		AssertDependents("C1", "D1").
		AssertDependents("B1", "C1")
	assert.Equal(t, []renderCall{{pos: MustParseAddress("D1"), text: "2.0"}}, tc.rendered.calls)

	// B1 refreshes one hop from A1; C1 keeps its settled value, which is what
	// a new reader sees
	tc.Set("A1", "5").
		AssertRendered("B1", "5.0").
		AssertDisplay("C1", "2.0").
		Set("E1", "=C1").
		AssertRendered("E1", "2.0")
}

func TestSet_RenderCountIsBounded(t *testing.T) {
	tc := NewSheetTestCase(t, "fan-in ladder").
		Set("A1", "1").
		Set("A2", "1")
	for n := 3; n <= 24; n++ {
		tc.Set(fmt.Sprintf("A%d", n), fmt.Sprintf("=A%d+A%d", n-1, n-2))
	}
	tc.AssertRendered("A24", "46368.0")

	tc.rendered.reset()
	tc.Set("B1", "=A24").
		AssertRendered("B1", "46368.0")
	assert.Len(t, tc.rendered.calls, 1)

	// the edited cell plus its only direct dependent, A3
	tc.rendered.reset()
	tc.Set("A1", "2")
	assert.Len(t, tc.rendered.calls, 2)
	tc.AssertRendered("A3", "3.0")
}

func TestSet_IdempotentLinking(t *testing.T) {
	tc := NewSheetTestCase(t, "repeat set").
		Set("A1", "1").
		Set("B1", "=A1+A1")

	for i := 0; i < 5; i++ {
		tc.Set("B1", "=A1+A1")
	}
	tc.AssertRendered("B1", "2.0").
		AssertDependents("A1", "B1")

	for i := 0; i < 3; i++ {
		tc.Set("A1", "1")
	}
	tc.AssertDependents("A1", "B1")
}

func TestSet_StaleEdges(t *testing.T) {
	tc := NewSheetTestCase(t, "formula replaced by literal").
		Set("A1", "1").
		Set("B1", "=A1").
		Set("B1", "hello")

	tc.rendered.reset()
	tc.Set("A1", "2").
		AssertRendered("B1", "hello").
		AssertKind("B1", KindText)

	tc = NewSheetTestCase(t, "dependent freed").
		Set("A1", "1").
		Set("B1", "=A1").
		Free("B1")

	tc.rendered.reset()
	tc.Set("A1", "3").
		AssertDependents("A1")
	_, rendered := tc.rendered.last(MustParseAddress("B1"))
	assert.False(t, rendered)
}

func TestSet_SelfDependentEdge(t *testing.T) {
	tc := NewSheetTestCase(t, "self edge")
	tc.Set("A1", "1")

	pos := MustParseAddress("A1")
	h, ok := tc.sheet.store.findHandle(pos)
	require.True(t, ok)
	link(tc.sheet.store.resolve(h), h)

	tc.Set("A1", "2").
		AssertError("A1", ErrorCodeCircular).
		AssertRendered("A1", "ERROR: circular dependency")
}

func TestSet_OutOfRangeNumbers(t *testing.T) {
	NewSheetTestCase(t, "literal saturates").
		Set("A1", "1e400").
		AssertKind("A1", KindNumber).
		AssertRendered("A1", "1e400").
		AssertTextual("A1", "1e400")

	NewSheetTestCase(t, "formula constant saturates").
		Set("A1", "=1e400").
		AssertKind("A1", KindNumber).
		AssertRendered("A1", "+Inf")
}

func TestClear(t *testing.T) {
	tc := NewSheetTestCase(t, "clear").
		Set("A1", "5").
		Set("B1", "=A1").
		Clear("A1").
		AssertRendered("A1", "").
		AssertKind("A1", KindEmpty).
		AssertTextual("A1", "").
		AssertDependents("A1")

	assert.Equal(t, 2, tc.sheet.Len())

	// no propagation on clear
	tc.AssertRendered("B1", "5.0")

	// dependents re-evaluated against the empty cell see an invalid reference
	tc.Set("B1", "=A1").
		AssertError("B1", ErrorCodeRef)

	// a cleared cell can be set again
	tc.Set("A1", "7").
		AssertRendered("B1", "7.0")
}

func TestFree(t *testing.T) {
	tc := NewSheetTestCase(t, "free").
		Set("A1", "5").
		Free("A1").
		AssertRendered("A1", "")

	assert.Equal(t, 0, tc.sheet.Len())

	_, err := tc.sheet.GetTextualValue(MustParseAddress("A1"))
	assert.ErrorIs(t, err, ErrCellNotFound)

	tc.Set("B1", "=A1").
		AssertError("B1", ErrorCodeRef)

	// the freed slot is reused without reviving old handles
	tc.Set("C1", "1")
	assert.Equal(t, 2, tc.sheet.Len())
}

func TestLookupErrors(t *testing.T) {
	s := New()
	missing := MustParseAddress("Q7")

	_, err := s.GetTextualValue(missing)
	assert.ErrorIs(t, err, ErrCellNotFound)
	assert.ErrorIs(t, s.Clear(missing), ErrCellNotFound)
	assert.ErrorIs(t, s.Free(missing), ErrCellNotFound)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, NotFound, appErr.Code)

	assert.ErrorIs(t, s.Set(Position{Row: -1}, "1"), ErrInvalidAddress)
	assert.ErrorIs(t, s.SetAddress("1A", "1"), ErrInvalidAddress)
}

func TestDestroyAndInit(t *testing.T) {
	rec := &recorder{}
	s := New(WithRenderer(rec))
	require.NoError(t, s.SetAddress("A1", "1"))
	require.NoError(t, s.SetAddress("B1", "=A1"))

	rec.reset()
	s.Destroy()
	assert.Empty(t, rec.calls, "destroy does not render")
	assert.Equal(t, 0, s.Len())

	assert.ErrorIs(t, s.SetAddress("A1", "1"), ErrDestroyed)
	_, err := s.GetTextualValue(MustParseAddress("A1"))
	assert.ErrorIs(t, err, ErrDestroyed)

	s.Destroy()

	s.Init()
	require.NoError(t, s.SetAddress("A1", "2"))
	v, err := s.Value(MustParseAddress("A1"))
	require.NoError(t, err)
	assert.Equal(t, Number(2), v)
	assert.Equal(t, 1, s.Len())
}

func TestRenderFollowsEveryMutation(t *testing.T) {
	rec := &recorder{}
	s := New(WithRenderer(rec))
	pos := MustParseAddress("A1")

	require.NoError(t, s.Set(pos, "1"))
	require.NoError(t, s.Set(pos, "=1+1"))
	require.NoError(t, s.Clear(pos))
	require.NoError(t, s.Free(pos))

	assert.Equal(t, []renderCall{
		{pos: pos, text: "1"},
		{pos: pos, text: "2.0"},
		{pos: pos, text: ""},
		{pos: pos, text: ""},
	}, rec.calls)
}

type countingObserver struct {
	NopObserver
	evaluated int
	rendered  int
	cells     int
}

func (o *countingObserver) CellEvaluated(Position, Value, time.Duration) { o.evaluated++ }
func (o *countingObserver) CellRendered(Position)                        { o.rendered++ }
func (o *countingObserver) CellsChanged(n int)                           { o.cells = n }

func TestObserver(t *testing.T) {
	obs := &countingObserver{}
	s := New(WithObserver(obs))

	require.NoError(t, s.SetAddress("A1", "1"))
	require.NoError(t, s.SetAddress("B1", "=A1+1"))
	require.NoError(t, s.SetAddress("A1", "2"))

	assert.Equal(t, 2, obs.evaluated)
	assert.Equal(t, 4, obs.rendered)
	assert.Equal(t, 2, obs.cells)
}

func TestStatsAndRange(t *testing.T) {
	s := New(WithBuckets(1))
	require.NoError(t, s.SetAddress("A1", "1"))
	require.NoError(t, s.SetAddress("A2", "2"))
	require.NoError(t, s.SetAddress("A3", "=A1+A2"))

	stats := s.Stats()
	assert.Equal(t, Stats{Cells: 3, Buckets: 1, LongestChain: 3, Edges: 2}, stats)

	got := map[string]string{}
	s.Range(func(pos Position, display string) {
		got[pos.String()] = display
	})
	assert.Equal(t, map[string]string{"A1": "1", "A2": "2", "A3": "3.0"}, got)
}
