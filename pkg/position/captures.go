package position

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
)

// Capture is the text and span of one named query capture.
type Capture struct {
	Text  string
	Start sitter.Point
	End   sitter.Point
}

// CaptureSet maps capture names to the capture kept by the fold.
type CaptureSet map[string]Capture

func (c CaptureSet) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// ComparePoints orders points by row, then column.
func ComparePoints(a, b sitter.Point) int {
	switch {
	case a.Row < b.Row:
		return -1
	case a.Row > b.Row:
		return 1
	case a.Column < b.Column:
		return -1
	case a.Column > b.Column:
		return 1
	default:
		return 0
	}
}

// Collect runs q over scope and folds every capture whose start is at or
// before trigger into a set keyed by capture name. Later captures replace
// earlier ones, so the set ends up describing the match closest to (and not
// after) the trigger.
func Collect(q *sitter.Query, scope *sitter.Node, src []byte, trigger sitter.Point) CaptureSet {
	out := CaptureSet{}
	each(q, scope, src, func(name string, c Capture) {
		if ComparePoints(c.Start, trigger) <= 0 {
			out[name] = c
		}
	})
	return out
}

// CollectAll keeps every capture. Keys are suffixed with a running counter
// (name#0, name#1, ...) so repeated captures survive.
func CollectAll(q *sitter.Query, scope *sitter.Node, src []byte) CaptureSet {
	out := CaptureSet{}
	counts := map[string]int{}
	each(q, scope, src, func(name string, c Capture) {
		out[name+"#"+strconv.Itoa(counts[name])] = c
		counts[name]++
	})
	return out
}

// Matches returns one CaptureSet per predicate-passing match, in match order.
func Matches(q *sitter.Query, scope *sitter.Node, src []byte) []CaptureSet {
	var out []CaptureSet
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, scope)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, src)
		if len(m.Captures) == 0 {
			continue
		}
		set := CaptureSet{}
		for _, c := range m.Captures {
			set[q.CaptureNameForId(c.Index)] = newCapture(c.Node, src)
		}
		out = append(out, set)
	}
	return out
}

func each(q *sitter.Query, scope *sitter.Node, src []byte, fn func(name string, c Capture)) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, scope)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			return
		}
		m = qc.FilterPredicates(m, src)
		for _, c := range m.Captures {
			fn(q.CaptureNameForId(c.Index), newCapture(c.Node, src))
		}
	}
}

func newCapture(n *sitter.Node, src []byte) Capture {
	return Capture{
		Text:  n.Content(src),
		Start: n.StartPoint(),
		End:   n.EndPoint(),
	}
}
