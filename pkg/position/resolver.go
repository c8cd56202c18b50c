package position

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Queries supplies the compiled markup queries; *grammar.Set implements it.
type Queries interface {
	NameQuery() *sitter.Query
	ValueQuery() *sitter.Query
}

const maxAncestorDepth = 512

var boundaryKinds = map[string]bool{
	"element":        true,
	"script_element": true,
	"style_element":  true,
	"fragment":       true,
	"document":       true,
}

// Boundary returns the innermost element-like node around trigger, or nil
// when the climb reaches the root without finding one.
func Boundary(root *sitter.Node, trigger sitter.Point) *sitter.Node {
	if root == nil {
		return nil
	}
	node := root.NamedDescendantForPointRange(trigger, trigger)
	for depth := 0; node != nil && depth < maxAncestorDepth; depth++ {
		if boundaryKinds[node.Type()] {
			return node
		}
		node = node.Parent()
	}
	return nil
}

// Resolve classifies trigger inside the markup tree rooted at root.
func Resolve(root *sitter.Node, src []byte, trigger sitter.Point, mode Mode, q Queries) (SemanticPosition, bool) {
	if q == nil || q.NameQuery() == nil || q.ValueQuery() == nil {
		return SemanticPosition{}, false
	}
	scope := Boundary(root, trigger)
	if scope == nil {
		return SemanticPosition{}, false
	}
	if pos, ok := resolveName(scope, src, trigger, mode, q.NameQuery()); ok {
		return pos, true
	}
	return resolveValue(scope, src, trigger, mode, q.ValueQuery())
}

func resolveName(scope *sitter.Node, src []byte, trigger sitter.Point, mode Mode, q *sitter.Query) (SemanticPosition, bool) {
	props := Collect(q, scope, src, trigger)

	name, ok := props["attr_name"]
	if !ok {
		return SemanticPosition{}, false
	}

	if unfinished, ok := props["unfinished_tag"]; ok {
		switch {
		case mode == Hover:
			if props.Has("complete_match") && ComparePoints(trigger, name.End) <= 0 {
				return NewAttributeName(name.Text), true
			}
			return SemanticPosition{}, false
		case mode == Completion && ComparePoints(trigger, unfinished.End) > 0:
			return NewAttributeName(ContinueName), true
		case mode == Completion && props.Has("equal_error"):
			return SemanticPosition{}, false
		}
	}

	return NewAttributeName(name.Text), true
}

func resolveValue(scope *sitter.Node, src []byte, trigger sitter.Point, mode Mode, q *sitter.Query) (SemanticPosition, bool) {
	props := closestAttribute(q, scope, src, trigger)

	name, ok := props["attr_name"]
	if !ok {
		return SemanticPosition{}, false
	}

	if mode == Hover && ComparePoints(trigger, name.End) <= 0 {
		return NewAttributeName(name.Text), true
	}

	if props.Has("open_quote_error") || props.Has("empty_attribute") {
		if mode == Completion {
			if quoted, ok := props["quoted_attr_value"]; ok && ComparePoints(trigger, quoted.End) >= 0 {
				return SemanticPosition{}, false
			}
		}
		return NewAttributeValue(name.Text, "", nil), true
	}

	if errChar, ok := props["error_char"]; ok && errChar.Text == "=" {
		return SemanticPosition{}, false
	}

	var (
		value string
		def   *DefinitionLocator
	)
	if attr, ok := props["non_empty_attribute"]; ok {
		if ComparePoints(trigger, attr.End) >= 0 {
			return SemanticPosition{}, false
		}
		if mode == Hover || mode == Definition {
			var start uint32
			if v, ok := props["attr_value"]; ok {
				value = v.Text
				start = v.Start.Column
			}
			if mode == Definition {
				def = &DefinitionLocator{Start: start, Point: trigger}
			}
		}
	}

	return NewAttributeValue(name.Text, value, def), true
}

// closestAttribute groups value matches by the attribute they describe and
// returns the merged captures of the attribute starting closest to, and not
// after, trigger. Captures starting past trigger are dropped.
func closestAttribute(q *sitter.Query, scope *sitter.Node, src []byte, trigger sitter.Point) CaptureSet {
	var (
		best      CaptureSet
		bestStart sitter.Point
	)
	for _, m := range Matches(q, scope, src) {
		name, ok := m["attr_name"]
		if !ok || ComparePoints(name.Start, trigger) > 0 {
			continue
		}
		cmp := 1
		if best != nil {
			cmp = ComparePoints(name.Start, bestStart)
		}
		if cmp < 0 {
			continue
		}
		if cmp > 0 {
			best = CaptureSet{}
			bestStart = name.Start
		}
		for k, c := range m {
			if ComparePoints(c.Start, trigger) <= 0 {
				best[k] = c
			}
		}
	}
	return best
}
