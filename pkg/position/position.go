// Package position classifies a cursor inside markup as a directive
// attribute name or value.
package position

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Mode is the kind of request the resolver answers.
type Mode int

const (
	Hover Mode = iota
	Completion
	Definition
)

func (m Mode) String() string {
	switch m {
	case Hover:
		return "hover"
	case Completion:
		return "completion"
	case Definition:
		return "definition"
	default:
		return "unknown"
	}
}

// Kind tags a SemanticPosition.
type Kind int

const (
	AttributeName Kind = iota
	AttributeValue
)

// ContinueName is returned in place of an attribute name when the cursor has
// moved past a fully typed attribute.
const ContinueName = "--"

// DefinitionLocator lets a caller map the trigger column back onto one token
// of a multi-token value.
type DefinitionLocator struct {
	// Start is the column where the value text begins.
	Start uint32
	Point sitter.Point
}

type SemanticPosition struct {
	Kind       Kind
	Name       string
	Value      string
	Definition *DefinitionLocator
}

func NewAttributeName(name string) SemanticPosition {
	return SemanticPosition{Kind: AttributeName, Name: name}
}

func NewAttributeValue(name, value string, def *DefinitionLocator) SemanticPosition {
	return SemanticPosition{Kind: AttributeValue, Name: name, Value: value, Definition: def}
}

func (p SemanticPosition) String() string {
	if p.Kind == AttributeName {
		return fmt.Sprintf("AttributeName(%s)", p.Name)
	}
	return fmt.Sprintf("AttributeValue{%s, %q}", p.Name, p.Value)
}
