// Package htmx holds the read-only dictionary of directive attributes and
// their documented values.
package htmx

import (
	_ "embed"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

//go:embed directives.yaml
var directivesYAML []byte

// Entry is one documented attribute or value.
type Entry struct {
	Name string `yaml:"name"`
	Desc string `yaml:"desc"`
}

type document struct {
	Prefix     string             `yaml:"prefix"`
	Attributes []Entry            `yaml:"attributes"`
	Values     map[string][]Entry `yaml:"values"`
}

// Dictionary is built once and shared by reference; it is never mutated
// after Load.
type Dictionary struct {
	prefix     string
	attributes []Entry
	byName     map[string]Entry
	values     map[string][]Entry
}

// Load parses the embedded dictionary.
func Load() (*Dictionary, error) {
	return Parse(directivesYAML)
}

// Parse builds a dictionary from YAML.
func Parse(data []byte) (*Dictionary, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Errorf("decoding directive dictionary: %w", err)
	}
	if doc.Prefix == "" {
		return nil, errors.New("directive dictionary has no prefix")
	}

	d := &Dictionary{
		prefix:     doc.Prefix,
		attributes: doc.Attributes,
		byName:     make(map[string]Entry, len(doc.Attributes)),
		values:     doc.Values,
	}
	for _, a := range doc.Attributes {
		if _, dup := d.byName[a.Name]; dup {
			return nil, errors.Errorf("attribute %q listed twice", a.Name)
		}
		d.byName[a.Name] = a
	}
	return d, nil
}

func (d *Dictionary) Prefix() string {
	return d.prefix
}

// Attributes lists attribute names without the prefix, in dictionary order.
func (d *Dictionary) Attributes() []Entry {
	return d.attributes
}

// Attribute looks up a full attribute name such as hx-get.
func (d *Dictionary) Attribute(name string) (Entry, bool) {
	if !strings.HasPrefix(name, d.prefix) {
		return Entry{}, false
	}
	e, ok := d.byName[strings.TrimPrefix(name, d.prefix)]
	return e, ok
}

// ValuesFor lists the documented values of a full attribute name.
func (d *Dictionary) ValuesFor(name string) []Entry {
	return d.values[name]
}

// Value looks up one documented value of an attribute.
func (d *Dictionary) Value(name, value string) (Entry, bool) {
	for _, e := range d.values[name] {
		if e.Name == value {
			return e, true
		}
	}
	return Entry{}, false
}
