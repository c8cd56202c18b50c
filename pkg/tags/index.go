package tags

import (
	"fmt"
	"sort"

	"github.com/walteh/hxlsp/pkg/syntax"
)

// DuplicateError carries a tag whose name was already taken.
type DuplicateError struct {
	Tag      Tag
	Existing Tag
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("tag %q already declared in file %d", e.Tag.Name, e.Existing.File)
}

// Index maps tag names to their single authoritative Tag. It is not
// synchronized.
type Index struct {
	byName map[string]Tag
}

func NewIndex() *Index {
	return &Index{byName: make(map[string]Tag)}
}

// Add inserts t unless its name is taken, in which case the existing binding
// stays and a *DuplicateError is returned.
func (x *Index) Add(t Tag) error {
	if prev, ok := x.byName[t.Name]; ok {
		return &DuplicateError{Tag: t, Existing: prev}
	}
	x.byName[t.Name] = t
	return nil
}

func (x *Index) Get(name string) (Tag, bool) {
	t, ok := x.byName[name]
	return t, ok
}

// DeleteFile drops every tag owned by file.
func (x *Index) DeleteFile(file syntax.FileID) {
	for name, t := range x.byName {
		if t.File == file {
			delete(x.byName, name)
		}
	}
}

// ReplaceFile swaps the tags of file for found, inserting in order. Tags that
// collide are returned.
func (x *Index) ReplaceFile(file syntax.FileID, found []Tag) []Tag {
	x.DeleteFile(file)
	var rejected []Tag
	for _, t := range found {
		t.File = file
		if err := x.Add(t); err != nil {
			rejected = append(rejected, t)
		}
	}
	return rejected
}

func (x *Index) Reset() {
	clear(x.byName)
}

func (x *Index) Len() int {
	return len(x.byName)
}

// All returns every tag ordered by file, then position.
func (x *Index) All() []Tag {
	out := make([]Tag, 0, len(x.byName))
	for _, t := range x.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Start.Row != out[j].Start.Row {
			return out[i].Start.Row < out[j].Start.Row
		}
		return out[i].Start.Column < out[j].Start.Column
	})
	return out
}
