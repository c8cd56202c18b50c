package grammar

import (
	"embed"

	sitter "github.com/smacker/go-tree-sitter"
	"gitlab.com/tozd/go/errors"
)

//go:embed queries/*.scm
var queryFS embed.FS

func compile(file string, lang *sitter.Language) (*sitter.Query, error) {
	src, err := queryFS.ReadFile("queries/" + file)
	if err != nil {
		return nil, errors.Errorf("reading query %s: %w", file, err)
	}
	q, err := sitter.NewQuery(src, lang)
	if err != nil {
		return nil, errors.Errorf("compiling query %s: %w", file, err)
	}
	return q, nil
}
