package config_test

import (
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/hxlsp/pkg/config"
	"github.com/walteh/hxlsp/pkg/grammar"
)

func TestDecode(t *testing.T) {
	cfg, err := config.Decode(json.RawMessage(`{
		"lang": "rust",
		"template_ext": "html",
		"templates": ["templates"],
		"js_tags": ["static/js"],
		"backend_tags": ["src"],
		"exclude": ["**/node_modules/**"]
	}`))
	require.NoError(t, err)
	assert.Equal(t, &config.Config{
		Lang:        "rust",
		TemplateExt: "html",
		Templates:   []string{"templates"},
		JSTags:      []string{"static/js"},
		BackendTags: []string{"src"},
		Exclude:     []string{"**/node_modules/**"},
	}, cfg)
	require.NoError(t, cfg.Validate())

	_, err = config.Decode(nil)
	require.ErrorIs(t, err, config.ErrNotFound)
	_, err = config.Decode(json.RawMessage(`null`))
	require.ErrorIs(t, err, config.ErrNotFound)
	_, err = config.Decode(json.RawMessage(`{"lang": 3}`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantErrs int
	}{
		{name: "valid", cfg: config.Config{Lang: "python", TemplateExt: "html"}},
		{name: "unsupported lang", cfg: config.Config{Lang: "ruby", TemplateExt: "html"}, wantErrs: 1},
		{name: "empty ext", cfg: config.Config{Lang: "go"}, wantErrs: 1},
		{name: "ext with space", cfg: config.Config{Lang: "go", TemplateExt: "ht ml"}, wantErrs: 1},
		{name: "bad glob", cfg: config.Config{Lang: "go", TemplateExt: "html", Exclude: []string{"[a"}}, wantErrs: 1},
		{name: "everything wrong", cfg: config.Config{Lang: "", TemplateExt: "", Exclude: []string{"[a"}}, wantErrs: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErrs == 0 {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, config.ErrInvalid)
			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			assert.Len(t, merr.Errors, tt.wantErrs)
		})
	}
}

func TestClassify(t *testing.T) {
	cfg := &config.Config{Lang: "rust", TemplateExt: "html"}

	tests := []struct {
		path   string
		want   grammar.Language
		wantOk bool
	}{
		{path: "/app/templates/index.html", want: grammar.Markup, wantOk: true},
		{path: "/app/static/main.js", want: grammar.Script, wantOk: true},
		{path: "/app/static/main.ts", want: grammar.Script, wantOk: true},
		{path: "/app/src/main.rs", want: grammar.Backend, wantOk: true},
		{path: "/app/src/main.py"},
		{path: "/app/Makefile"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := cfg.Classify(tt.path)
			require.Equal(t, tt.wantOk, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExcludedAndDirs(t *testing.T) {
	cfg := &config.Config{
		Root:      "/app",
		Templates: []string{"templates", "/abs/views"},
		Exclude:   []string{"**/vendor/**", "templates/draft_*.html"},
	}

	assert.True(t, cfg.Excluded("/app/templates/draft_1.html"))
	assert.True(t, cfg.Excluded("/app/src/vendor/x/y.rs"))
	assert.False(t, cfg.Excluded("/app/templates/index.html"))

	assert.Equal(t, []string{"/app/templates", "/abs/views"}, cfg.Dirs(grammar.Markup))
	assert.Empty(t, cfg.Dirs(grammar.Script))
}
