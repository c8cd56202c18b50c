package document

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"
)

// Store maps normalized URIs to open buffers.
type Store struct {
	buffers *sync.Map // map[string]*Buffer
}

func NewStore() *Store {
	return &Store{buffers: &sync.Map{}}
}

func (s *Store) Get(uri string) (*Buffer, bool) {
	v, ok := s.buffers.Load(NormalizeURI(uri))
	if !ok {
		return nil, false
	}
	return v.(*Buffer), true
}

// Open installs a fresh buffer, replacing any previous one for uri.
func (s *Store) Open(uri, text string, version int32) *Buffer {
	buf := NewBuffer(NormalizeURI(uri), text, version)
	s.buffers.Store(buf.URI(), buf)
	return buf
}

func (s *Store) Close(uri string) {
	s.buffers.Delete(NormalizeURI(uri))
}

func (s *Store) IsOpen(uri string) bool {
	_, ok := s.buffers.Load(NormalizeURI(uri))
	return ok
}

// Range calls f for every open buffer until f returns false.
func (s *Store) Range(f func(buf *Buffer) bool) {
	s.buffers.Range(func(_, v any) bool {
		return f(v.(*Buffer))
	})
}

// Path returns the file system path of a file URI.
func Path(uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	// some clients send file:/path
	p = strings.TrimPrefix(p, "file:")
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	return filepath.FromSlash(p)
}

// URI returns the file URI of a path.
func URI(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}

// NormalizeURI gives every spelling of a file URI one canonical form.
func NormalizeURI(uri string) string {
	if !strings.HasPrefix(uri, "file:") {
		return uri
	}
	return URI(Path(uri))
}
