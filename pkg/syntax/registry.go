// Package syntax keeps the per-file concrete syntax trees of a workspace.
package syntax

import "sort"

// FileID identifies a file URI for the lifetime of a session.
type FileID uint32

// Registry assigns FileIDs to URIs. Ids are never reused, a Reset keeps the
// counter running.
type Registry struct {
	next FileID
	ids  map[string]FileID
	uris map[FileID]string
}

func NewRegistry() *Registry {
	return &Registry{
		ids:  make(map[string]FileID),
		uris: make(map[FileID]string),
	}
}

// Register returns the id of uri, allocating one on first sight.
func (r *Registry) Register(uri string) FileID {
	if id, ok := r.ids[uri]; ok {
		return id
	}
	id := r.next
	r.next++
	r.ids[uri] = id
	r.uris[id] = uri
	return id
}

func (r *Registry) Lookup(uri string) (FileID, bool) {
	id, ok := r.ids[uri]
	return id, ok
}

func (r *Registry) URI(id FileID) (string, bool) {
	uri, ok := r.uris[id]
	return uri, ok
}

// Forget drops a single uri. Its id is not handed out again.
func (r *Registry) Forget(uri string) {
	if id, ok := r.ids[uri]; ok {
		delete(r.uris, id)
		delete(r.ids, uri)
	}
}

func (r *Registry) Reset() {
	r.ids = make(map[string]FileID)
	r.uris = make(map[FileID]string)
}

func (r *Registry) Len() int {
	return len(r.ids)
}

// URIs returns every registered uri ordered by id.
func (r *Registry) URIs() []string {
	ids := make([]FileID, 0, len(r.uris))
	for id := range r.uris {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = r.uris[id]
	}
	return out
}
