// Package blobstore keeps captured images in memory behind transient
// references, the way a browser hands out object URLs for blobs.
package blobstore

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RefPrefix marks every reference handed out by a Store.
const RefPrefix = "blob:"

// Ref is a transient handle to a stored blob.
type Ref string

// Blob is an immutable byte payload with its MIME type.
type Blob struct {
	Data      []byte
	MIMEType  string
	CreatedAt time.Time
}

type Store struct {
	blobs map[Ref]*Blob
	mu    sync.RWMutex
}

func New() *Store {
	return &Store{
		blobs: make(map[Ref]*Blob),
	}
}

// Create stores a copy of data and returns a fresh reference to it.
// References are never reused.
func (s *Store) Create(data []byte, mimeType string) Ref {
	buf := make([]byte, len(data))
	copy(buf, data)

	ref := Ref(RefPrefix + uuid.NewString())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = &Blob{Data: buf, MIMEType: mimeType, CreatedAt: time.Now()}
	return ref
}

func (s *Store) Get(ref Ref) (*Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, exists := s.blobs[ref]
	return blob, exists
}

// Revoke releases the blob behind ref. Revoking an unknown ref is a no-op.
func (s *Store) Revoke(ref Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// ID strips the prefix, for use in URL paths.
func (r Ref) ID() string {
	return strings.TrimPrefix(string(r), RefPrefix)
}

// ParseRef turns a path ID back into a reference.
func ParseRef(id string) Ref {
	if strings.HasPrefix(id, RefPrefix) {
		return Ref(id)
	}
	return Ref(RefPrefix + id)
}
