// Package vouchers abstracts the external object store that holds deposit
// proof images. The ledger only ever sees opaque references and signed URLs.
package vouchers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrObjectNotFound indicates the reference does not resolve to a stored object.
var ErrObjectNotFound = errors.New("voucher object not found")

// Storage is the upload and signed-URL-retrieval capability consumed by the
// ledger and the report builder.
type Storage interface {
	// Upload stores the object bytes under key and returns the reference to
	// persist on the deposit row.
	Upload(ctx context.Context, key string, data []byte) (string, error)
	// SignedURL resolves a stored reference to a time-limited URL.
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// Memory is an in-process Storage used in tests and single-node deployments.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	now     func() time.Time

	uploadErr error
	signErr   error
}

// NewMemory instantiates an empty in-memory object store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		now:     time.Now,
	}
}

// WithUploadError forces subsequent uploads to fail, for exercising the
// upload-before-insert ordering in tests.
func (m *Memory) WithUploadError(err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErr = err
	return m
}

// WithSignError forces subsequent SignedURL calls to fail.
func (m *Memory) WithSignError(err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signErr = err
	return m
}

func (m *Memory) Upload(_ context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	return key, nil
}

func (m *Memory) SignedURL(_ context.Context, ref string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signErr != nil {
		return "", m.signErr
	}
	if _, ok := m.objects[ref]; !ok {
		return "", ErrObjectNotFound
	}
	expires := m.now().Add(ttl).Unix()
	return fmt.Sprintf("memory://%s?expires=%d", ref, expires), nil
}

// Object returns the stored bytes for a reference, used by tests.
func (m *Memory) Object(ref string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[ref]
	return data, ok
}
