// ABOUTME: Screenshot blob storage with interchangeable disk and badger backends
// ABOUTME: Generates time-ordered ULID keys under the screenshots/ namespace
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no blob exists under a key.
var ErrNotFound = errors.New("screenshot not found")

// KeyPrefix namespaces screenshot keys.
const KeyPrefix = "screenshots/"

// Store persists screenshot bytes by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	io.Closer
}

// Backend names accepted by Open.
const (
	BackendDisk   = "disk"
	BackendBadger = "badger"
)

// Open returns the store for backend rooted at dir.
func Open(backend, dir string, logger *zap.Logger) (Store, error) {
	switch backend {
	case "", BackendDisk:
		return NewDiskStore(dir)
	case BackendBadger:
		return OpenBadger(dir, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewKey returns a fresh key for a screenshot, keeping the lowercased
// extension of filename.
func NewKey(filename string, now time.Time) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), entropy)
	entropyMu.Unlock()
	return KeyPrefix + id.String() + strings.ToLower(path.Ext(filename))
}

// validKey rejects keys that could escape the screenshot namespace.
func validKey(key string) error {
	if !strings.HasPrefix(key, KeyPrefix) || strings.Contains(key, "..") || strings.ContainsAny(key, `\`) {
		return fmt.Errorf("invalid screenshot key %q", key)
	}
	rest := strings.TrimPrefix(key, KeyPrefix)
	if rest == "" || strings.Contains(rest, "/") {
		return fmt.Errorf("invalid screenshot key %q", key)
	}
	return nil
}
