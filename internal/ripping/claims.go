package ripping

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

var errDestinationClaimed = errors.New("destination is already being imported")

// claimRegistry hands out exclusive claims on destination paths. Claims are
// tracked in memory for this process and, when lockDir is set, backed by a
// lock file so concurrent cdmedia processes cannot target the same path.
type claimRegistry struct {
	mu      sync.Mutex
	lockDir string
	active  map[string]struct{}
}

func newClaimRegistry(lockDir string) *claimRegistry {
	return &claimRegistry{lockDir: lockDir, active: make(map[string]struct{})}
}

type claim struct {
	registry *claimRegistry
	dest     string
	lock     *flock.Flock
	once     sync.Once
}

func (r *claimRegistry) acquire(dest string) (*claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[dest]; busy {
		return nil, errDestinationClaimed
	}
	c := &claim{registry: r, dest: dest}
	if r.lockDir != "" {
		if err := os.MkdirAll(r.lockDir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
		c.lock = flock.New(lockPathFor(r.lockDir, dest))
		ok, err := c.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire destination lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w by another process", errDestinationClaimed)
		}
	}
	r.active[dest] = struct{}{}
	return c, nil
}

func (r *claimRegistry) held(dest string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.active[dest]
	return busy
}

// release drops the claim. It is safe to call more than once.
func (c *claim) release() error {
	var err error
	c.once.Do(func() {
		c.registry.mu.Lock()
		defer c.registry.mu.Unlock()
		if c.lock != nil {
			err = c.lock.Unlock()
		}
		delete(c.registry.active, c.dest)
	})
	return err
}

func lockPathFor(lockDir, dest string) string {
	sum := sha256.Sum256([]byte(dest))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")
}
