package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
)

// Store holds the set of known Snapshots and exposes exactly one active
// snapshot through a lock-free atomic descriptor. Reads never block
// writers (spec §4.1).
type Store struct {
	descriptor atomic.Pointer[Descriptor]

	mu        sync.RWMutex
	snapshots map[Hash]*Snapshot
}

func NewStore() *Store {
	return &Store{snapshots: make(map[Hash]*Snapshot)}
}

// Insert stores a new candidate snapshot, returning its hash. It never
// mutates the active descriptor.
func (st *Store) Insert(spec Spec) (Hash, error) {
	h := CanonicalHash(spec)

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.snapshots[h]; exists {
		return h, kernelerrors.ErrDuplicateSnapshot
	}

	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = time.Now()
	}

	snap := &Snapshot{hash: h, spec: spec, createdAt: spec.CreatedAt, parentHash: spec.ParentHash}
	st.snapshots[h] = snap
	return h, nil
}

// Get returns the snapshot referenced by hash.
func (st *Store) Get(h Hash) (*Snapshot, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	snap, ok := st.snapshots[h]
	if !ok {
		return nil, kernelerrors.ErrSnapshotNotFound
	}
	return snap, nil
}

// Current returns the currently active snapshot (≤3 ticks in the steady
// state: one atomic load plus one map lookup under a read lock that is
// never held by a writer for more than the pointer swap itself).
func (st *Store) Current() (*Snapshot, error) {
	d := st.descriptor.Load()
	if d == nil {
		return nil, kernelerrors.ErrSnapshotNotFound
	}
	return st.Get(d.Hash)
}

// CurrentDescriptor returns the raw active descriptor, or nil if no
// snapshot has ever been promoted.
func (st *Store) CurrentDescriptor() *Descriptor {
	return st.descriptor.Load()
}

// CurrentEpoch exposes the descriptor's generation counter so callers can
// detect "the active snapshot changed under me" without re-reading the
// whole descriptor (see SPEC_FULL.md §7 Supplemented features).
func (st *Store) CurrentEpoch() uint64 {
	d := st.descriptor.Load()
	if d == nil {
		return 0
	}
	return d.Epoch
}

// installDescriptor atomically publishes a new descriptor without an
// epoch check. Its only caller is Install; the Promotion Pipeline
// publishes through InstallIfEpoch instead.
func (st *Store) installDescriptor(h Hash, artifacts *CompiledArtifacts) *Descriptor {
	prev := st.descriptor.Load()
	var epoch uint64
	if prev != nil {
		epoch = prev.Epoch + 1
	}
	next := &Descriptor{Hash: h, Artifacts: artifacts, Epoch: epoch}
	st.descriptor.Store(next)
	return next
}

// ListSnapshots returns every known snapshot hash, newest-insert-order
// not guaranteed (see SPEC_FULL.md §5.1).
func (st *Store) ListSnapshots() []Hash {
	st.mu.RLock()
	defer st.mu.RUnlock()

	hashes := make([]Hash, 0, len(st.snapshots))
	for h := range st.snapshots {
		hashes = append(hashes, h)
	}
	return hashes
}

// Ancestry walks ParentHash back to genesis.
func (st *Store) Ancestry(h Hash) []Hash {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var chain []Hash
	cur, ok := st.snapshots[h]
	for ok {
		chain = append(chain, cur.hash)
		if cur.parentHash == nil {
			break
		}
		cur, ok = st.snapshots[*cur.parentHash]
	}
	return chain
}

// Installer is the narrow exported seam for publishing a new descriptor
// unconditionally; Store implements it through Install, which wraps the
// private installDescriptor primitive.
type Installer interface {
	Install(h Hash, artifacts *CompiledArtifacts) *Descriptor
}

func (st *Store) Install(h Hash, artifacts *CompiledArtifacts) *Descriptor {
	return st.installDescriptor(h, artifacts)
}

// InstallIfEpoch atomically installs a new descriptor only if the
// currently active descriptor's epoch still equals expectedEpoch,
// giving the Promotion Pipeline a compare-and-swap seam for the race in
// spec §4.2: a promotion that validated against a stale epoch loses the
// race and must report Superseded rather than silently overwrite a
// newer install.
func (st *Store) InstallIfEpoch(expectedEpoch uint64, h Hash, artifacts *CompiledArtifacts) (*Descriptor, bool) {
	prev := st.descriptor.Load()
	var curEpoch uint64
	if prev != nil {
		curEpoch = prev.Epoch
	}
	if curEpoch != expectedEpoch {
		return prev, false
	}
	next := &Descriptor{Hash: h, Artifacts: artifacts, Epoch: curEpoch + 1}
	if !st.descriptor.CompareAndSwap(prev, next) {
		return st.descriptor.Load(), false
	}
	return next, true
}
