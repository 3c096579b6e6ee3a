package snapshot

// CompiledArtifacts holds promotion-time precomputed structures for the
// active snapshot: the OR-join dead-path-elimination cache (see
// promotion/orjoin.go) and any other per-snapshot derived data the hot
// path wants O(1) access to. It is referenced by the descriptor, not
// embedded in it, so the descriptor itself stays cache-line sized.
type CompiledArtifacts struct {
	// ORJoinCanFire[joinTaskID][conditionOrTaskID] is true when a token
	// resident at that element can still reach the join.
	ORJoinCanFire map[string]map[string]bool
}

// Descriptor is the 64-byte, cache-line-aligned record published
// atomically to change the active snapshot (spec §4.1, §6): 32-byte
// hash, 8-byte artifact pointer, 8-byte epoch, 16-byte padding.
type Descriptor struct {
	Hash      Hash               // 32 bytes
	Artifacts *CompiledArtifacts // 8 bytes (pointer width on amd64/arm64)
	Epoch     uint64             // 8 bytes
	_         [16]byte           // padding out to 64 bytes
}
