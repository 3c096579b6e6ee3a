// Package collab declares the named capability interfaces the core
// consumes from or exposes to external collaborators (spec §6). These
// are interface declarations only: concrete adapters live in
// persistence/, telemetry/, kernelcrypto/, and graphcollab/, and are
// wired only by cmd/kerneld, never imported by the hot-path packages
// (pattern, caseengine, scheduler, snapshot).
package collab

import (
	"context"

	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

// SpecificationProvider produces a normalized in-memory snapshot.Spec
// (Tasks, Conditions, Flows) for the core to validate and insert. The
// core's acceptance contract is the invariants of spec §3; anything
// that can emit a snapshot.Spec satisfies this (Turtle/XML/JSON-LD
// parsers, a graph database query, a CLI flag parser — all external to
// the core).
type SpecificationProvider interface {
	ProvideSpec(ctx context.Context) (snapshot.Spec, error)
}

// PersistenceProvider writes/reads receipts and snapshot bytes durably.
// Atomicity is per-append; storage durability guarantees beyond that
// (fsync, replication) are the provider's concern, not the core's
// (spec §4.6, Non-goals).
type PersistenceProvider interface {
	AppendReceipt(ctx context.Context, r receipt.Receipt) (seq uint64, err error)
	ReadReceiptsSince(ctx context.Context, seq uint64) ([]receipt.Receipt, error)
	SaveSnapshotBytes(ctx context.Context, hash snapshot.Hash, encoded []byte) error
	LoadSnapshotBytes(ctx context.Context, hash snapshot.Hash) ([]byte, error)
}

// TelemetryProvider accepts structured events: one per receipt, one per
// scheduler violation (spec §6).
type TelemetryProvider interface {
	EmitReceipt(ctx context.Context, r receipt.Receipt)
	EmitViolation(ctx context.Context, priority string, ticksUsed, budget uint32)
}

// CryptographyProvider signs and verifies opaque byte payloads —
// snapshot hashes, policy versions, receipts — on behalf of the core,
// which never embeds a concrete crypto suite itself (spec §6).
type CryptographyProvider interface {
	Sign(ctx context.Context, payload []byte, keyRef string) (signature []byte, err error)
	Verify(ctx context.Context, payload, signature []byte, keyRef string) (bool, error)
}

// ConsensusCollaborator is a named but deliberately unimplemented
// interface (spec's Non-goals exclude distributed consensus for
// workflow state): promotion may optionally consult it before
// installing a descriptor. Left nil by default everywhere in this
// repository — see SPEC_FULL.md §7 Supplemented features.
type ConsensusCollaborator interface {
	AgreeOnPromotion(ctx context.Context, hash snapshot.Hash) (bool, error)
}

// GraphCollaborator is the out-of-scope RDF/SPARQL collaborator
// interface; graphcollab.Provider is the one example adapter the
// repository ships, built on cayley.
type GraphCollaborator interface {
	SpecificationProvider
	Close() error
}
