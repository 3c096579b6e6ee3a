package promotion

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/chatman-systems/workflowkernel/collab"
	"github.com/chatman-systems/workflowkernel/doctrine"
	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/kernellog"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

// Pipeline gates candidate -> active snapshot transitions (spec §4.2).
type Pipeline struct {
	store     *snapshot.Store
	doctrine  doctrine.Doctrine
	log       *receipt.Log
	signer    collab.CryptographyProvider // optional; nil means unsigned receipts
	consensus collab.ConsensusCollaborator // optional; nil by default (Non-goal)
	logger    *kernellog.ContextLogger

	mu sync.Mutex // serializes the validate-then-install window per promotion
}

func New(store *snapshot.Store, d doctrine.Doctrine, log *receipt.Log, logger *kernellog.ContextLogger) *Pipeline {
	return &Pipeline{store: store, doctrine: d, log: log, logger: logger}
}

// WithSigner attaches a CryptographyProvider used to sign the
// snapshot-promoted receipt's subject hash.
func (p *Pipeline) WithSigner(s collab.CryptographyProvider) *Pipeline {
	p.signer = s
	return p
}

// WithConsensus attaches an optional ConsensusCollaborator promote may
// consult before installing. Left nil by default (spec's Non-goals).
func (p *Pipeline) WithConsensus(c collab.ConsensusCollaborator) *Pipeline {
	p.consensus = c
	return p
}

// Promote validates the candidate snapshot referenced by hash and, on
// success, atomically installs it as active (spec §4.2). A failed check
// returns that check's error unchanged; DynamicCheck fails with
// KindStructure like the static checks, so no check failure is
// retriable. It returns Superseded when a concurrent promotion won the
// race.
func (p *Pipeline) Promote(hash snapshot.Hash) error {
	snap, err := p.store.Get(hash)
	if err != nil {
		return err
	}

	// Promotion idempotence (spec §8): promoting the already-active
	// snapshot is a no-op that emits no receipt.
	if active, aerr := p.store.Current(); aerr == nil && active.Hash() == hash {
		return nil
	}

	expectedEpoch := p.store.CurrentEpoch()

	spec := snap.Spec()
	if err := Validate(spec, p.doctrine); err != nil {
		if p.logger != nil {
			p.logger.WithField("hash", hex.EncodeToString(hash[:])).WithError(err).Warn("promotion validation failed")
		}
		return err
	}

	ctx := context.Background()

	if p.consensus != nil {
		ok, cerr := p.consensus.AgreeOnPromotion(ctx, hash)
		if cerr != nil {
			return kernelerrors.Wrap(kernelerrors.KindExternal, hex.EncodeToString(hash[:]), "consensus collaborator failed", cerr)
		}
		if !ok {
			return kernelerrors.New(kernelerrors.KindPreconditionNotMet, hex.EncodeToString(hash[:]), "consensus collaborator declined promotion")
		}
	}

	artifacts := &snapshot.CompiledArtifacts{ORJoinCanFire: ComputeORJoinCache(spec)}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.store.InstallIfEpoch(expectedEpoch, hash, artifacts); !ok {
		return kernelerrors.ErrSuperseded
	}

	var sig []byte
	if p.signer != nil {
		sig, _ = p.signer.Sign(ctx, hash[:], "snapshot")
	}
	p.log.Append(receipt.Receipt{
		Kind:      receipt.KindSnapshotPromoted,
		Subject:   hex.EncodeToString(hash[:]),
		Outcome:   "success",
		Signature: sig,
	})
	return nil
}
