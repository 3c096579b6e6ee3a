package receipt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ err error }

func (f failingSink) Append(Receipt) error { return f.err }

func TestAppendAssignsMonotonicSeq(t *testing.T) {
	l := NewLog()
	seq1, err := l.Append(Receipt{Kind: KindCaseCreated, Subject: "c1"})
	require.NoError(t, err)
	seq2, err := l.Append(Receipt{Kind: KindCaseCreated, Subject: "c2"})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), seq1)
	assert.Equal(t, uint64(2), seq2)
}

func TestReadSinceReturnsOnlyNewer(t *testing.T) {
	l := NewLog()
	l.Append(Receipt{Kind: KindCaseCreated, Subject: "c1"})
	l.Append(Receipt{Kind: KindCaseCreated, Subject: "c2"})
	l.Append(Receipt{Kind: KindCaseCreated, Subject: "c3"})

	got := l.ReadSince(1)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].Subject)
	assert.Equal(t, "c3", got[1].Subject)
}

func TestAppendForwardsToSinksButNeverBlocksOnFailure(t *testing.T) {
	l := NewLog()
	l.AttachSink(failingSink{err: errors.New("sink down")})

	seq, err := l.Append(Receipt{Kind: KindCaseCreated, Subject: "c1"})
	assert.Equal(t, uint64(1), seq)
	assert.Error(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestRetractReferencesOriginalBySeq(t *testing.T) {
	l := NewLog()
	seq, _ := l.Append(Receipt{Kind: KindSnapshotPromoted, Subject: "abc"})

	retractSeq, err := l.Retract(seq, KindSnapshotPromoted, "abc", "superseded")
	require.NoError(t, err)

	all := l.ReadSince(0)
	require.Len(t, all, 2)
	retraction := all[1]
	assert.Equal(t, retractSeq, retraction.Seq)
	assert.Equal(t, seq, retraction.ParentID)
	assert.True(t, retraction.IsRetraction())
	assert.False(t, all[0].IsRetraction())
}

func TestRetractUnknownSeqFails(t *testing.T) {
	l := NewLog()
	_, err := l.Retract(999, KindSnapshotPromoted, "abc", "nope")
	assert.Error(t, err)
}
