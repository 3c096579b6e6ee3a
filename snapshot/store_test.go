package snapshot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpec(authorSuffix string) Spec {
	return Spec{
		Tasks:      []Task{{ID: "t1", PatternID: 1}},
		Conditions: []Condition{{ID: "start", Role: RoleStart}, {ID: "end", Role: RoleEnd}},
		Flows:      []Flow{{Source: "start", Target: "t1"}, {Source: "t1", Target: "end"}},
		Author:     "author-" + authorSuffix,
	}
}

func TestCanonicalHashIsDeterministicAndOrderIndependent(t *testing.T) {
	specA := sampleSpec("x")
	specB := specA
	specB.Tasks = []Task{{ID: "t1", PatternID: 1}} // identical but freshly built

	assert.Equal(t, CanonicalHash(specA), CanonicalHash(specB))
}

func TestCanonicalHashDiffersWhenContentDiffers(t *testing.T) {
	assert.NotEqual(t, CanonicalHash(sampleSpec("x")), CanonicalHash(sampleSpec("y")))
}

func TestInsertRejectsDuplicateContent(t *testing.T) {
	st := NewStore()
	spec := sampleSpec("dup")

	_, err := st.Insert(spec)
	require.NoError(t, err)

	_, err = st.Insert(spec)
	assert.Error(t, err)
}

func TestCurrentBeforeAnyInstallIsNotFound(t *testing.T) {
	st := NewStore()
	_, err := st.Current()
	assert.Error(t, err)
	assert.Equal(t, uint64(0), st.CurrentEpoch())
}

func TestInstallIfEpochSucceedsOnMatchingEpochAndAdvancesIt(t *testing.T) {
	st := NewStore()
	h, err := st.Insert(sampleSpec("a"))
	require.NoError(t, err)

	desc, ok := st.InstallIfEpoch(0, h, &CompiledArtifacts{})
	require.True(t, ok)
	assert.Equal(t, uint64(1), desc.Epoch)
	assert.Equal(t, uint64(1), st.CurrentEpoch())
}

func TestInstallIfEpochFailsOnStaleEpoch(t *testing.T) {
	st := NewStore()
	h1, _ := st.Insert(sampleSpec("a"))
	h2, _ := st.Insert(sampleSpec("b"))

	_, ok := st.InstallIfEpoch(0, h1, &CompiledArtifacts{})
	require.True(t, ok)

	_, ok = st.InstallIfEpoch(0, h2, &CompiledArtifacts{}) // stale: epoch is now 1
	assert.False(t, ok)

	cur, err := st.Current()
	require.NoError(t, err)
	assert.Equal(t, h1, cur.Hash())
}

func TestInstallIfEpochUnderConcurrencyOnlyOneWinnerPerRound(t *testing.T) {
	st := NewStore()
	h1, _ := st.Insert(sampleSpec("a"))
	h2, _ := st.Insert(sampleSpec("b"))

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, results[0] = st.InstallIfEpoch(0, h1, &CompiledArtifacts{}) }()
	go func() { defer wg.Done(); _, results[1] = st.InstallIfEpoch(0, h2, &CompiledArtifacts{}) }()
	wg.Wait()

	assert.NotEqual(t, results[0], results[1], "exactly one concurrent install at the same expected epoch should win")
}

func TestAncestryWalksToGenesis(t *testing.T) {
	st := NewStore()
	genesis := sampleSpec("genesis")
	gh, _ := st.Insert(genesis)

	child := sampleSpec("child")
	child.ParentHash = &gh
	ch, _ := st.Insert(child)

	chain := st.Ancestry(ch)
	require.Len(t, chain, 2)
	assert.Equal(t, ch, chain[0])
	assert.Equal(t, gh, chain[1])
}
