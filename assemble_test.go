package blobpack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/blobpack/internal/testutil"
)

func TestAssembleEndToEnd(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	first := patternBytes(10, 1)
	third := patternBytes(5, 100)
	placements := []Placement{
		{Name: "first", Offset: 0, Buffer: pool.FromBytes(first)},
		{Name: "empty", Offset: 10, Buffer: pool.Get(0)},
		{Name: "third", Offset: 10, Buffer: pool.FromBytes(third)},
	}

	out := testutil.NewMemTarget()
	stats, err := NewAssembler(WithWorkers(3)).Assemble(context.Background(), out, placements)
	require.NoError(t, err)
	assert.Equal(t, AssembleStats{Blocks: 3, Bytes: 15, End: 15}, stats)

	got := out.Bytes()
	require.Len(t, got, 15)
	assert.Equal(t, first, got[:10])
	assert.Equal(t, third, got[10:15])
	assert.Zero(t, pool.Outstanding())
}

func TestAssembleMatchesSequential(t *testing.T) {
	t.Parallel()

	const blocks = 200
	rng := rand.New(rand.NewPCG(1, 2))
	payloads := make([][]byte, blocks)
	for i := range payloads {
		payloads[i] = patternBytes(rng.IntN(4096), byte(i))
	}

	build := func(pool *Pool) []Placement {
		bs := make([]Block, blocks)
		for i, p := range payloads {
			bs[i] = Block{Name: fmt.Sprintf("b%03d", i), Buffer: pool.FromBytes(p)}
		}
		placements, _, err := PlanContiguous(0, bs)
		require.NoError(t, err)
		return placements
	}

	seqPool := NewPool()
	seqOut := testutil.NewMemTarget()
	seq := build(seqPool)
	rng.Shuffle(len(seq), func(i, j int) { seq[i], seq[j] = seq[j], seq[i] })
	for _, p := range seq {
		_, err := Deposit(context.Background(), seqOut, p.Offset, p.Buffer)
		require.NoError(t, err)
	}

	concPool := NewPool()
	concOut := testutil.ChunkedTarget(97)
	var events int
	var mu sync.Mutex
	asm := NewAssembler(WithWorkers(16), WithProgress(func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events++
		assert.Equal(t, StageWriting, ev.Stage)
		assert.Equal(t, blocks, ev.BlocksTotal)
	}))
	stats, err := asm.Assemble(context.Background(), concOut, build(concPool))
	require.NoError(t, err)

	assert.Equal(t, blocks, stats.Blocks)
	assert.Equal(t, blocks, events)
	assert.True(t, bytes.Equal(seqOut.Bytes(), concOut.Bytes()), "concurrent output must match sequential output")
	assert.Zero(t, seqPool.Outstanding())
	assert.Zero(t, concPool.Outstanding())
}

func TestAssembleFailureReleasesEverything(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	var placements []Placement
	for i := range 50 {
		placements = append(placements, Placement{
			Name:   fmt.Sprintf("b%02d", i),
			Offset: int64(i * 100),
			Buffer: pool.FromBytes(patternBytes(100, byte(i))),
		})
	}

	out := testutil.ExhaustingTarget(64, 1000)
	stats, err := NewAssembler(WithWorkers(4)).Assemble(context.Background(), out, placements)
	require.ErrorIs(t, err, ErrUnexpectedEndOfTarget)
	assert.Less(t, stats.Blocks, 50)
	assert.Zero(t, pool.Outstanding(), "every buffer must be released after a failed assembly")
	for _, p := range placements {
		assert.Equal(t, 0, p.Buffer.Refs(), p.Name)
	}
}

func TestAssembleCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool()
	placements := []Placement{
		{Name: "a", Offset: 0, Buffer: pool.FromBytes([]byte("aaaa"))},
		{Name: "b", Offset: 4, Buffer: pool.FromBytes([]byte("bbbb"))},
	}
	out := testutil.NewMemTarget()
	_, err := NewAssembler().Assemble(ctx, out, placements)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Calls())
	assert.Zero(t, pool.Outstanding())
}

func TestAssembleSerial(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	placements := []Placement{
		{Name: "b", Offset: 3, Buffer: pool.FromBytes([]byte("def"))},
		{Name: "a", Offset: 0, Buffer: pool.FromBytes([]byte("abc"))},
	}
	out := testutil.NewMemTarget()
	stats, err := NewAssembler(WithWorkers(-1)).Assemble(context.Background(), out, placements)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.End)
	assert.Equal(t, "abcdef", string(out.Bytes()))
}

func TestAssembleNilBuffer(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	placements := []Placement{
		{Name: "ok", Offset: 0, Buffer: pool.FromBytes([]byte("ok"))},
		{Name: "missing", Offset: 2},
	}
	_, err := NewAssembler(WithWorkers(1)).Assemble(context.Background(), testutil.NewMemTarget(), placements)
	require.ErrorIs(t, err, ErrReleased)
	assert.Zero(t, pool.Outstanding())
}

func TestAssembleWriteOptions(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	out := testutil.NewScriptedTarget()
	out.Default = func(int, int) testutil.Step { return testutil.Step{N: 0} }

	placements := []Placement{{Name: "stuck", Offset: 0, Buffer: pool.FromBytes([]byte("x"))}}
	_, err := NewAssembler(WithWriteOptions(WithMaxStalls(2))).Assemble(context.Background(), out, placements)
	require.ErrorIs(t, err, ErrNoProgress)
	assert.Equal(t, 3, out.Attempts())
	assert.Zero(t, pool.Outstanding())
}

func TestAssembleWorkerCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, NewAssembler(WithWorkers(-1)).workerCount(10))
	assert.Equal(t, 4, NewAssembler(WithWorkers(4)).workerCount(10))
	assert.Equal(t, 2, NewAssembler(WithWorkers(8)).workerCount(2))
	assert.Equal(t, 1, NewAssembler(WithWorkers(8)).workerCount(0))
	assert.GreaterOrEqual(t, NewAssembler().workerCount(1000), 1)
}

func TestAssembleErrorNamesBlock(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	pool := NewPool()
	out := testutil.NewScriptedTarget(testutil.Step{Err: boom})
	placements := []Placement{{Name: "victim", Offset: 8, Buffer: pool.FromBytes([]byte("x"))}}

	_, err := NewAssembler().Assemble(context.Background(), out, placements)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "victim")
	assert.Contains(t, err.Error(), "offset 8")
}
