package blobpack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTargetWriteAt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.bin")
	target, err := CreateTarget(path, 0)
	require.NoError(t, err)

	n, err := target.WriteAt([]byte("world"), 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = target.WriteAt([]byte("hello "), 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	require.NoError(t, target.Sync())
	require.NoError(t, target.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestFileTargetBounded(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.bin")
	target, err := CreateTarget(path, 8)
	require.NoError(t, err)
	defer target.Close()
	assert.Equal(t, int64(8), target.Size())
	assert.Equal(t, path, target.Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size(), "target must be preallocated")

	n, err := target.WriteAt([]byte("0123456789"), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "write crossing the bound is cut")

	n, err = target.WriteAt([]byte("x"), 8)
	require.ErrorIs(t, err, ErrUnexpectedEndOfTarget)
	assert.Zero(t, n)

	_, err = target.WriteAt([]byte("x"), -1)
	require.ErrorIs(t, err, ErrNegativeOffset)
}

func TestFileTargetWriteFullyPastBound(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.bin")
	target, err := CreateTarget(path, 12)
	require.NoError(t, err)
	defer target.Close()

	pool := NewPool()
	end, err := Deposit(context.Background(), target, 8, pool.FromBytes([]byte("abcdefgh")))
	require.ErrorIs(t, err, ErrUnexpectedEndOfTarget)
	assert.Equal(t, int64(12), end)
	assert.Zero(t, pool.Outstanding())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(got[8:]))
}

func TestFileTargetConcurrentAssemble(t *testing.T) {
	t.Parallel()

	const blocks = 64
	pool := NewPool()
	bs := make([]Block, blocks)
	var want []byte
	for i := range bs {
		p := patternBytes(1000+i*37, byte(i))
		want = append(want, p...)
		bs[i] = Block{Name: fmt.Sprintf("b%02d", i), Buffer: pool.FromBytes(p)}
	}
	placements, size, err := PlanContiguous(0, bs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "archive.bin")
	target, err := CreateTarget(path, size)
	require.NoError(t, err)

	stats, err := NewAssembler(WithWorkers(8)).Assemble(context.Background(), target, placements)
	require.NoError(t, err)
	require.NoError(t, target.Close())
	assert.Equal(t, size, stats.End)
	assert.Zero(t, pool.Outstanding())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCreateTargetNegativeSize(t *testing.T) {
	t.Parallel()

	_, err := CreateTarget(filepath.Join(t.TempDir(), "x"), -1)
	require.Error(t, err)
}

func TestNewTargetExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "existing")
	require.NoError(t, os.WriteFile(path, []byte("....."), 0o600))
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)

	target, err := NewTarget(f, 0)
	require.NoError(t, err)
	_, err = target.WriteAt([]byte("ab"), 1)
	require.NoError(t, err)
	require.NoError(t, target.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".ab..", string(got))
}
