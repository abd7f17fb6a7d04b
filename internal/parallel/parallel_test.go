package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFor_VisitsEveryIndexOnce(t *testing.T) {
	n := 1000
	hits := make([]int32, n)

	For(n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
	}, Config{Enabled: true, NumWorkers: 8, MinChunkSize: 1})

	for i, h := range hits {
		assert.Equalf(t, int32(1), h, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	For(5, func(i int) {
		order = append(order, i)
	}, Config{Enabled: false})

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_SmallRangeRunsInline(t *testing.T) {
	var order []int
	For(3, func(i int) {
		order = append(order, i)
	}, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16})

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestFor_Empty(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestForBatch(t *testing.T) {
	batch, channels := 4, 8
	var seen [4][8]atomic.Bool

	ForBatch(batch, channels, func(b, c int) {
		seen[b][c].Store(true)
	}, Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1})

	for b := range batch {
		for c := range channels {
			assert.Truef(t, seen[b][c].Load(), "missing [%d][%d]", b, c)
		}
	}
}
