package hostmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	r, err := Read(context.Background())
	require.NoError(t, err)
	assert.Positive(t, r.Total)
	assert.LessOrEqual(t, r.Available, r.Total)
	assert.Contains(t, r.String(), "available of")
}

func TestEstimate(t *testing.T) {
	// densenet121: 6,953,856 parameters and 83,648 moving statistics
	assert.Equal(t, uint64(6_953_856+83_648)*4, Estimate(6_953_856, 83_648, false))
	assert.Equal(t, uint64(4*6_953_856+83_648)*4, Estimate(6_953_856, 83_648, true))
	assert.Equal(t, uint64(0), Estimate(0, 0, true))
}

func TestReport_Fits(t *testing.T) {
	r := Report{Total: 8 << 30, Available: 1 << 30}
	assert.True(t, r.Fits(1<<30))
	assert.False(t, r.Fits(1<<30+1))
	assert.Equal(t, "1.0 GiB", Format(1<<30))
}
