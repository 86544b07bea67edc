package entropy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceIsDeterministic(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.Float64(), b.Float64())
		require.Equal(t, a.Intn(10), b.Intn(10))
	}
}

func TestNewSeedIsNonNegative(t *testing.T) {
	for i := 0; i < 10; i++ {
		seed, err := NewSeed()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, seed, int64(0))
	}
}

func TestSequentialIDs(t *testing.T) {
	next := Sequential("m")
	assert.Equal(t, "m-1", next())
	assert.Equal(t, "m-2", next())

	other := Sequential("m")
	assert.Equal(t, "m-1", other(), "each generator counts independently")
}

func TestUUIDs(t *testing.T) {
	id := UUIDs()()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }
func (f fixedSource) Intn(int) int     { return 0 }

func TestChance(t *testing.T) {
	assert.True(t, Chance(fixedSource(0.69), 0.7))
	assert.False(t, Chance(fixedSource(0.7), 0.7))
}
