package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaturityState(t *testing.T) {
	now := MaturityInterval * 100

	assert.Equal(t, PoolStateInvalid, MaturityState(0, now, 3))
	assert.Equal(t, PoolStateInvalid, MaturityState(now+1, now, 3))

	assert.Equal(t, PoolStateMatured, MaturityState(now, now, 3))
	assert.Equal(t, PoolStateMatured, MaturityState(now-MaturityInterval, now, 3))

	next := NextMaturity(now)
	assert.Equal(t, PoolStateValid, MaturityState(next, now, 3))
	assert.Equal(t, PoolStateValid, MaturityState(next+2*MaturityInterval, now, 3))
	assert.Equal(t, PoolStateNotReady, MaturityState(next+3*MaturityInterval, now, 3))
}

func TestNextMaturityOnGrid(t *testing.T) {
	now := MaturityInterval*7 + 12345
	next := NextMaturity(now)

	require.True(t, next > now)
	assert.Equal(t, int64(0), next%MaturityInterval)
	assert.Equal(t, MaturityInterval*8, next)
}

func TestPositionScale(t *testing.T) {
	position := &FixedPosition{
		Principal: decimal.New(100, 0),
		Fee:       decimal.New(10, 0),
	}

	position.Scale(decimal.New(55, 0))
	assert.Equal(t, "50", position.Principal.String())
	assert.Equal(t, "5", position.Fee.String())

	position.Scale(decimal.New(100, 0))
	assert.True(t, position.Principal.IsZero())
	assert.True(t, position.Fee.IsZero())
}

func TestBackupSupplied(t *testing.T) {
	pool := &FixedPool{
		Borrowed: decimal.New(120, 0),
		Supplied: decimal.New(100, 0),
	}
	assert.Equal(t, "20", pool.BackupSupplied().String())

	pool.Supplied = decimal.New(200, 0)
	assert.True(t, pool.BackupSupplied().IsZero())
}
