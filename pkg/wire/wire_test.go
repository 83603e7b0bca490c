package wire

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newUUID() uuid.UUID {
	id, _ := uuid.NewV4()
	return id
}

func TestScan(t *testing.T) {
	var (
		typ  int8 = 7
		uid       = newUUID()
		str       = "termfi"
		amt       = decimal.RequireFromString("123.45678901")
		data      = make(RawMessage, 100)
	)

	_, _ = io.ReadFull(rand.Reader, data)

	body, err := Encode(typ, uid, str, amt, data)
	require.Nil(t, err)

	var (
		dtyp  int8
		duid  uuid.UUID
		dstr  string
		damt  decimal.Decimal
		ddata RawMessage
	)

	remain, err := Scan(body, &dtyp)
	require.Nil(t, err)
	assert.Equal(t, typ, dtyp)

	remain, err = Scan(remain, &duid, &dstr, &damt)
	require.Nil(t, err)
	assert.Equal(t, uid.String(), duid.String())
	assert.Equal(t, str, dstr)
	require.True(t, amt.Equal(damt))

	remain, err = Scan(remain, &ddata)
	require.Nil(t, err)
	assert.Equal(t, data, ddata)
	assert.Equal(t, 0, len(remain))
}

func TestScanShortBuffer(t *testing.T) {
	body, err := Encode(int64(42))
	require.Nil(t, err)

	var v uuid.UUID
	_, err = Scan(body, &v)
	require.NotNil(t, err)
}
