package number

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecimal(t *testing.T) {
	assert.True(t, Decimal("1.5").Equal(Decimal("1.50")))
	assert.True(t, Decimal("not a number").IsZero())
}

func TestMinMax(t *testing.T) {
	a, b := Decimal("1.5"), Decimal("2")
	assert.True(t, Min(a, b).Equal(a))
	assert.True(t, Max(a, b).Equal(b))
	assert.True(t, Min(b, b).Equal(b))
}
