package damm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToStr_KnownVector(t *testing.T) {
	// Wikipedia 上的标准样例：572 的校验位是 4
	assert.Equal(t, "5724", AddToStr("572"))
}

func TestRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 7, 42, 572, 100000, 9223372036854775807} {
		display := AddToInt64(id)
		parsed, ok := ValidateInt64(display)
		require.True(t, ok, "id=%d display=%s", id, display)
		assert.Equal(t, id, parsed)
	}
}

func TestValidate_DetectsSingleDigitError(t *testing.T) {
	display := AddToInt64(572) // "5724"
	for i := 0; i < len(display); i++ {
		for d := byte('0'); d <= '9'; d++ {
			if display[i] == d {
				continue
			}
			mutated := display[:i] + string(d) + display[i+1:]
			_, ok := Validate(mutated)
			assert.False(t, ok, "mutated=%s", mutated)
		}
	}
}

func TestValidate_DetectsAdjacentTransposition(t *testing.T) {
	display := AddToInt64(572)
	for i := 0; i+1 < len(display); i++ {
		if display[i] == display[i+1] {
			continue
		}
		b := []byte(display)
		b[i], b[i+1] = b[i+1], b[i]
		_, ok := Validate(string(b))
		assert.False(t, ok, "transposed=%s", string(b))
	}
}

func TestValidate_RejectsGarbage(t *testing.T) {
	_, ok := Validate("")
	assert.False(t, ok)
	_, ok = Validate("7")
	assert.False(t, ok)
	_, ok = Validate("12a4")
	assert.False(t, ok)
}
