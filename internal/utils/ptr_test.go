package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopy(t *testing.T) {
	assert.Nil(t, Copy[int](nil))

	v := 3
	c := Copy(&v)
	*c = 4
	assert.Equal(t, 3, v)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *int
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", Ptr(1), nil, false},
		{"same value", Ptr(1), Ptr(1), true},
		{"different value", Ptr(1), Ptr(2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestStringOrNil(t *testing.T) {
	assert.Nil(t, StringOrNil("   "))
	assert.Equal(t, "abc", OrZero(StringOrNil(" abc ")))
	assert.Empty(t, OrZero[string](nil))
}
