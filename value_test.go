package tiny

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueFormat(t *testing.T) {
	state := NewState()
	idx, err := state.strings.intern("hi")
	assert.NoError(t, err)

	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "null"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"integral number", Number(3), "3"},
		{"fractional number", Number(3.5), "3.5"},
		{"const string", constString(idx), "hi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.Format(state))
		})
	}
}

func TestValueTruthy(t *testing.T) {
	b, ok := Bool(true).Truthy()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = Number(1).Truthy()
	assert.False(t, ok)
}

func TestValueKindEqualityBoundary(t *testing.T) {
	// A Number and a Bool carrying the "same" truthy value never
	// compare equal: equality never crosses Kind, except between the
	// two string kinds.
	th := NewThread(NewState())
	assert.False(t, valuesEqual(th, Number(1), Bool(true)))
	assert.True(t, valuesEqual(th, Number(1), Number(1)))
	assert.True(t, valuesEqual(th, Null(), Null()))
}

func TestNumberPoolDedup(t *testing.T) {
	p := newNumberPool(4)
	a, err := p.intern(1.5)
	assert.NoError(t, err)
	b, err := p.intern(2.5)
	assert.NoError(t, err)
	c, err := p.intern(1.5)
	assert.NoError(t, err)
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)
}

func TestNumberPoolOverflow(t *testing.T) {
	p := newNumberPool(2)
	_, err := p.intern(1)
	assert.NoError(t, err)
	_, err = p.intern(2)
	assert.NoError(t, err)
	_, err = p.intern(3)
	assert.Error(t, err)
}

func TestStringPoolDedup(t *testing.T) {
	p := newStringPool(4)
	a, err := p.intern("x")
	assert.NoError(t, err)
	b, err := p.intern("x")
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}
