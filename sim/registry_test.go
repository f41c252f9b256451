package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterLookupNames(t *testing.T) {
	r := NewRegistry[int]("number")
	r.Register("two", 2)
	r.Register("one", 1)

	v, ok := r.Lookup("two")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = r.Lookup("three")
	assert.False(t, ok)

	assert.Equal(t, []string{"one", "two"}, r.Names())
}

func TestRegistry_DuplicateOrEmptyName_Panics(t *testing.T) {
	r := NewRegistry[int]("number")
	r.Register("one", 1)
	assert.Panics(t, func() { r.Register("one", 11) })
	assert.Panics(t, func() { r.Register("", 0) })
}
