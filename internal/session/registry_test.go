package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
)

func TestAllocateAndValidate(t *testing.T) {
	r := New(true)
	s := r.Allocate()
	require.NotEmpty(t, s.ID)

	got, err := r.Validate(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestStrictRejectsUnknownAndEmpty(t *testing.T) {
	r := New(true)

	_, err := r.Validate("")
	require.Error(t, err)
	assert.Equal(t, gwerrors.KindSession, gwerrors.KindOf(err))

	_, err = r.Validate("not-a-real-session")
	require.Error(t, err)
	assert.Equal(t, gwerrors.KindSession, gwerrors.KindOf(err))
}

func TestLenientAllowsEmptyAndAutoCreates(t *testing.T) {
	r := New(false)

	got, err := r.Validate("")
	require.NoError(t, err)
	assert.Equal(t, "", got.ID)

	got, err = r.Validate("caller-supplied-id")
	require.NoError(t, err)
	assert.Equal(t, "caller-supplied-id", got.ID)
	assert.Equal(t, 1, r.Len())
}

func TestDestroyAndClear(t *testing.T) {
	r := New(false)
	s := r.Allocate()
	assert.Equal(t, 1, r.Len())

	r.Destroy(s.ID)
	assert.Equal(t, 0, r.Len())

	r.Allocate()
	r.Allocate()
	assert.Equal(t, 2, r.Len())
	r.Clear()
	assert.Equal(t, 0, r.Len())
}
