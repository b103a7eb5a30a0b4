package amqp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelAllocatorLowestFree(t *testing.T) {
	a := newChannelAllocator(4)

	id1, err := a.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(1), id1)

	id2, err := a.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(2), id2)

	a.Release(id1)

	id3, err := a.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(1), id3, "released id should be reused before higher ones")

	id4, err := a.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(3), id4)
}

func TestChannelAllocatorExhausted(t *testing.T) {
	a := newChannelAllocator(2)

	_, err := a.Allocate()
	require.NoError(t, err)
	_, err = a.Allocate()
	require.NoError(t, err)

	_, err = a.Allocate()
	require.Error(t, err)
	require.IsType(t, &NoFreeChannelsError{}, err)
}

func TestChannelAllocatorReleaseUnknownIsNoop(t *testing.T) {
	a := newChannelAllocator(2)
	a.Release(1) // never allocated

	id, err := a.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(1), id)
}
