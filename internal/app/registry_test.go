package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/meetrelay/internal/domain"
)

func TestRegistryRegisterSupersedesPreviousBinding(t *testing.T) {
	reg := NewRegistry()
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")

	prev, ok := reg.Register("u1", c1)
	assert.False(t, ok)
	assert.Nil(t, prev)

	prev, ok = reg.Register("u1", c2)
	require.True(t, ok)
	assert.Equal(t, c1.ID(), prev.ID())

	got, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, c2.ID(), got.ID())

	// The superseded connection no longer owns the binding.
	_, ok = reg.UnregisterByConnection(c1.ID())
	assert.False(t, ok)
	got, ok = reg.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, c2.ID(), got.ID())
}

func TestRegistryRegisterSameConnectionTwice(t *testing.T) {
	reg := NewRegistry()
	c1 := newFakeConn("c1")

	reg.Register("u1", c1)
	prev, ok := reg.Register("u1", c1)
	assert.False(t, ok)
	assert.Nil(t, prev)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryConnectionRebindsToAnotherParticipant(t *testing.T) {
	reg := NewRegistry()
	c1 := newFakeConn("c1")

	reg.Register("u1", c1)
	reg.Register("u2", c1)

	_, ok := reg.Lookup("u1")
	assert.False(t, ok)
	pid, ok := reg.ParticipantOf(c1.ID())
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("u2"), pid)
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	c1 := newFakeConn("c1")
	reg.Register("u1", c1)

	pid, ok := reg.UnregisterByConnection(c1.ID())
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("u1"), pid)

	pid, ok = reg.UnregisterByConnection(c1.ID())
	assert.False(t, ok)
	assert.Empty(t, pid)

	_, ok = reg.Lookup("u1")
	assert.False(t, ok)
}

func TestRegistryConcurrentRegistrationKeepsOneConnectionPerParticipant(t *testing.T) {
	reg := NewRegistry()
	const workers, rounds = 16, 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				c := newFakeConn(fmt.Sprintf("c-%d-%d", w, i))
				pid := domain.ParticipantID(fmt.Sprintf("u%d", i%5))
				reg.Register(pid, c)
				if i%3 == 0 {
					reg.UnregisterByConnection(c.ID())
				}
			}
		}(w)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		pid := domain.ParticipantID(fmt.Sprintf("u%d", i))
		conn, ok := reg.Lookup(pid)
		if !ok {
			continue
		}
		back, ok := reg.ParticipantOf(conn.ID())
		require.True(t, ok)
		assert.Equal(t, pid, back)
	}
	assert.LessOrEqual(t, reg.Len(), 5)
	assert.Len(t, reg.byConn, reg.Len())
}
