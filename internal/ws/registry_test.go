package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads [][]byte
	sendErr  error
	closed   bool
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestRegistryFanOut(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	first := &fakeConn{}
	second := &fakeConn{}
	registry.Register(userID, first)
	registry.Register(userID, second)

	conns := registry.Get(userID)
	assert.Len(t, conns, 2)
	assert.Equal(t, 2, registry.Len())
}

func TestRegistryRemovesEmptyBucket(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	first := &fakeConn{}
	second := &fakeConn{}
	registry.Register(userID, first)
	registry.Register(userID, second)

	registry.Unregister(userID, first)
	assert.Len(t, registry.Get(userID), 1)

	registry.Unregister(userID, second)
	assert.Nil(t, registry.Get(userID))
	assert.Equal(t, 0, registry.Len())

	// Unregistering an unknown connection is a no-op.
	registry.Unregister(userID, first)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryIsolatesUsers(t *testing.T) {
	registry := NewRegistry()
	alice := uuid.New()
	bob := uuid.New()

	registry.Register(alice, &fakeConn{})
	registry.Register(bob, &fakeConn{})

	assert.Len(t, registry.Get(alice), 1)
	assert.Len(t, registry.Get(bob), 1)

	registry.Unregister(alice, registry.Get(alice)[0])
	assert.Nil(t, registry.Get(alice))
	assert.Len(t, registry.Get(bob), 1)
}

func TestRegistryConcurrentRegister(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	var wg sync.WaitGroup
	conns := make([]*fakeConn, 50)
	for i := range conns {
		conns[i] = &fakeConn{}
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			registry.Register(userID, c)
		}(conns[i])
	}
	wg.Wait()

	assert.Equal(t, 50, registry.Len())
}
