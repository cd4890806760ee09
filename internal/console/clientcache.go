package console

import (
	"sync"

	"github.com/getmockd/supamocka/pkg/session"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// ClientFactory builds an admin client. It must not perform I/O.
type ClientFactory func(url, secretKey string) supabase.AdminClient

type clientKey struct {
	url       string
	secretKey string
}

// ClientCache memoizes the admin client on (url, secretKey). Other fields of
// the connection settings never cause a rebuild.
type ClientCache struct {
	mu         sync.Mutex
	factory    ClientFactory
	key        clientKey
	client     supabase.AdminClient
	valid      bool
	generation uint64
}

// NewClientCache returns an empty cache around factory.
func NewClientCache(factory ClientFactory) *ClientCache {
	if factory == nil {
		factory = func(url, secretKey string) supabase.AdminClient {
			return supabase.NewAdminClient(url, secretKey)
		}
	}
	return &ClientCache{factory: factory}
}

// Get returns the client for conn along with its generation. derived is
// true when a new client was built by this call.
func (c *ClientCache) Get(conn session.ConnectionSettings) (client supabase.AdminClient, generation uint64, derived bool) {
	key := clientKey{url: conn.URL, secretKey: conn.SecretKey}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.key == key {
		return c.client, c.generation, false
	}
	c.client = c.factory(key.url, key.secretKey)
	c.key = key
	c.valid = true
	c.generation++
	return c.client, c.generation, true
}

// Invalidate makes the next Get rebuild even for identical settings.
func (c *ClientCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// Generation counts derivations so far. It identifies the current client.
func (c *ClientCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
