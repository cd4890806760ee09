package console

import (
	"context"

	"github.com/getmockd/supamocka/pkg/supabase"
)

// syncDirectory lists users with client and replaces the cached directory.
// Results for a client that has since been replaced are dropped. Failures
// leave the cache untouched.
func (c *Console) syncDirectory(ctx context.Context, client supabase.AdminClient, generation uint64) ([]supabase.User, error) {
	users, err := client.ListUsers(ctx)
	if err != nil {
		c.log.Error("user directory sync failed", "url", client.BaseURL(), "error", err)
		return nil, err
	}
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	if current := c.clients.Generation(); current != generation {
		c.log.Debug("discarding user directory from replaced client",
			"generation", generation, "current", current)
		return users, nil
	}
	if err := c.state.ReplaceUsers(users); err != nil {
		return nil, err
	}
	c.log.Debug("user directory synced", "count", len(users))
	return users, nil
}

// startSync runs the automatic sync that follows every derivation. It is
// silent: failures are logged but never notified.
func (c *Console) startSync(client supabase.AdminClient, generation uint64) {
	c.syncs.Add(1)
	go func() {
		defer c.syncs.Done()
		_, _ = c.syncDirectory(context.Background(), client, generation)
	}()
}
