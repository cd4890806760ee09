// Package console is the request orchestrator behind every supamocka
// command.
//
// It owns the admin client derived from the current connection settings,
// refreshes the cached user directory whenever that client changes, routes
// administrative requests through a notify.Tracker, and runs the REST poller.
//
// The console reacts to settings changes through session.State
// subscriptions. Nothing is global: each command builds one Console from an
// explicit State and closes it when done.
package console
