// Package supabase is a small client for a project's auth admin API and its
// REST surface.
//
// An AdminClient is scoped to one (url, secret key) pair and issues privileged
// calls. A RESTClient is scoped to (url, public key) and issues anonymous
// REST calls. Constructors never perform I/O and never fail; malformed URLs
// or keys surface as errors from the first request.
//
// Every failed call returns an *APIError, including responses that arrive
// with a 2xx status but carry an error body, so callers only need to check
// the returned error.
package supabase
