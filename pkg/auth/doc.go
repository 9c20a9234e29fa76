// Package auth implements the proxy's bearer-token passthrough and
// optional JWT identity tagging.
//
// The proxy never owns auth state: the Authorization header is forwarded
// to upstream unmodified regardless of configuration, and only the
// upstream can authoritatively reject a bad credential. When auth.type is
// jwt, an additional decode step extracts a subject claim for logging and
// metrics only; a missing or invalid JWT degrades to "no identity" rather
// than rejecting the request.
package auth
