// Package radiko implements the client side of the radiko streaming service
// protocol: the two-step token handshake, timeshift playlist resolution, media
// segment retrieval, and the station catalog feed.
//
// The package is transport-only. It classifies every failure with the error
// markers from internal/services so the recording orchestrator can decide
// retry and abort policy without inspecting HTTP details, and it never caches
// state across jobs beyond the single in-flight auth session.
package radiko
