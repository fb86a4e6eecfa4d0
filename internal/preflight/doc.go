// Package preflight provides readiness checks for the directories and
// binaries a recording needs before any network traffic happens.
//
// The record command calls Ensure once per invocation so a doomed job fails
// in milliseconds instead of partway through a long capture; the status
// command renders the individual Results for display.
package preflight
