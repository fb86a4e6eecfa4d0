// Package stations holds the per-area station catalog as a small read-only
// table. The catalog is fetched once per process from the service's station
// feed, loaded into an in-memory SQLite database, and then only queried:
// recording jobs look up a single station, the CLI lists all of them.
package stations
