// Package encoder runs the external audio encoder as a child process fed
// over stdin. The recorder streams segment bytes into the child while it
// remuxes them into the output file; the package owns spawn, shutdown, and
// exit classification so callers never leak a child or a zombie.
package encoder
