package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Every error surfaced by the
// recording pipeline carries exactly one of these in its chain; errors.Is
// recovers it and Kind renders the stable label used in logs and CLI output.
var (
	ErrAuthNetwork  = errors.New("auth network failure")
	ErrAuthRejected = errors.New("auth rejected")
	ErrAuthProtocol = errors.New("auth protocol violation")

	ErrPlaylistNetwork    = errors.New("playlist network failure")
	ErrPlaylistOutOfRange = errors.New("window outside retention horizon")
	ErrPlaylistEmpty      = errors.New("playlist empty")
	ErrPlaylistMalformed  = errors.New("playlist malformed")

	ErrSegmentNetwork = errors.New("segment network failure")
	ErrSegmentGone    = errors.New("segment gone")

	ErrEncoderSpawn = errors.New("encoder spawn failed")
	ErrEncoderExit  = errors.New("encoder exited abnormally")
	ErrEncoderPipe  = errors.New("encoder pipe closed")

	ErrJobTimeout = errors.New("job deadline exceeded")

	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

var markers = []struct {
	err  error
	kind string
}{
	{ErrJobTimeout, "job_timeout"},
	{ErrAuthNetwork, "auth_network"},
	{ErrAuthRejected, "auth_rejected"},
	{ErrAuthProtocol, "auth_protocol"},
	{ErrPlaylistNetwork, "playlist_network"},
	{ErrPlaylistOutOfRange, "playlist_out_of_range"},
	{ErrPlaylistEmpty, "playlist_empty"},
	{ErrPlaylistMalformed, "playlist_malformed"},
	{ErrSegmentNetwork, "segment_network"},
	{ErrSegmentGone, "segment_gone"},
	{ErrEncoderSpawn, "encoder_spawn_failed"},
	{ErrEncoderExit, "encoder_nonzero_exit"},
	{ErrEncoderPipe, "encoder_pipe_closed"},
	{ErrConfiguration, "configuration"},
	{ErrNotFound, "not_found"},
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above. When the wrapped error already
// carries a marker the original classification is preserved and only the
// detail text is added, so a chain never holds two markers.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if err != nil && Kind(err) != "" {
		marker = nil
	}
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the stable snake_case label for the marker carried by err, or
// an empty string when the chain is unclassified. ErrJobTimeout takes
// precedence so a deadline firing mid-fetch reports as a timeout.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range markers {
		if errors.Is(err, m.err) {
			return m.kind
		}
	}
	return ""
}

// Retryable reports whether the chain's root cause is a transient transport
// failure that a caller may reasonably attempt again.
func Retryable(err error) bool {
	return errors.Is(err, ErrAuthNetwork) ||
		errors.Is(err, ErrPlaylistNetwork) ||
		errors.Is(err, ErrSegmentNetwork)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
