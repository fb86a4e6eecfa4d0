package radiko

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aircheck/internal/services"
)

const (
	tagHeader        = "#EXTM3U"
	tagStreamInf     = "#EXT-X-STREAM-INF"
	tagMediaSequence = "#EXT-X-MEDIA-SEQUENCE:"
	tagInf           = "#EXTINF:"
)

// parsedPlaylist is the result of one parse pass: either a master playlist
// pointing at a single variant, or a media playlist's ordered entries.
type parsedPlaylist struct {
	master     bool
	variantURL string
	entries    []PlaylistEntry
}

// parsePlaylist parses an M3U document. Relative segment URIs resolve
// against base. Strict pairing rules apply: every EXTINF needs a following
// URI and every URI a preceding EXTINF, and a repeated media-sequence
// declaration must agree with the numbering already in effect.
func parsePlaylist(base *url.URL, body string) (parsedPlaylist, error) {
	var out parsedPlaylist
	lines := splitPlaylistLines(body)
	start := 0
	for start < len(lines) && lines[start] == "" {
		start++
	}
	if start >= len(lines) || !strings.HasPrefix(lines[start], tagHeader) {
		return out, malformed("missing #EXTM3U header")
	}

	var (
		sequenceBase int64
		haveSequence bool
		pending      *time.Duration
	)

	for i := start + 1; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, tagStreamInf):
			uri := nextPlaylistURI(lines, i+1)
			if uri == "" {
				return out, malformed("variant stream without uri")
			}
			resolved, err := resolvePlaylistURI(base, uri)
			if err != nil {
				return out, err
			}
			out.master = true
			out.variantURL = resolved
			return out, nil

		case strings.HasPrefix(line, tagMediaSequence):
			value, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, tagMediaSequence)), 10, 64)
			if err != nil {
				return out, malformed(fmt.Sprintf("media sequence %q not an integer", line))
			}
			if (haveSequence || len(out.entries) > 0) && value != sequenceBase {
				return out, malformed("conflicting media sequence declarations")
			}
			sequenceBase = value
			haveSequence = true

		case strings.HasPrefix(line, tagInf):
			if pending != nil {
				return out, malformed("segment duration without uri")
			}
			duration, err := parseExtInf(line)
			if err != nil {
				return out, err
			}
			pending = &duration

		case strings.HasPrefix(line, "#"):
			// Other tags carry no information this client needs.
			continue

		default:
			if pending == nil {
				return out, malformed("segment uri without duration")
			}
			resolved, err := resolvePlaylistURI(base, line)
			if err != nil {
				return out, err
			}
			out.entries = append(out.entries, PlaylistEntry{
				Sequence: sequenceBase + int64(len(out.entries)),
				URL:      resolved,
				Duration: *pending,
			})
			pending = nil
		}
	}

	if pending != nil {
		return out, malformed("dangling segment duration at end of playlist")
	}
	return out, nil
}

func splitPlaylistLines(body string) []string {
	raw := strings.Split(body, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func nextPlaylistURI(lines []string, from int) string {
	for i := from; i < len(lines); i++ {
		line := lines[i]
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

func resolvePlaylistURI(base *url.URL, uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", malformed(fmt.Sprintf("unparsable segment uri %q", uri))
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	if base == nil {
		return "", malformed(fmt.Sprintf("relative uri %q without a base", uri))
	}
	return base.ResolveReference(parsed).String(), nil
}

func parseExtInf(line string) (time.Duration, error) {
	value := strings.TrimPrefix(line, tagInf)
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		value = value[:idx]
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds < 0 {
		return 0, malformed(fmt.Sprintf("unparsable segment duration %q", line))
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func malformed(message string) error {
	return services.Wrap(services.ErrPlaylistMalformed, "playlist", "parse", message, nil)
}
