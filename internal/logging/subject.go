package logging

import "strings"

// FormatSubject renders the "TBS · Job 8f6c5e58 (fetching)" header token
// the console handler places after the component tag.
func FormatSubject(station, jobID, stage string) string {
	parts := make([]string, 0, 2)
	if station = strings.TrimSpace(station); station != "" {
		parts = append(parts, station)
	}
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		parts = append(parts, "Job "+ShortID(jobID))
	}
	subject := strings.Join(parts, " · ")
	if stage = strings.TrimSpace(stage); stage != "" {
		if subject == "" {
			return "(" + stage + ")"
		}
		subject += " (" + stage + ")"
	}
	return subject
}

// ShortID trims a UUID down to its first group for display.
func ShortID(id string) string {
	id = strings.TrimSpace(id)
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
