package radiko

import (
	"net/http"
	"regexp"
	"time"
)

// Timestamps on the wire are JST wall-clock seconds in this layout, both for
// playlist window parameters and user-supplied start times.
const TimeLayout = "20060102150405"

var stationIDPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// ValidStationID reports whether id looks like a station identifier. Station
// IDs are uppercase alphanumerics (TBS, FMT, QRR).
func ValidStationID(id string) bool {
	return stationIDPattern.MatchString(id)
}

var jst = loadJST()

func loadJST() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// JST returns the service's home time zone. All window arithmetic happens
// here regardless of the local zone of the machine running the recorder.
func JST() *time.Location {
	return jst
}

// FormatTimestamp renders t as a wire timestamp in JST.
func FormatTimestamp(t time.Time) string {
	return t.In(jst).Format(TimeLayout)
}

// ParseTimestamp parses a wire timestamp, interpreting it as JST wall time.
func ParseTimestamp(value string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, value, jst)
}

// HTTPDoer abstracts *http.Client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
