package radiko

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/services"
)

// Station is one broadcaster from the area's station feed.
type Station struct {
	ID        string `xml:"id"`
	Name      string `xml:"name"`
	ASCIIName string `xml:"ascii_name"`
	Ruby      string `xml:"ruby"`
}

// StationList is the full feed for one area.
type StationList struct {
	AreaID   string
	AreaName string
	Stations []Station
}

type stationListDocument struct {
	XMLName  xml.Name  `xml:"stations"`
	AreaID   string    `xml:"area_id,attr"`
	AreaName string    `xml:"area_name,attr"`
	Stations []Station `xml:"station"`
}

// StationOption customizes StationClient construction.
type StationOption func(*StationClient)

// WithStationHTTPClient overrides the HTTP client used for feed fetches.
func WithStationHTTPClient(client HTTPDoer) StationOption {
	return func(c *StationClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithStationLogger attaches a logger for feed diagnostics.
func WithStationLogger(logger *slog.Logger) StationOption {
	return func(c *StationClient) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "stations")
		}
	}
}

// StationClient fetches the public per-area station feed. The feed needs no
// session token.
type StationClient struct {
	baseURL    string
	httpClient HTTPDoer
	logger     *slog.Logger
}

// NewStationClient builds a StationClient from configuration.
func NewStationClient(cfg *config.Config, opts ...StationOption) (*StationClient, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	client := &StationClient{
		baseURL:    strings.TrimRight(cfg.Service.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return client, nil
}

// List fetches and parses the station feed for areaID.
func (c *StationClient) List(ctx context.Context, areaID string) (StationList, error) {
	var empty StationList
	if !config.ValidAreaID(areaID) {
		return empty, services.Wrap(services.ErrConfiguration, "stations", "list",
			fmt.Sprintf("invalid area id %q", areaID), nil)
	}

	feedURL := fmt.Sprintf("%s/v3/station/list/%s.xml", c.baseURL, areaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return empty, services.Wrap(nil, "stations", "list", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(nil, "stations", "list", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return empty, services.Wrap(nil, "stations", "list", "", &statusError{status: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return empty, services.Wrap(nil, "stations", "list", "read body", err)
	}

	var document stationListDocument
	if err := xml.Unmarshal(body, &document); err != nil {
		return empty, services.Wrap(nil, "stations", "list", "parse feed", err)
	}

	list := StationList{
		AreaID:   strings.TrimSpace(document.AreaID),
		AreaName: strings.TrimSpace(document.AreaName),
	}
	if list.AreaID == "" {
		list.AreaID = areaID
	}
	for _, station := range document.Stations {
		station.ID = strings.TrimSpace(station.ID)
		station.Name = strings.TrimSpace(station.Name)
		station.ASCIIName = strings.TrimSpace(station.ASCIIName)
		station.Ruby = strings.TrimSpace(station.Ruby)
		if station.ID == "" {
			continue
		}
		list.Stations = append(list.Stations, station)
	}
	c.logger.Debug("station feed fetched",
		logging.String("area_id", list.AreaID),
		logging.Int("station_count", len(list.Stations)))
	return list, nil
}
