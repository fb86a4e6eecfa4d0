package radiko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"aircheck/internal/services"
)

const stationFeedXML = `<?xml version="1.0" encoding="UTF-8" ?>
<stations area_id="JP13" area_name="TOKYO JAPAN">
  <station>
    <id>TBS</id>
    <name>TBSラジオ</name>
    <ascii_name>TBS RADIO</ascii_name>
    <ruby>ティービーエスラジオ</ruby>
  </station>
  <station>
    <id>FMT</id>
    <name>TOKYO FM</name>
    <ascii_name>ＴＯＫＹＯ　ＦＭ</ascii_name>
    <ruby>トウキョウエフエム</ruby>
  </station>
</stations>`

func TestStationListParsesFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/station/list/JP13.xml" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, stationFeedXML)
	}))
	defer server.Close()

	client, err := NewStationClient(testConfig(server.URL), WithStationHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewStationClient: %v", err)
	}

	list, err := client.List(context.Background(), "JP13")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.AreaID != "JP13" || list.AreaName != "TOKYO JAPAN" {
		t.Fatalf("area = %q/%q", list.AreaID, list.AreaName)
	}
	if len(list.Stations) != 2 {
		t.Fatalf("stations = %d", len(list.Stations))
	}
	if list.Stations[0].ID != "TBS" || list.Stations[0].Name != "TBSラジオ" {
		t.Fatalf("station 0 = %+v", list.Stations[0])
	}
	if list.Stations[1].ASCIIName != "ＴＯＫＹＯ　ＦＭ" {
		t.Fatalf("station 1 ascii name = %q", list.Stations[1].ASCIIName)
	}
}

func TestStationListRejectsInvalidArea(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client, err := NewStationClient(testConfig(server.URL), WithStationHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewStationClient: %v", err)
	}

	_, err = client.List(context.Background(), "JP48")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("want configuration error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("invalid area must not hit the network: calls = %d", calls)
	}
}

func TestStationListSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewStationClient(testConfig(server.URL), WithStationHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewStationClient: %v", err)
	}

	if _, err := client.List(context.Background(), "JP13"); err == nil {
		t.Fatal("expected error for non-200 feed response")
	}
}
