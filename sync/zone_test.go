package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestResolveZone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/OAPI/V2/Zone" {
			t.Errorf("Expected path /OAPI/V2/Zone but have: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if gjson.GetBytes(body, "COM_CODE").String() != "80001" {
			t.Error("expected tenant id in zone request body")
		}
		fmt.Fprint(w, `{"Data":{"ZONE":"CB"}}`)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Hosts.Zone = server.URL

	zone, err := ZoneResolver{Config: config}.ResolveZone(context.Background(), "80001")
	if err != nil {
		t.Fatal(err)
	}
	if zone != "CB" {
		t.Errorf("Expected result: CB but have: %s", zone)
	}
}

func TestResolveZone_EmptyTenant(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Hosts.Zone = server.URL

	_, err := ZoneResolver{Config: config}.ResolveZone(context.Background(), "  ")
	var zoneErr *ZoneResolutionError
	if !errors.As(err, &zoneErr) {
		t.Fatalf("expected ZoneResolutionError, have: %v", err)
	}
	if calls != 0 {
		t.Error("empty tenant id must fail without a network call")
	}
}

func TestResolveZone_MissingZoneField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Data":{"Message":"unknown company code"}}`)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Hosts.Zone = server.URL

	_, err := ZoneResolver{Config: config}.ResolveZone(context.Background(), "80001")
	var zoneErr *ZoneResolutionError
	if !errors.As(err, &zoneErr) {
		t.Fatalf("expected ZoneResolutionError, have: %v", err)
	}
}

func TestResolveZone_RemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Hosts.Zone = server.URL

	_, err := ZoneResolver{Config: config}.ResolveZone(context.Background(), "80001")
	var zoneErr *ZoneResolutionError
	if !errors.As(err, &zoneErr) {
		t.Fatalf("expected ZoneResolutionError, have: %v", err)
	}
}
