package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestRegistryClient_Validate_ActiveBusiness(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("serviceKey") != "test-key" {
			t.Errorf("Expected serviceKey: test-key but have: %s", r.URL.Query().Get("serviceKey"))
		}
		body, _ := io.ReadAll(r.Body)
		if gjson.GetBytes(body, "b_no.0").String() != "1234567890" {
			t.Errorf("expected separators stripped from tax id, have body: %s", body)
		}
		fmt.Fprint(w, `{"status_code":"OK","request_cnt":1,"match_cnt":1,"data":[{"b_no":"1234567890","b_stt":"계속사업자","b_stt_cd":"01"}]}`)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Registry.Endpoint = server.URL
	config.Registry.APIKey = "test-key"

	status, err := RegistryClient{Config: config}.Validate(context.Background(), "123-45-67890")
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsValid || !status.IsActive {
		t.Errorf("Expected valid active business but have: %+v", status)
	}
	if status.Status != "계속사업자" {
		t.Errorf("Expected status: 계속사업자 but have: %s", status.Status)
	}
}

func TestRegistryClient_Validate_ClosedBusiness(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status_code":"OK","request_cnt":1,"match_cnt":1,"data":[{"b_no":"1234567890","b_stt":"폐업자","b_stt_cd":"03"}]}`)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Registry.Endpoint = server.URL

	status, err := RegistryClient{Config: config}.Validate(context.Background(), "1234567890")
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsValid {
		t.Error("registered business must be valid")
	}
	if status.IsActive {
		t.Error("closed business must not be active")
	}
}

func TestRegistryClient_Validate_UnknownNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status_code":"OK","request_cnt":1,"match_cnt":0,"data":[]}`)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Registry.Endpoint = server.URL

	status, err := RegistryClient{Config: config}.Validate(context.Background(), "0000000000")
	if err != nil {
		t.Fatal(err)
	}
	if status.IsValid || status.IsActive {
		t.Errorf("Expected unknown number but have: %+v", status)
	}
}

func TestRegistryClient_Validate_RemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Registry.Endpoint = server.URL

	if _, err := (RegistryClient{Config: config}).Validate(context.Background(), "1234567890"); err == nil {
		t.Error("expected an error on registry failure")
	}
}
