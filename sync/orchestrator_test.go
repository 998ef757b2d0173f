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

type vendorCalls struct {
	zone  int
	login int
	bulk  int
}

// fakeVendor serves the zone, login and bulk endpoints of a healthy vendor.
func fakeVendor(t *testing.T, calls *vendorCalls) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/OAPI/V2/Zone", func(w http.ResponseWriter, r *http.Request) {
		calls.zone++
		fmt.Fprint(w, `{"Data":{"ZONE":"CB"}}`)
	})
	mux.HandleFunc("/OAPI/V2/OAPILogin", func(w http.ResponseWriter, r *http.Request) {
		calls.login++
		fmt.Fprint(w, `{"Data":{"Datas":{"SESSION_ID":"tok-e2e"}}}`)
	})
	mux.HandleFunc(ProductSchema.Path, func(w http.ResponseWriter, r *http.Request) {
		calls.bulk++
		if r.URL.Query().Get("SESSION_ID") != "tok-e2e" {
			t.Error("expected session token on bulk call")
		}
		body, _ := io.ReadAll(r.Body)
		n := gjson.GetBytes(body, "ProductList.#").Int()
		fmt.Fprintf(w, `{"Status":"200","Data":{"SuccessCnt":%d,"FailCnt":0}}`, n)
	})
	return httptest.NewServer(mux)
}

func testRunnerConfig(serverURL string) Config {
	config := DefaultConfig()
	config.Hosts.Zone = serverURL
	config.Hosts.Production = serverURL
	config.Hosts.Sandbox = serverURL
	config.Batch.InterBatchDelayMs = 0
	return config
}

func makeRecords(n int) []Record {
	result := make([]Record, n)
	for i := range result {
		result[i] = Record{"code": fmt.Sprintf("P-%04d", i), "name": "Widget"}
	}
	return result
}

type fakeStore struct {
	saved []RunReport
	err   error
}

func (s *fakeStore) SaveReport(ctx context.Context, tenantID string, report RunReport) error {
	s.saved = append(s.saved, report)
	return s.err
}

type fakeNotifier struct {
	notified []RunReport
}

func (n *fakeNotifier) NotifyReport(tenantID string, report RunReport) error {
	n.notified = append(n.notified, report)
	return nil
}

var testProductMapping = FieldMapping{"code": "PROD_CD", "name": "PROD_DES"}

func TestRunSync_EndToEnd(t *testing.T) {
	var calls vendorCalls
	server := fakeVendor(t, &calls)
	defer server.Close()

	store := &fakeStore{}
	notifier := &fakeNotifier{}
	runner := NewRunner(testRunnerConfig(server.URL))
	runner.Delay = NoDelay
	runner.Store = store
	runner.Notifier = notifier

	report, err := runner.RunSync(context.Background(), testCredential("prod-key"), makeRecords(650), testProductMapping, ProductSchema)
	if err != nil {
		t.Fatal(err)
	}

	if report.TotalRecords != 650 || report.SuccessCount != 650 || report.ErrorCount != 0 {
		t.Errorf("Expected report 650/650/0 but have: %+v", report)
	}
	if calls.zone != 1 || calls.login != 1 || calls.bulk != 3 {
		t.Errorf("Expected 1 zone, 1 login, 3 bulk calls but have: %+v", calls)
	}
	if len(store.saved) != 1 || len(notifier.notified) != 1 {
		t.Error("expected report to reach the store and notifier")
	}
}

func TestRunSync_InvalidMappingAbortsBeforeAnyCall(t *testing.T) {
	var calls vendorCalls
	server := fakeVendor(t, &calls)
	defer server.Close()

	runner := NewRunner(testRunnerConfig(server.URL))
	runner.Delay = NoDelay

	incomplete := FieldMapping{"code": "PROD_CD"}
	_, err := runner.RunSync(context.Background(), testCredential("prod-key"), makeRecords(10), incomplete, ProductSchema)

	var missing *MissingRequiredFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingRequiredFieldError, have: %v", err)
	}
	if calls.zone != 0 || calls.login != 0 || calls.bulk != 0 {
		t.Errorf("mapping validation must run before any network call, have: %+v", calls)
	}
}

func TestRunSync_QuotaAbortsWithNoReport(t *testing.T) {
	var calls vendorCalls
	server := fakeVendor(t, &calls)
	defer server.Close()

	config := testRunnerConfig(server.URL)
	config.Batch.MaxRecordsPerRun = 100
	runner := NewRunner(config)
	runner.Delay = NoDelay

	report, err := runner.RunSync(context.Background(), testCredential("prod-key"), makeRecords(101), testProductMapping, ProductSchema)

	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, have: %v", err)
	}
	if len(report.Batches) != 0 {
		t.Error("a run that never started must not produce a report")
	}
	if calls.bulk != 0 {
		t.Errorf("no batch may be submitted when the quota check fails, have %d bulk calls", calls.bulk)
	}
}

func TestRunner_ZoneResolvedOncePerRun(t *testing.T) {
	var calls vendorCalls
	server := fakeVendor(t, &calls)
	defer server.Close()

	runner := NewRunner(testRunnerConfig(server.URL))

	first, err := runner.ResolveZone(context.Background(), "80001")
	if err != nil {
		t.Fatal(err)
	}
	second, err := runner.ResolveZone(context.Background(), "80001")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Expected identical zones but have: %s and %s", first, second)
	}
	if calls.zone != 1 {
		t.Errorf("Expected 1 zone call but have: %d", calls.zone)
	}
}

func TestRunSync_CollaboratorFailureDoesNotFailRun(t *testing.T) {
	var calls vendorCalls
	server := fakeVendor(t, &calls)
	defer server.Close()

	runner := NewRunner(testRunnerConfig(server.URL))
	runner.Delay = NoDelay
	runner.Store = &fakeStore{err: errors.New("database unavailable")}

	report, err := runner.RunSync(context.Background(), testCredential("prod-key"), makeRecords(10), testProductMapping, ProductSchema)
	if err != nil {
		t.Fatalf("store failure must not fail the run, have: %v", err)
	}
	if report.SuccessCount != 10 {
		t.Errorf("Expected success count: 10 but have: %d", report.SuccessCount)
	}
}
