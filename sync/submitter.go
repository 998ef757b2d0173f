package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// bulkDataKey wraps each record inside the operation's bulk container, per
// vendor convention.
const bulkDataKey = "BulkDatas"

// DelayStrategy paces batch submission. The submitter calls it between
// batches with the configured inter-batch delay; it is injectable so tests
// can substitute a zero-delay strategy without changing production behaviour.
type DelayStrategy func(ctx context.Context, d time.Duration)

// SleepDelay blocks for the full delay, or until the context is cancelled.
func SleepDelay(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// NoDelay skips pacing entirely.
func NoDelay(ctx context.Context, d time.Duration) {}

// BulkRequest is one batch of target records bound for a bulk operation.
type BulkRequest struct {
	Schema  OperationSchema
	Records []TargetRecord
}

// Validate checks the request is submittable.
func (r BulkRequest) Validate() error {
	if len(r.Records) == 0 {
		return errors.New("no records to send")
	}
	if r.Schema.Path == "" || r.Schema.BulkContainer == "" {
		return fmt.Errorf("operation schema %q has no bulk endpoint", r.Schema.Name)
	}
	return nil
}

// ItemCount returns the number of records in the request.
func (r BulkRequest) ItemCount() int {
	return len(r.Records)
}

// Body assembles the vendor envelope:
// { "<BulkContainer>": [ { "BulkDatas": record }, ... ] }
// Record order is preserved; fields within a record are written in sorted
// order so the payload is deterministic.
func (r BulkRequest) Body() (string, error) {
	payload := "{}"
	var err error
	for i, rec := range r.Records {
		recJSON := "{}"
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			recJSON, err = sjson.Set(recJSON, escapePath(k), rec[k])
			if err != nil {
				return "", fmt.Errorf("failed to encode record %d field %s %w", i, k, err)
			}
		}
		payload, err = sjson.SetRaw(payload, fmt.Sprintf("%s.%d.%s", r.Schema.BulkContainer, i, bulkDataKey), recJSON)
		if err != nil {
			return "", fmt.Errorf("failed to encode record %d %w", i, err)
		}
	}
	return payload, nil
}

// BulkResponse is the vendor's interpretation-relevant view of a bulk call.
type BulkResponse struct {
	Status       string
	SuccessCount int64
	FailCount    int64
	Message      string
}

// IsSuccess reports whether the vendor accepted the whole batch: success
// status marker and no per-record failures.
func (r BulkResponse) IsSuccess() bool {
	return r.Status == "200" && r.FailCount == 0
}

// GetError returns an error describing the vendor's rejection.
func (r BulkResponse) GetError() error {
	if r.IsSuccess() {
		return nil
	}
	if r.Message != "" {
		return fmt.Errorf("%s: %s", r.Status, r.Message)
	}
	return fmt.Errorf("vendor status %s with %d failed records", r.Status, r.FailCount)
}

// parseBulkResponse extracts the status marker, per-record counts and any
// diagnostic message from a raw vendor response. The fields live at
// variant-dependent depths, so each is located by structural search.
func parseBulkResponse(raw string) BulkResponse {
	var result BulkResponse
	root := gjson.Parse(raw)
	if status, ok := FindKeyShallowest(root, "Status"); ok {
		result.Status = status.String()
	}
	if n, ok := FindKeyShallowest(root, "SuccessCnt"); ok {
		result.SuccessCount = n.Int()
	}
	if n, ok := FindKeyShallowest(root, "FailCnt"); ok {
		result.FailCount = n.Int()
	}
	if message, ok := FindStringShallowest(root, vendorMessageKey); ok {
		result.Message = message
	}
	return result
}

// PartitionBatches splits records into ordered batches of at most size. The
// batches partition the input exactly: no overlap, no omission, original
// order preserved.
func PartitionBatches(records []TargetRecord, size int) [][]TargetRecord {
	if size <= 0 {
		size = 1
	}
	var result [][]TargetRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		result = append(result, records[start:end])
	}
	return result
}

// BatchSubmitter submits mapped records to a bulk operation in fixed-size
// sequential batches. One bad batch never blocks subsequent batches: every
// batch is attempted and the report is always complete.
type BatchSubmitter struct {
	Config Config
	Delay  DelayStrategy
}

// bulkAPIBuilder returns a new requests.Builder configured for the session's
// variant host and zone.
func (b BatchSubmitter) bulkAPIBuilder(session Session) *requests.Builder {
	return requests.
		URL(b.Config.Hosts.ForVariant(session.Variant, session.Zone)).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
}

// SubmitAll submits every record through the session, in batches of at most
// Config.Batch.Size, pausing the configured inter-batch delay between
// batches. It fails fast with QuotaExceededError before any network call if
// the record count exceeds the per-run quota; after submission begins it
// always returns a finalized RunReport and a nil error.
func (b BatchSubmitter) SubmitAll(ctx context.Context, records []TargetRecord, session Session, schema OperationSchema) (RunReport, error) {
	limit := b.Config.Batch.MaxRecordsPerRun
	if limit > 0 && len(records) > limit {
		return RunReport{}, &QuotaExceededError{Records: len(records), Limit: limit}
	}

	delay := b.Delay
	if delay == nil {
		delay = SleepDelay
	}

	batches := PartitionBatches(records, b.Config.Batch.Size)
	report := RunReport{TotalRecords: len(records)}
	for i, batch := range batches {
		report.Append(b.submitBatch(ctx, batch, session, schema, i))
		if i < len(batches)-1 {
			// fixed pacing delay, not a backoff: applies regardless of the
			// previous batch's outcome
			delay(ctx, b.Config.Batch.InterBatchDelay())
		}
	}
	return report, nil
}

// submitBatch sends one batch and interprets the outcome. The vendor call is
// atomic per batch, so the result is all-or-nothing: every record in the
// batch counts as succeeded or every record counts as failed.
func (b BatchSubmitter) submitBatch(ctx context.Context, batch []TargetRecord, session Session, schema OperationSchema, index int) BatchResult {
	req := BulkRequest{Schema: schema, Records: batch}
	result := BatchResult{BatchIndex: index, RecordCount: req.ItemCount()}

	if err := req.Validate(); err != nil {
		result.Message = err.Error()
		return result
	}
	body, err := req.Body()
	if err != nil {
		result.Message = err.Error()
		return result
	}

	var raw string
	err = b.bulkAPIBuilder(session).
		Path(schema.Path).
		Param("SESSION_ID", session.Token).
		BodyBytes([]byte(body)).
		ContentType("application/json").
		ToString(&raw).
		Fetch(ctx)
	if err != nil {
		log.Printf("Batch %d submission error: %v", index, err)
		result.Message = err.Error()
		return result
	}

	response := parseBulkResponse(raw)
	if response.IsSuccess() {
		result.Succeeded = true
		if response.Message != "" {
			result.Message = response.Message
		} else {
			result.Message = fmt.Sprintf("vendor confirmed %d records", response.SuccessCount)
		}
		return result
	}

	log.Printf("Batch %d rejected: %v", index, response.GetError())
	result.Message = response.GetError().Error()
	return result
}
