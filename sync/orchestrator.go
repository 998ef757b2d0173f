package sync

import (
	"context"
	"log"
)

// Runner coordinates one sync run: validate mapping, resolve zone, acquire
// session, map fields, submit batches. A Runner owns its run's Zone, Session
// and RunReport exclusively; independent runs each get their own Runner and
// share no mutable state.
type Runner struct {
	Config   Config
	Delay    DelayStrategy // nil means the production SleepDelay
	Store    ReportStore   // optional
	Notifier Notifier      // optional

	// zone is cached after first resolution and constant for the run
	zone string
}

// NewRunner returns a Runner for a single sync run.
func NewRunner(config Config) *Runner {
	return &Runner{Config: config}
}

// ResolveZone resolves the tenant's zone, caching it so repeated calls
// within the run return the same zone without a second network call.
func (r *Runner) ResolveZone(ctx context.Context, tenantID string) (string, error) {
	if r.zone != "" {
		return r.zone, nil
	}
	zone, err := ZoneResolver{Config: r.Config}.ResolveZone(ctx, tenantID)
	if err != nil {
		return "", err
	}
	r.zone = zone
	return zone, nil
}

// RunSync executes the full pipeline. Any failure before submission begins
// (mapping validation, zone resolution, session acquisition, quota check)
// aborts the run with a single typed error and no report. Once submission
// begins the run always completes to a full RunReport; batch errors are
// recorded in the report, never escalated.
func (r *Runner) RunSync(ctx context.Context, cred TenantCredential, records []Record, mapping FieldMapping, schema OperationSchema) (RunReport, error) {
	if err := ValidateMapping(mapping, schema); err != nil {
		return RunReport{}, err
	}

	zone, err := r.ResolveZone(ctx, cred.TenantID)
	if err != nil {
		return RunReport{}, err
	}

	session, err := SessionAcquirer{Config: r.Config}.AcquireSession(ctx, cred, zone)
	if err != nil {
		return RunReport{}, err
	}

	targets := ApplyMappingAll(records, mapping)

	submitter := BatchSubmitter{Config: r.Config, Delay: r.Delay}
	report, err := submitter.SubmitAll(ctx, targets, session, schema)
	if err != nil {
		// quota check failed before any batch was sent
		return RunReport{}, err
	}

	log.Printf("Sync run for tenant %s finished: %s", cred.TenantID, report.Summary())

	// Collaborators run after the report is final and are off the critical
	// path: their failures are logged, not propagated.
	if r.Store != nil {
		if err := r.Store.SaveReport(ctx, cred.TenantID, report); err != nil {
			log.Printf("Failed to save report for tenant %s: %v", cred.TenantID, err)
		}
	}
	if r.Notifier != nil {
		if err := r.Notifier.NotifyReport(cred.TenantID, report); err != nil {
			log.Printf("Failed to send report notification for tenant %s: %v", cred.TenantID, err)
		}
	}

	return report, nil
}
