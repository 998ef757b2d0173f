package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/carlmjohnson/requests"
)

// ReportStore persists finished run reports. Persistence is not required for
// the sync core to function; when configured, store failures are logged and
// never abort a completed run.
type ReportStore interface {
	SaveReport(ctx context.Context, tenantID string, report RunReport) error
}

// Notifier delivers a finished run report to the operator.
type Notifier interface {
	NotifyReport(tenantID string, report RunReport) error
}

// SMTPNotifier emails run reports using an SMTP server.
type SMTPNotifier struct {
	Settings SMTPSettings
}

// NewSMTPNotifier constructs an SMTPNotifier, validating the settings it
// cannot work without.
func NewSMTPNotifier(settings SMTPSettings) (*SMTPNotifier, error) {
	if strings.TrimSpace(settings.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if settings.Port == 0 {
		settings.Port = 587
	}
	if strings.TrimSpace(settings.From) == "" || strings.TrimSpace(settings.To) == "" {
		return nil, fmt.Errorf("smtp from and to addresses are required")
	}
	return &SMTPNotifier{Settings: settings}, nil
}

// NotifyReport sends the report summary and per-batch CSV to the configured
// recipient.
func (n *SMTPNotifier) NotifyReport(tenantID string, report RunReport) error {
	body, err := report.FormatCSV()
	if err != nil {
		return fmt.Errorf("failed to format report for tenant %s %w", tenantID, err)
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		n.Settings.From, n.Settings.To, fmt.Sprintf("Sync run for %s: %s", tenantID, report.Summary()))
	message := []byte(headers + body)

	addr := fmt.Sprintf("%s:%d", n.Settings.Host, n.Settings.Port)
	var auth smtp.Auth
	if n.Settings.Username != "" {
		auth = smtp.PlainAuth("", n.Settings.Username, n.Settings.Password, n.Settings.Host)
	}
	if err := smtp.SendMail(addr, auth, n.Settings.From, []string{n.Settings.To}, message); err != nil {
		return fmt.Errorf("failed to send report email for tenant %s %w", tenantID, err)
	}
	return nil
}

// RegistryStatus is the business-registry view of a tax ID.
type RegistryStatus struct {
	IsValid  bool
	IsActive bool
	Status   string
}

// RegistryValidator checks a business registration number against the
// national registry. Used by the intake forms, not by the sync core.
type RegistryValidator interface {
	Validate(ctx context.Context, taxID string) (RegistryStatus, error)
}

// RegistryClient is a thin client for the registry status API.
type RegistryClient struct {
	Config Config
}

func (c RegistryClient) registryAPIBuilder() *requests.Builder {
	return requests.
		URL(c.Config.Registry.Endpoint).
		Param("serviceKey", c.Config.Registry.APIKey).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
}

// Validate looks up the registration status of a single tax ID. Non-digit
// separators are stripped before the call.
func (c RegistryClient) Validate(ctx context.Context, taxID string) (RegistryStatus, error) {
	var digits strings.Builder
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	body := struct {
		BusinessNumbers []string `json:"b_no"`
	}{[]string{digits.String()}}

	var raw string
	err := c.registryAPIBuilder().
		BodyJSON(&body).
		ToString(&raw).
		Fetch(ctx)
	if err != nil {
		return RegistryStatus{}, fmt.Errorf("registry lookup failed for %s %w", taxID, err)
	}

	// unlike the vendor's variant-dependent responses, the registry's shape
	// is fixed, so the fields sit at known paths
	src := NewSource(raw)
	var result RegistryStatus
	if n, ok := src.IntForPath("match_cnt"); ok {
		result.IsValid = n > 0
	}
	if code, ok := src.StringForPath("data.0.b_stt_cd"); ok {
		result.IsActive = code == "01"
	}
	if status, ok := src.StringForPath("data.0.b_stt"); ok {
		result.Status = status
	}
	return result, nil
}
