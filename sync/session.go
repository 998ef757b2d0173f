package sync

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
)

const (
	loginPath = "/OAPI/V2/OAPILogin"

	// sessionTokenKey is searched for case-insensitively at the shallowest
	// depth of the login response; the vendor nests it at different paths
	// depending on the environment variant.
	sessionTokenKey = "SESSION_ID"

	// vendorMessageKey carries the vendor's diagnostic text, including the
	// variant mismatch signals.
	vendorMessageKey = "Message"
)

// Variant is the vendor environment a credential belongs to. The same
// logical login operation exists under two host-name variants and a given
// credential only works against one of them.
type Variant int

const (
	VariantProduction Variant = iota
	VariantSandbox
)

func (v Variant) String() string {
	if v == VariantSandbox {
		return "sandbox"
	}
	return "production"
}

// Other returns the opposite environment variant.
func (v Variant) Other() Variant {
	if v == VariantSandbox {
		return VariantProduction
	}
	return VariantSandbox
}

// TenantCredential identifies the tenant, user and API certificate key for a
// run. Immutable for the lifetime of the run.
type TenantCredential struct {
	TenantID  string
	UserID    string
	APISecret string
}

// Session is a short-lived vendor session. It is acquired once, owned
// exclusively by its run, and discarded at run end. No mid-run renewal is
// attempted; an expired session surfaces as a batch failure.
type Session struct {
	Token   string
	Variant Variant
	Zone    string
}

// GuessVariant guesses the environment variant from the credential's shape
// alone: secrets that carry "test" or run long are issued by the sandbox.
// It is a pure function so the heuristic can be tested in isolation.
func GuessVariant(apiSecret string) Variant {
	if strings.Contains(strings.ToLower(apiSecret), "test") || len(apiSecret) >= 40 {
		return VariantSandbox
	}
	return VariantProduction
}

// mismatchVariant inspects a vendor message for a variant mismatch signal
// and returns the variant the message says the credential belongs to.
func (a AuthSettings) mismatchVariant(message string) (Variant, bool) {
	m := strings.ToLower(message)
	for _, signal := range a.ProductionKeySignals {
		if strings.Contains(m, strings.ToLower(signal)) {
			return VariantProduction, true
		}
	}
	for _, signal := range a.SandboxKeySignals {
		if strings.Contains(m, strings.ToLower(signal)) {
			return VariantSandbox, true
		}
	}
	return 0, false
}

// acquireState is the state of the login handshake. The handshake guesses a
// variant, falls back exactly once to the other variant (on outright call
// failure or an explicit vendor mismatch signal) and never loops further.
type acquireState int

const (
	stateGuessA acquireState = iota
	stateGuessB
	stateAcquired
	stateFailed
)

// SessionAcquirer exchanges a tenant credential for a session token.
type SessionAcquirer struct {
	Config Config
}

// loginAPIBuilder returns a new requests.Builder configured for the given
// variant host and zone.
func (a SessionAcquirer) loginAPIBuilder(variant Variant, zone string) *requests.Builder {
	return requests.
		URL(a.Config.Hosts.ForVariant(variant, zone)).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
}

// AcquireSession attempts the login handshake, trying at most two distinct
// environment variants before failing with an AuthError carrying the last
// observed vendor message.
func (a SessionAcquirer) AcquireSession(ctx context.Context, cred TenantCredential, zone string) (Session, error) {
	variant := GuessVariant(cred.APISecret)
	attempted := make(map[Variant]bool)
	var session Session
	var lastMessage string
	var lastErr error

	state := stateGuessA
	for {
		switch state {
		case stateGuessA, stateGuessB:
			attempted[variant] = true
			raw, err := a.login(ctx, cred, zone, variant)
			if err != nil {
				lastErr = err
				// outright call failure: retry once against the other variant
				if !attempted[variant.Other()] {
					variant = variant.Other()
					state = stateGuessB
					continue
				}
				state = stateFailed
				continue
			}
			root := gjson.Parse(raw)
			if token, ok := FindStringShallowest(root, sessionTokenKey); ok {
				session = Session{Token: token, Variant: variant, Zone: zone}
				state = stateAcquired
				continue
			}
			if message, ok := FindStringShallowest(root, vendorMessageKey); ok {
				lastMessage = message
				// follow an explicit mismatch signal to the indicated
				// variant, at most one correction hop
				if indicated, signalled := a.Config.Auth.mismatchVariant(message); signalled && !attempted[indicated] {
					log.Printf("Vendor reports %s credential, retrying login on %s variant", indicated, indicated)
					variant = indicated
					state = stateGuessB
					continue
				}
			}
			state = stateFailed

		case stateAcquired:
			return session, nil

		case stateFailed:
			return Session{}, &AuthError{VendorMessage: lastMessage, Variant: variant, Cause: lastErr}
		}
	}
}

func (a SessionAcquirer) login(ctx context.Context, cred TenantCredential, zone string, variant Variant) (string, error) {
	body := struct {
		ComCode    string `json:"COM_CODE"`
		UserID     string `json:"USER_ID"`
		APICertKey string `json:"API_CERT_KEY"`
		LanType    string `json:"LAN_TYPE"`
		Zone       string `json:"ZONE"`
	}{
		ComCode:    cred.TenantID,
		UserID:     cred.UserID,
		APICertKey: cred.APISecret,
		LanType:    a.Config.Auth.Language,
		Zone:       zone,
	}

	var raw string
	err := a.loginAPIBuilder(variant, zone).
		Path(loginPath).
		BodyJSON(&body).
		ToString(&raw).
		Fetch(ctx)
	if err != nil {
		log.Printf("Login error on %s variant: %v", variant, err)
		return "", err
	}
	if !gjson.Valid(raw) {
		log.Printf("Invalid login response:\n%s", raw)
		return "", errors.New("invalid json response")
	}
	return raw, nil
}
