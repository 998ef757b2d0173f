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

const zonePath = "/OAPI/V2/Zone"

// ZoneResolver determines the regional endpoint shard for a tenant. All
// subsequent calls for the same run must use the zone it returns.
type ZoneResolver struct {
	Config Config
}

// zoneAPIBuilder returns a new requests.Builder configured for the zoneless
// vendor host.
func (r ZoneResolver) zoneAPIBuilder() *requests.Builder {
	return requests.
		URL(r.Config.Hosts.Zone).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
}

// ResolveZone calls the vendor's zone endpoint for the tenant. Network
// failure, a non-success status and a missing zone field all map to
// ZoneResolutionError, which is fatal for the run.
func (r ZoneResolver) ResolveZone(ctx context.Context, tenantID string) (string, error) {
	if strings.TrimSpace(tenantID) == "" {
		return "", &ZoneResolutionError{TenantID: tenantID, Cause: errors.New("tenant id is required")}
	}

	body := struct {
		ComCode string `json:"COM_CODE"`
	}{tenantID}

	var raw string
	err := r.zoneAPIBuilder().
		Path(zonePath).
		BodyJSON(&body).
		ToString(&raw).
		Fetch(ctx)
	if err != nil {
		log.Printf("Zone resolution error for tenant %s: %v", tenantID, err)
		return "", &ZoneResolutionError{TenantID: tenantID, Cause: err}
	}
	if !gjson.Valid(raw) {
		log.Printf("Invalid zone response:\n%s", raw)
		return "", &ZoneResolutionError{TenantID: tenantID, Cause: errors.New("invalid json response")}
	}

	zone, ok := FindStringShallowest(gjson.Parse(raw), "ZONE")
	if !ok {
		return "", &ZoneResolutionError{TenantID: tenantID, Cause: errors.New("zone missing from response")}
	}
	return zone, nil
}
