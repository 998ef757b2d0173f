package sync

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/config"
)

// Config holds all settings for a sync run. Every field has a working
// default; YAML sources and environment variables only override.
type Config struct {
	Hosts    HostSettings
	Batch    BatchSettings
	Auth     AuthSettings
	SMTP     SMTPSettings
	Registry RegistrySettings
}

// HostSettings identifies the vendor endpoints. The production and sandbox
// values are templates containing a "{zone}" placeholder which is substituted
// with the zone code resolved for the tenant.
type HostSettings struct {
	Zone       string
	Production string
	Sandbox    string
}

// ForVariant returns the base URL for the given environment variant and zone.
func (h HostSettings) ForVariant(v Variant, zone string) string {
	template := h.Production
	if v == VariantSandbox {
		template = h.Sandbox
	}
	return strings.Replace(template, "{zone}", zone, 1)
}

type BatchSettings struct {
	Size              int `yaml:"batchSize"`
	InterBatchDelayMs int `yaml:"interBatchDelayMs"`
	MaxRecordsPerRun  int `yaml:"maxRecordsPerRun"`
}

// InterBatchDelay returns the fixed pacing delay applied between batches.
func (b BatchSettings) InterBatchDelay() time.Duration {
	return time.Duration(b.InterBatchDelayMs) * time.Millisecond
}

// AuthSettings controls the login handshake. The signal slices are matched as
// case-insensitive substrings against vendor messages to detect that a
// credential belongs to the other environment variant (the vendor localises
// the exact wording, so the substrings are configurable).
type AuthSettings struct {
	Language             string
	ProductionKeySignals []string `yaml:"productionKeySignals"`
	SandboxKeySignals    []string `yaml:"sandboxKeySignals"`
}

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type RegistrySettings struct {
	Endpoint string
	APIKey   string `yaml:"apiKey"`
}

// DefaultConfig returns the configuration used when no YAML source overrides
// a setting. The host defaults follow the vendor's published endpoints.
func DefaultConfig() Config {
	return Config{
		Hosts: HostSettings{
			Zone:       "https://oapi.ecount.com",
			Production: "https://oapi{zone}.ecount.com",
			Sandbox:    "https://sboapi{zone}.ecount.com",
		},
		Batch: BatchSettings{
			Size:              300,
			InterBatchDelayMs: 1000,
			MaxRecordsPerRun:  30000,
		},
		Auth: AuthSettings{
			Language:             "en-US",
			ProductionKeySignals: []string{"production server", "production-only", "official key"},
			SandboxKeySignals:    []string{"test server", "sandbox", "test key"},
		},
		SMTP: SMTPSettings{
			Port: 587,
		},
		Registry: RegistrySettings{
			Endpoint: "https://api.odcloud.kr/api/nts-businessman/v1/status",
		},
	}
}

// CompositeEnvVar looks up child values inside a composite environment
// variable, allowing one env var to carry several related secrets.
type CompositeEnvVar interface {
	LookupEnv(child string) (string, bool)
}

// JSONCompositeEnvVar reads child values from a parent environment variable
// whose value is a JSON object of strings.
type JSONCompositeEnvVar struct {
	Parent string
}

func (c JSONCompositeEnvVar) LookupEnv(child string) (string, bool) {
	if c.Parent != "" {
		s := os.Getenv(c.Parent)
		if s != "" {
			m := make(map[string]string)
			err := json.Unmarshal([]byte(s), &m)
			if err == nil {
				v, exists := m[child]
				return v, exists
			}
		}
	}
	return "", false
}

// ConfigUnmarshaler loads a Config from one or more sources.
type ConfigUnmarshaler interface {
	Unmarshal(compev CompositeEnvVar, sources ...io.Reader) (Config, error)
}

// YAMLConfigUnmarshaler loads a Config from YAML sources layered over
// DefaultConfig. Values of the form ${CHILD} in the YAML are expanded through
// the provided CompositeEnvVar.
type YAMLConfigUnmarshaler struct{}

func (u YAMLConfigUnmarshaler) Unmarshal(compev CompositeEnvVar, sources ...io.Reader) (Config, error) {
	result := DefaultConfig()
	var options []config.YAMLOption
	for _, s := range sources {
		options = append(options, config.Source(s))
	}
	if compev != nil {
		options = append(options, config.Expand(compev.LookupEnv))
	}
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "hosts"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Hosts)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "batch"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Batch)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "auth"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Auth)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "smtp"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.SMTP)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "registry"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Registry)
		if err != nil {
			return result, readError(key, err)
		}
	}
	return result, nil
}

// LoadConfig reads configuration from the given YAML sources layered over the
// defaults, expanding ${...} references through compev.
func LoadConfig(compev CompositeEnvVar, sources ...io.Reader) (Config, error) {
	return YAMLConfigUnmarshaler{}.Unmarshal(compev, sources...)
}
