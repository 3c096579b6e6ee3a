// Package kernelconfig loads the recognized configuration options spec
// §6 names from the environment, grounded on config.EnvConfig's
// prefix-scoped GetString/GetInt/GetBool/GetDuration accessors.
package kernelconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chatman-systems/workflowkernel/doctrine"
)

// EnvConfig reads prefixed environment variables with typed defaults.
type EnvConfig struct {
	prefix string
}

func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		return v
	}
	return defaultValue
}

func (ec *EnvConfig) GetUint32(key string, defaultValue uint32) uint32 {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

// KernelConfig is the process-level configuration spec §6 names:
// doctrine bounds plus the wiring switches (auto_promote, telemetry,
// control surface address, signing keys).
type KernelConfig struct {
	Doctrine doctrine.Doctrine

	AutoPromote       bool
	ControlAddr       string
	TelemetryEnabled  bool
	OTLPEndpoint      string
	MonitorInterval   time.Duration
	SigningKeyRef     string
	SigningKeySecret  string
}

// ConfigLoader loads and validates a KernelConfig from the environment
// under the given prefix (default "KERNEL").
type ConfigLoader struct {
	env *EnvConfig
}

func NewConfigLoader(prefix string) *ConfigLoader {
	if prefix == "" {
		prefix = "KERNEL"
	}
	return &ConfigLoader{env: NewEnvConfig(prefix)}
}

// Load reads every recognized option, falling back to doctrine.Default()
// for anything unset.
func (cl *ConfigLoader) Load() (KernelConfig, error) {
	d := doctrine.Default()
	env := cl.env

	backoffKind := doctrine.BackoffExponential
	if env.GetString("BACKOFF_KIND", "exponential") == "fixed" {
		backoffKind = doctrine.BackoffFixed
	}

	cfg := KernelConfig{
		Doctrine: doctrine.Doctrine{
			MaxHotPathTicks: env.GetUint32("MAX_HOT_PATH_TICKS", d.MaxHotPathTicks),
			MaxRestarts:     env.GetInt("MAX_RESTARTS", d.MaxRestarts),
			RestartWindow:   env.GetDuration("RESTART_WINDOW", d.RestartWindow),
			DefaultBackoff: doctrine.Backoff{
				Kind:    backoffKind,
				Initial: env.GetDuration("BACKOFF_INITIAL", d.DefaultBackoff.Initial),
				Max:     env.GetDuration("BACKOFF_MAX", d.DefaultBackoff.Max),
				Factor:  env.GetFloat("BACKOFF_FACTOR", d.DefaultBackoff.Factor),
			},
			ReceiptLogCapacity:  env.GetInt("RECEIPT_LOG_CAPACITY", d.ReceiptLogCapacity),
			MaxQueueDepth:       env.GetInt("MAX_QUEUE_DEPTH", d.MaxQueueDepth),
			TargetViolationRate: env.GetFloat("TARGET_VIOLATION_RATE", d.TargetViolationRate),
		},
		AutoPromote:      env.GetBool("AUTO_PROMOTE", false),
		ControlAddr:      env.GetString("CONTROL_ADDR", ":8088"),
		TelemetryEnabled: env.GetBool("TELEMETRY_ENABLED", false),
		OTLPEndpoint:     env.GetString("OTLP_ENDPOINT", "http://localhost:4318"),
		MonitorInterval:  env.GetDuration("MONITOR_INTERVAL", 5*time.Second),
		SigningKeyRef:    env.GetString("SIGNING_KEY_REF", "default"),
		SigningKeySecret: env.GetString("SIGNING_KEY_SECRET", ""),
	}

	if err := Validate(cfg); err != nil {
		return KernelConfig{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would violate spec §6's stated
// bounds (a zero Chatman constant, a negative restart budget, a
// violation-rate target outside [0,1]).
func Validate(cfg KernelConfig) error {
	if cfg.Doctrine.MaxHotPathTicks == 0 {
		return fmt.Errorf("kernelconfig: max_hot_path_ticks must be > 0")
	}
	if cfg.Doctrine.MaxRestarts < 0 {
		return fmt.Errorf("kernelconfig: max_restarts must be >= 0")
	}
	if cfg.Doctrine.TargetViolationRate < 0 || cfg.Doctrine.TargetViolationRate > 1 {
		return fmt.Errorf("kernelconfig: target_violation_rate must be within [0,1]")
	}
	return nil
}
