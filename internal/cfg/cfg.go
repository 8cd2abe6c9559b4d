package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config holds the service-specific settings. Shared settings (logging,
// tracing, profiling, ops server) are registered by their own packages.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	ArtifactDir        string
	ArtifactS3Bucket   string
	ArtifactS3Prefix   string
	ArtifactS3Endpoint string
	ONNXLibrary        string

	DatabaseURL string
	APITokens   string

	SlackWebhookURL string
	KafkaBrokers    string
	KafkaTopic      string

	ValidateVitals bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ArtifactDir, "artifact-dir", "", "directory holding the model bundle (download target when an S3 bucket is set)")
	fs.StringVar(&c.ArtifactS3Bucket, "artifact-s3-bucket", "", "S3 bucket to fetch the model bundle from")
	fs.StringVar(&c.ArtifactS3Prefix, "artifact-s3-prefix", "", "key prefix of the model bundle in the S3 bucket")
	fs.StringVar(&c.ArtifactS3Endpoint, "artifact-s3-endpoint", "", "custom S3 endpoint URL (MinIO, localstack)")
	fs.StringVar(&c.ONNXLibrary, "onnxruntime-library", "", "path to the onnxruntime shared library (empty = ONNXRUNTIME_SHARED_LIBRARY_PATH; startup fails if neither is set)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.APITokens, "api-tokens", "", "comma-separated caller=token bearer credentials for /api/v1 (empty = no auth)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for flagged-decision review requests")
	fs.StringVar(&c.KafkaBrokers, "kafka-brokers", "", "comma-separated Kafka brokers for review events (empty = disabled)")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", "triage-reviews", "Kafka topic for review events")
	fs.BoolVar(&c.ValidateVitals, "validate-vitals", true, "reject vital signs outside physiological ranges")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The service refuses to start without a model bundle
	if c.ArtifactDir == "" && c.ArtifactS3Bucket == "" {
		errs = append(errs, errors.New("one of ARTIFACT_DIR or ARTIFACT_S3_BUCKET is required"))
	}
	if c.ArtifactS3Bucket == "" && (c.ArtifactS3Prefix != "" || c.ArtifactS3Endpoint != "") {
		errs = append(errs, errors.New("ARTIFACT_S3_PREFIX and ARTIFACT_S3_ENDPOINT require ARTIFACT_S3_BUCKET"))
	}

	if len(c.Brokers()) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Tokens returns the API token entries.
func (c *Config) Tokens() []string { return splitList(c.APITokens) }

// Brokers returns the Kafka broker addresses.
func (c *Config) Brokers() []string { return splitList(c.KafkaBrokers) }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
