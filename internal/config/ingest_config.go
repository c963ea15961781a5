package config

import (
	"strings"
	"time"
)

type IngestConfig interface {
	// GetBackendBaseURL is empty when the ingestion integration is disabled.
	GetBackendBaseURL() string
	GetIngestTimeout() time.Duration
}

type Ingest struct {
	BackendBaseURL string        `env:"BACKEND_BASE_URL"`
	Timeout        time.Duration `env:"INGEST_TIMEOUT" envDefault:"10s"`
}

func (i Ingest) GetBackendBaseURL() string {
	return strings.TrimRight(i.BackendBaseURL, "/")
}

func (i Ingest) GetIngestTimeout() time.Duration {
	return i.Timeout
}
