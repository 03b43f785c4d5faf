package server

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/common"
)

// auditLog appends one JSON object per request to a JSONL file.
type auditLog struct {
	enabled bool
	path    string
	logger  arbor.ILogger
	mu      sync.Mutex
	file    *os.File
}

// auditEvent is the wire format of one audit line. The field set and the
// timestamp format are a stable contract.
type auditEvent struct {
	TS        string `json:"ts"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Client    string `json:"client"`
	HasAPIKey bool   `json:"has_api_key"`
}

func newAuditLog(cfg common.AuditConfig, logger arbor.ILogger) *auditLog {
	return &auditLog{
		enabled: cfg.Enabled,
		path:    cfg.Path,
		logger:  logger,
	}
}

// Record appends one audit line. Audit failures are logged, never
// propagated to the request.
func (a *auditLog) Record(r *http.Request, status int, latency time.Duration) {
	if !a.enabled {
		return
	}

	client := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		client = host
	}

	event := auditEvent{
		TS:        time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Method:    r.Method,
		Path:      r.URL.Path,
		Status:    status,
		LatencyMS: latency.Milliseconds(),
		Client:    client,
		HasAPIKey: r.Header.Get("X-API-Key") != "",
	}

	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to serialize audit event")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to create audit directory")
			return
		}
		f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Failed to open audit log")
			return
		}
		a.file = f
	}

	if _, err := a.file.Write(append(payload, '\n')); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to append audit event")
	}
}

// Close releases the audit file.
func (a *auditLog) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		a.file.Close()
		a.file = nil
	}
}
