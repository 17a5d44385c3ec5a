package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// Transport budgets for intake calls. Connect, response header and whole
// request are each capped at six seconds, so a stuck endpoint cannot hold a
// send slot for long.
const (
	connectTimeout  = 6 * time.Second
	responseTimeout = 6 * time.Second
	requestTimeout  = 6 * time.Second
)

// Every payload this pipeline produces carries the same source and service
// identifiers.
const (
	logSource  = "cportal"
	logService = "cportal"
)

// logEntry is the wire shape of one record in the intake payload.
type logEntry struct {
	DDSource string `json:"ddsource"`
	DDTags   string `json:"ddtags"`
	Hostname string `json:"hostname"`
	Message  string `json:"message"`
	Service  string `json:"service"`
}

// Sender implements ports.BatchSender against a Datadog-style log intake:
// a JSON array of entries, gzip-compressed, POSTed in one request.
type Sender struct {
	url    string
	apiKey string
	client ports.HTTPClient
	logger log.Logger
}

// NewSender creates a sender bound to one intake URL and API key.
func NewSender(url, apiKey string, client ports.HTTPClient, logger log.Logger) *Sender {
	return &Sender{
		url:    url,
		apiKey: apiKey,
		client: client,
		logger: logger,
	}
}

// NewDefaultClient builds the HTTP client used when the caller does not
// supply one. Connection slots match the worker pool size, so the transport
// never opens more sockets than there are concurrent sends.
func NewDefaultClient(maxConns int) *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
			ResponseHeaderTimeout: responseTimeout,
			MaxConnsPerHost:       maxConns,
			MaxIdleConnsPerHost:   maxConns,
		},
	}
}

// Send posts the batch and returns the compressed payload size. Only a 202
// from the intake counts as success; any other outcome is an error and the
// caller discards the batch.
func (s *Sender) Send(ctx context.Context, batch *domain.Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	// Build entries
	entries := make([]logEntry, len(batch.Records))
	for i, rec := range batch.Records {
		message, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("marshal record: %w", err)
		}
		entries[i] = logEntry{
			DDSource: logSource,
			DDTags: fmt.Sprintf("vdom:%s,lb_partition:%s,log_type:%s",
				rec.StringField("vdom"),
				rec.StringField("lb_partition"),
				rec.StringField("log_type")),
			Hostname: rec.StringField("hostname"),
			Message:  string(message),
			Service:  logService,
		}
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	// Compress
	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	if _, err := zw.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalize compression: %w", err)
	}
	size := body.Len()

	// Build request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	// Set headers. The API key header is always present, even with an empty
	// key; the intake answers with a status the caller can log.
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("DD-API-KEY", s.apiKey)

	s.logger.Debug("posting batch to intake",
		log.String("batch_id", batch.ID),
		log.Int("records", batch.Size()),
		log.Int("compressed_bytes", size))

	// Send request
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Check response
	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("intake returned %d: %s", resp.StatusCode, string(respBody))
	}

	return size, nil
}
