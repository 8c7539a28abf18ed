package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoshPattman/cvwizard/backend"
	"github.com/JoshPattman/cvwizard/datamodels"
	"golang.org/x/time/rate"
)

// RemoteParser sends the upload to the backend's POST /cv/parse endpoint.
type RemoteParser struct {
	client  *backend.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// NewRemoteParser builds a parser that allows at most perSecond outbound parse
// calls (with the given burst) and gives each call timeout to settle.
func NewRemoteParser(client *backend.Client, perSecond float64, burst int, timeout time.Duration, logger *slog.Logger) *RemoteParser {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RemoteParser{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		logger:  logger,
	}
}

func (p *RemoteParser) Parse(ctx context.Context, upload Upload) (datamodels.ParsedCV, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return datamodels.ParsedCV{}, fmt.Errorf("wait for parse slot: %w", err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	tstart := time.Now()
	var raw json.RawMessage
	if err := p.client.PostFile(ctx, "/cv/parse", "file", upload.FileName, upload.MimeType, upload.Data, &raw); err != nil {
		return datamodels.ParsedCV{}, err
	}
	p.logger.Info("Remote parse finished", "file_name", upload.FileName, "time_taken", time.Since(tstart))
	return DecodeParsedCV(unwrapEnvelope(raw))
}

// unwrapEnvelope strips a {"data": {...}} response envelope if present.
func unwrapEnvelope(raw json.RawMessage) json.RawMessage {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && env.Data[0] == '{' {
		return env.Data
	}
	return raw
}
