// Package triageclient talks to the remote analysis and roadmap service.
package triageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/triage-console/internal/triage"
)

const tracerName = "github.com/joelkehle/triage-console/internal/triageclient"

// StatusError is returned when the service answers with status >= 400.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the default client. The default has no timeout;
// requests end when the caller's context does.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) DoJSON(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, int, error) {
	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, 0, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, resp.StatusCode, fmt.Errorf("read %s %s body: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		serr := &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(blob)}
		span.SetStatus(codes.Error, serr.Error())
		return blob, resp.StatusCode, serr
	}
	return blob, resp.StatusCode, nil
}

// Analyze posts the patient record and symptoms to /api/analyze.
func (c *Client) Analyze(ctx context.Context, in triage.AnalyzeRequest) (triage.AnalyzeResponse, error) {
	if in.Symptoms == nil {
		in.Symptoms = []string{}
	}
	body, err := json.Marshal(in)
	if err != nil {
		return triage.AnalyzeResponse{}, err
	}
	out, _, err := c.DoJSON(ctx, http.MethodPost, "/api/analyze", body, nil)
	if err != nil {
		return triage.AnalyzeResponse{}, err
	}
	var resp triage.AnalyzeResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return triage.AnalyzeResponse{}, fmt.Errorf("decode analyze response: %w: %v", triage.ErrMalformedResponse, err)
	}
	if resp.Results == nil {
		return triage.AnalyzeResponse{}, fmt.Errorf("analyze response missing results: %w", triage.ErrMalformedResponse)
	}
	return resp, nil
}

// Roadmap posts the chosen disease and the active patient id to /api/roadmap.
func (c *Client) Roadmap(ctx context.Context, in triage.RoadmapRequest) (triage.RoadmapResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return triage.RoadmapResponse{}, err
	}
	out, _, err := c.DoJSON(ctx, http.MethodPost, "/api/roadmap", body, nil)
	if err != nil {
		return triage.RoadmapResponse{}, err
	}
	var resp triage.RoadmapResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return triage.RoadmapResponse{}, fmt.Errorf("decode roadmap response: %w: %v", triage.ErrMalformedResponse, err)
	}
	if resp.Roadmap == nil {
		return triage.RoadmapResponse{}, fmt.Errorf("roadmap response missing roadmap: %w", triage.ErrMalformedResponse)
	}
	return resp, nil
}

var _ triage.Backend = (*Client)(nil)
