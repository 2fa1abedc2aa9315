package signal

import (
	"context"
	"net/http"

	"github.com/crewpulse/crewpulse/internal/config"
)

// GatewayProbe checks whether the execution backend is reachable. This is
// the fleet-wide gate: when it reports down, every agent is forced offline
// regardless of its individual signals.
type GatewayProbe struct {
	url    string
	client *http.Client
}

// NewGatewayProbe creates a probe for the given health URL. An empty URL
// yields a probe that always reports no data.
func NewGatewayProbe(url string) *GatewayProbe {
	return &GatewayProbe{
		url:    url,
		client: &http.Client{Timeout: config.GatewayProbeTimeout},
	}
}

// Probe performs one bounded health check.
//
// The policy is fail-to-unhealthy: any transport error, timeout, or non-2xx
// response sets the flag to false rather than reporting unknown. A nil flag
// (no data) is returned only when no health URL is configured at all.
func (p *GatewayProbe) Probe(ctx context.Context) Sample {
	s := Sample{Source: SourceGateway}
	if p.url == "" {
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, config.GatewayProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		s.Flag = boolPtr(false)
		return s
	}

	resp, err := p.client.Do(req)
	if err != nil {
		s.Flag = boolPtr(false)
		return s
	}
	defer resp.Body.Close()

	s.Flag = boolPtr(resp.StatusCode >= 200 && resp.StatusCode < 300)
	return s
}
