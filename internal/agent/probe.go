package agent

import (
	"context"
	"sync"
	"time"

	"github.com/dusk-indust/agentflow/internal/a2a"
)

// DefaultProbeTimeout bounds a single agent card fetch.
const DefaultProbeTimeout = 2 * time.Second

// ProbeResult is the reachability of one remote agent.
type ProbeResult struct {
	Name     string
	Endpoint string
	Card     *a2a.AgentCard
	Err      error
	Latency  time.Duration
}

// Healthy reports whether the agent answered with a card.
func (p ProbeResult) Healthy() bool { return p.Err == nil && p.Card != nil }

// Probe fetches the agent card of every remote concurrently. Results keep
// the order of remotes.
func Probe(ctx context.Context, client a2a.Client, remotes []*Remote, timeout time.Duration) []ProbeResult {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	results := make([]ProbeResult, len(remotes))
	var wg sync.WaitGroup
	for i, r := range remotes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = probeOne(ctx, client, r, timeout)
		}()
	}
	wg.Wait()
	return results
}

func probeOne(ctx context.Context, client a2a.Client, r *Remote, timeout time.Duration) ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	card, err := client.DiscoverAgent(probeCtx, r.Endpoint)
	return ProbeResult{
		Name:     r.Name,
		Endpoint: r.Endpoint,
		Card:     card,
		Err:      err,
		Latency:  time.Since(start),
	}
}
