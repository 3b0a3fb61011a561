package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/deepgram/threadgate/internal/services/extract"
	"github.com/rs/zerolog/log"
)

// Status is the coarse state of an upstream run
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

var statusFields = []string{"status", "state", "run_status"}

// Classify maps a free-form upstream status onto Status, ignoring case
func Classify(status string) Status {
	switch strings.ToLower(status) {
	case "completed", "succeeded", "success", "done":
		return StatusCompleted
	case "failed", "error", "cancelled":
		return StatusFailed
	default:
		return StatusPending
	}
}

// StatusOf reads the first present status field of a run payload
func StatusOf(payload interface{}) string {
	doc := extract.Parse(payload)
	for _, field := range statusFields {
		if status := extract.FieldOf(doc, field); status != "" {
			return strings.ToLower(status)
		}
	}
	return ""
}

// RunFailedError is returned when the run reached a terminal failure status
type RunFailedError struct {
	RunID   string
	Payload interface{}
}

func (e *RunFailedError) Error() string {
	return "run failed: " + e.PayloadJSON()
}

// PayloadJSON renders the failing payload for diagnostics
func (e *RunFailedError) PayloadJSON() string {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Sprintf("%v", e.Payload)
	}
	return string(raw)
}

// TimeoutError is returned when no terminal status arrived in time
type TimeoutError struct {
	RunID   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("polling run %s timed out after %s", e.RunID, e.Timeout)
}

// RunFetcher fetches the current state of a run
type RunFetcher interface {
	GetRun(ctx context.Context, token, runID string) (interface{}, error)
}

// Poller waits for a run to finish by querying its status at a fixed interval
type Poller struct {
	fetcher  RunFetcher
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewPoller(fetcher RunFetcher, timeout, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
	}
}

// Wait polls runID until it completes, fails, or the timeout passes. Fetch
// errors are returned immediately; only a pending status is retried.
func (p *Poller) Wait(ctx context.Context, runID, token string) (interface{}, error) {
	start := p.now()
	attempt := 0

	for {
		attempt++
		payload, err := p.fetcher.GetRun(ctx, token, runID)
		if err != nil {
			return nil, err
		}

		status := StatusOf(payload)
		switch Classify(status) {
		case StatusCompleted:
			log.Debug().Str("run_id", runID).Int("attempts", attempt).Str("status", status).Msg("Run completed")
			return payload, nil
		case StatusFailed:
			log.Warn().Str("run_id", runID).Int("attempts", attempt).Str("status", status).Msg("Run failed")
			return nil, &RunFailedError{RunID: runID, Payload: payload}
		}

		if elapsed := p.now().Sub(start); elapsed >= p.timeout {
			log.Warn().Str("run_id", runID).Int("attempts", attempt).Dur("elapsed", elapsed).Msg("Run polling timed out")
			return nil, &TimeoutError{RunID: runID, Timeout: p.timeout}
		}

		log.Trace().Str("run_id", runID).Int("attempt", attempt).Str("status", status).Msg("Run still pending")

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
