package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/rollcall/internal/setup/config"
)

// ErrUnexpectedStatusCode is returned when Loki responds with an unexpected status code.
var ErrUnexpectedStatusCode = errors.New("unexpected status code from Loki")

const (
	pushMaxRetries     = 3
	pushInitialBackoff = 200 * time.Millisecond
	pushMaxElapsed     = 10 * time.Second
)

// Pusher handles batching and sending log entries to Loki.
type Pusher struct {
	config    config.Loki
	cancel    context.CancelFunc
	client    *http.Client
	quit      chan struct{}
	entry     chan logEntry
	waitGroup sync.WaitGroup
	logsBatch []streamValue
	pushURL   string
}

// NewPusher creates a new Loki pusher with the given configuration. The pusher
// keeps the values of ctx but not its cancellation; it runs until Stop.
func NewPusher(ctx context.Context, config config.Loki) *Pusher {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pusher := &Pusher{
		config:    config,
		cancel:    cancel,
		client:    &http.Client{Timeout: 10 * time.Second},
		quit:      make(chan struct{}),
		entry:     make(chan logEntry, config.BatchMaxSize*2),
		logsBatch: make([]streamValue, 0, config.BatchMaxSize),
		pushURL:   config.URL + "/loki/api/v1/push",
	}

	pusher.waitGroup.Add(1)

	go pusher.run(ctx)

	return pusher
}

// AddEntry queues a log entry. Entries are dropped when the queue is full.
func (p *Pusher) AddEntry(entry logEntry) {
	select {
	case p.entry <- entry:
	default:
		slog.Warn("Loki entry channel full, dropping log entry")
	}
}

// Stop flushes the pending batch and shuts down the pusher.
func (p *Pusher) Stop() {
	close(p.quit)
	p.waitGroup.Wait()
	p.cancel()
}

// run is the main goroutine that handles batching and sending logs.
func (p *Pusher) run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(p.config.BatchMaxWaitMS) * time.Millisecond)
	defer ticker.Stop()

	defer func() {
		// Drain what was queued before Stop
		for drained := false; !drained; {
			select {
			case entry := <-p.entry:
				p.logsBatch = append(p.logsBatch, createStreamValue(entry))
			default:
				drained = true
			}
		}

		flushCtx, cancel := context.WithTimeout(ctx, pushMaxElapsed)
		defer cancel()

		if err := p.flush(flushCtx); err != nil {
			slog.Error("failed to send final Loki batch", slog.Any("error", err))
		}

		p.waitGroup.Done()
	}()

	for {
		select {
		case <-p.quit:
			return
		case entry := <-p.entry:
			p.logsBatch = append(p.logsBatch, createStreamValue(entry))

			if len(p.logsBatch) >= p.config.BatchMaxSize {
				if err := p.flush(ctx); err != nil {
					slog.Error("failed to send Loki batch", slog.Any("error", err))
				}
			}
		case <-ticker.C:
			if err := p.flush(ctx); err != nil {
				slog.Error("failed to send Loki batch", slog.Any("error", err))
			}
		}
	}
}

// createStreamValue converts a logEntry to a Loki stream value.
func createStreamValue(entry logEntry) streamValue {
	return streamValue{strconv.FormatInt(entry.timestampNano, 10), entry.line}
}

// flush sends the current batch and resets it regardless of the outcome.
func (p *Pusher) flush(ctx context.Context) error {
	if len(p.logsBatch) == 0 {
		return nil
	}
	defer func() { p.logsBatch = p.logsBatch[:0] }()

	payload, err := p.encode()
	if err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = pushInitialBackoff
	policy.MaxElapsedTime = pushMaxElapsed

	return backoff.Retry(func() error {
		return p.send(ctx, payload)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, pushMaxRetries), ctx))
}

// encode builds the gzip compressed push request for the current batch.
func (p *Pusher) encode() ([]byte, error) {
	// All entries share the same labels, so create a single stream
	pushRequest := lokiPushRequest{
		Streams: []stream{{
			Stream: p.config.Labels,
			Values: p.logsBatch,
		}},
	}

	raw, err := sonic.Marshal(pushRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}

	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}

	return buf.Bytes(), nil
}

// send transmits one payload to Loki. Client errors other than rate limiting
// are not retried.
func (p *Pusher) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.pushURL, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode))
	}
}
