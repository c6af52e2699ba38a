package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/internal/metrics"
	"thirdplace-webhooks/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	// dispatchUserAgent identifies the dispatcher to receiving endpoints.
	dispatchUserAgent = "thirdplace-webhooks/1.0"

	// SignatureHeader carries the HMAC of the request body.
	SignatureHeader = "X-Webhook-Signature"

	defaultBatchSize = 50

	// maxResponseRead bounds how much of an untrusted endpoint's response
	// is read off the wire before truncation to ResponseBodyMaxChars.
	maxResponseRead = 4096
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DispatchOptions tunes one dispatcher instance.
type DispatchOptions struct {
	// BatchSize caps rows examined per cycle. Defaults to 50.
	BatchSize int
	// ClaimTTL is the lease passed to the claim store. Ignored when no
	// claim store is wired.
	ClaimTTL time.Duration
}

// dispatchService implements ports.DispatchService.
type dispatchService struct {
	deliveryRepo ports.WebhookDeliveryRepository
	encSvc       ports.EncryptionService
	sigSvc       ports.SignatureService
	claims       ports.DeliveryClaimStore // nil = claiming disabled
	httpClient   HTTPClient
	log          zerolog.Logger
	batchSize    int
	claimTTL     time.Duration
}

// NewDispatchService creates the webhook dispatcher. claims may be nil, in
// which case overlapping invocations can double-send (receivers are
// expected to be idempotent).
func NewDispatchService(
	deliveryRepo ports.WebhookDeliveryRepository,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	claims ports.DeliveryClaimStore,
	httpClient HTTPClient,
	log zerolog.Logger,
	opts DispatchOptions,
) ports.DispatchService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = time.Minute
	}
	return &dispatchService{
		deliveryRepo: deliveryRepo,
		encSvc:       encSvc,
		sigSvc:       sigSvc,
		claims:       claims,
		httpClient:   httpClient,
		log:          log,
		batchSize:    opts.BatchSize,
		claimTTL:     opts.ClaimTTL,
	}
}

// RunCycle drains one bounded batch of the pending-delivery queue. Rows are
// attempted sequentially; one row's failure never aborts the rest. Only a
// queue read failure fails the cycle, and then no row has been touched.
func (s *dispatchService) RunCycle(ctx context.Context) (*ports.DispatchSummary, error) {
	jobs, err := s.deliveryRepo.SelectPendingBatch(ctx, s.batchSize)
	if err != nil {
		return nil, apperror.ErrQueueRead(err)
	}

	metrics.DispatchCycles.Inc()
	metrics.DispatchBatchSize.Observe(float64(len(jobs)))

	summary := &ports.DispatchSummary{Total: len(jobs)}
	for i := range jobs {
		job := &jobs[i]

		if s.claims != nil {
			won, err := s.claims.TryClaim(ctx, job.Delivery.ID, s.claimTTL)
			if err != nil {
				// Claiming is best effort; fall through to the send.
				s.log.Warn().Err(err).Str("delivery_id", job.Delivery.ID.String()).Msg("claim store error, attempting without claim")
			} else if !won {
				// Another invocation owns this row; neither processed nor failed.
				s.log.Debug().Str("delivery_id", job.Delivery.ID.String()).Msg("delivery claimed elsewhere, skipping")
				continue
			}
		}

		if s.deliverOne(ctx, job) {
			summary.Processed++
		} else {
			summary.Failed++
		}
	}

	s.log.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Int("total", summary.Total).
		Msg("dispatch cycle complete")

	return summary, nil
}

// deliverOne performs a single attempt for one delivery and persists the
// outcome. Returns true if the delivery transitioned to delivered.
func (s *dispatchService) deliverOne(ctx context.Context, job *domain.DeliveryJob) bool {
	d := &job.Delivery
	attempts := d.Attempts + 1

	// The payload is serialized exactly once by the producer: the same
	// bytes are signed and sent, so the receiver's HMAC matches.
	payload := []byte(d.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(payload))
	if err != nil {
		return s.recordFailure(ctx, d, attempts, nil, fmt.Sprintf("building request: %v", err), 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", dispatchUserAgent)

	if job.SecretKeyEnc != nil && *job.SecretKeyEnc != "" {
		secret, err := s.encSvc.Decrypt(*job.SecretKeyEnc)
		if err != nil {
			return s.recordFailure(ctx, d, attempts, nil, fmt.Sprintf("decrypting signing secret: %v", err), 0)
		}
		req.Header.Set(SignatureHeader, s.sigSvc.Sign(secret, payload))
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return s.recordFailure(ctx, d, attempts, nil, err.Error(), elapsed)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseRead))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		truncated := domain.Truncate(string(body), domain.ResponseBodyMaxChars)
		if err := s.deliveryRepo.MarkDelivered(ctx, d.ID, attempts, resp.StatusCode, truncated); err != nil {
			s.log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("failed to persist delivered status")
			return false
		}

		metrics.Deliveries.WithLabelValues(d.EventType, "delivered").Inc()
		metrics.DeliveryLatency.WithLabelValues(d.EventType, "delivered").Observe(float64(elapsed.Milliseconds()))
		s.log.Info().
			Str("delivery_id", d.ID.String()).
			Str("event_type", d.EventType).
			Int("attempt", attempts).
			Int("status", resp.StatusCode).
			Msg("webhook delivered")
		return true
	}

	status := resp.StatusCode
	msg := fmt.Sprintf("endpoint returned %d: %s", status, body)
	return s.recordFailure(ctx, d, attempts, &status, msg, elapsed)
}

// recordFailure persists a failed attempt. The repository marks the row
// failed once attempts reaches the ceiling, otherwise it stays pending and
// eligible for a later cycle. Always returns false.
func (s *dispatchService) recordFailure(ctx context.Context, d *domain.WebhookDelivery, attempts int, responseStatus *int, errMsg string, elapsed time.Duration) bool {
	truncated := domain.Truncate(errMsg, domain.ErrorMessageMaxChars)
	if err := s.deliveryRepo.MarkFailedOrRetry(ctx, d.ID, attempts, responseStatus, truncated); err != nil {
		s.log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("failed to persist failed attempt")
		return false
	}

	outcome := "retried"
	if attempts >= domain.MaxDeliveryAttempts {
		outcome = "failed"
	}
	metrics.Deliveries.WithLabelValues(d.EventType, outcome).Inc()
	if elapsed > 0 {
		metrics.DeliveryLatency.WithLabelValues(d.EventType, outcome).Observe(float64(elapsed.Milliseconds()))
	}

	evt := s.log.Warn()
	if outcome == "failed" {
		evt = s.log.Error()
	}
	evt.
		Str("delivery_id", d.ID.String()).
		Str("event_type", d.EventType).
		Int("attempt", attempts).
		Str("error", truncated).
		Msg("webhook delivery attempt failed")
	return false
}
