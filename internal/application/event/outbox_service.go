package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// OutboxService lets staff inspect undeliverable order events and send them again
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryResponse is an outbox entry without its payload
type OutboxEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DeadLetterFilter pages the dead letter list
type DeadLetterFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// DeadLetterPage is one page of dead entries
type DeadLetterPage struct {
	Entries  []OutboxEntryResponse `json:"entries"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// OutboxStats counts entries per status
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
}

// DeadLetters lists entries that ran out of delivery attempts
func (s *OutboxService) DeadLetters(ctx context.Context, actor shared.Actor, filter DeadLetterFilter) (*DeadLetterPage, error) {
	if !actor.IsStaff() {
		return nil, shared.ErrForbidden
	}
	page := max(filter.Page, 1)
	size := filter.PageSize
	if size < 1 {
		size = 20
	}
	size = min(size, 100)

	entries, total, err := s.repo.FindDead(ctx, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead outbox entries: %w", err)
	}
	out := make([]OutboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return &DeadLetterPage{Entries: out, Total: total, Page: page, PageSize: size}, nil
}

// Retry puts one dead entry back in the delivery queue
func (s *OutboxService) Retry(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OutboxEntryResponse, error) {
	if !actor.IsStaff() {
		return nil, shared.ErrForbidden
	}
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && entry == nil) {
		return nil, shared.ErrNotFound.WithDetail("outbox_entry_id", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load outbox entry: %w", err)
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.WrapDomainError(shared.CodeInvalidState, "Only dead entries can be retried", err)
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update outbox entry: %w", err)
	}

	logger.Enrich(ctx, s.logger).Info("Dead outbox entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("by", actor.Name()),
	)
	resp := toEntryResponse(entry)
	return &resp, nil
}

// RetryAll requeues every dead entry and returns how many were requeued
func (s *OutboxService) RetryAll(ctx context.Context, actor shared.Actor) (int64, error) {
	if !actor.IsStaff() {
		return 0, shared.ErrForbidden
	}
	const pageSize = 100
	var count int64
	for {
		// requeued entries leave the dead list, so the first page is always the next batch
		entries, _, err := s.repo.FindDead(ctx, 1, pageSize)
		if err != nil {
			return count, fmt.Errorf("failed to list dead outbox entries: %w", err)
		}
		requeued := 0
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				logger.Enrich(ctx, s.logger).Error("Failed to requeue outbox entry",
					zap.String("id", entry.ID.String()),
					zap.Error(err),
				)
				continue
			}
			requeued++
		}
		count += int64(requeued)
		if len(entries) < pageSize || requeued == 0 {
			break
		}
	}

	logger.Enrich(ctx, s.logger).Info("Dead outbox entries requeued", zap.Int64("count", count))
	return count, nil
}

// Stats returns the number of entries per status
func (s *OutboxService) Stats(ctx context.Context, actor shared.Actor) (*OutboxStats, error) {
	if !actor.IsStaff() {
		return nil, shared.ErrForbidden
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	return &OutboxStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}, nil
}

func toEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
	}
}
