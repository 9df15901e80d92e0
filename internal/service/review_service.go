package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

// ReviewService manages the human review backlog for answers the
// evaluator could not grade confidently.
type ReviewService struct {
	reviews *repository.ReviewRepository
	log     zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviews *repository.ReviewRepository, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		log:     log.With().Str("component", "review_service").Logger(),
	}
}

// ListPending retrieves the unresolved backlog, oldest first.
func (s *ReviewService) ListPending(ctx context.Context, page, perPage int) ([]model.ReviewTask, int64, error) {
	return s.reviews.ListPending(ctx, page, perPage)
}

// Resolve closes a review task.
func (s *ReviewService) Resolve(ctx context.Context, taskID, reviewerID uuid.UUID) error {
	return s.reviews.Resolve(ctx, taskID, reviewerID)
}
