package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// CartService holds each session's advisory cart lines in process
// memory. A line never reserves a slot against other sessions; two
// sessions may stage the same availability id and exclusivity is
// settled only when the booking service reserves it.
type CartService struct {
	availability repositories.AvailabilityRepository
	idleTTL      time.Duration
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionCart
}

type sessionCart struct {
	lines     map[string]entities.CartLine
	touchedAt time.Time
}

// NewCartService creates a cart service. Sessions idle longer than
// idleTTL are pruned by the janitor.
func NewCartService(availability repositories.AvailabilityRepository, idleTTL time.Duration) *CartService {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &CartService{
		availability: availability,
		idleTTL:      idleTTL,
		now:          time.Now,
		sessions:     make(map[string]*sessionCart),
	}
}

// Add stages a slot in the session's cart. Adding an id already present
// is a no-op (set semantics). A slot that is already booked can never
// commit, so staging it is rejected up front.
func (s *CartService) Add(ctx context.Context, sessionID, availabilityID string) error {
	slot, err := s.availability.GetByID(ctx, availabilityID)
	if err != nil {
		return err
	}
	if slot.IsBooked {
		return apperrors.NewAlreadyBookedError(availabilityID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(sessionID)
	if _, exists := cart.lines[availabilityID]; exists {
		return nil
	}
	cart.lines[availabilityID] = entities.CartLine{
		AvailabilityID: availabilityID,
		StagedAt:       s.now(),
	}
	return nil
}

// Remove drops a line from the session's cart if present
func (s *CartService) Remove(sessionID, availabilityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.sessions[sessionID]
	if !exists {
		return
	}
	delete(cart.lines, availabilityID)
	cart.touchedAt = s.now()
}

// Clear empties the session's cart
func (s *CartService) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Lines returns the session's staged lines ordered by staging time
func (s *CartService) Lines(sessionID string) []entities.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.sessions[sessionID]
	if !exists {
		return nil
	}
	cart.touchedAt = s.now()

	lines := make([]entities.CartLine, 0, len(cart.lines))
	for _, line := range cart.lines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].StagedAt.Before(lines[j].StagedAt)
	})
	return lines
}

// StartJanitor prunes idle sessions until ctx is cancelled
func (s *CartService) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pruneIdle()
			}
		}
	}()
}

func (s *CartService) pruneIdle() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cart := range s.sessions {
		if cart.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func (s *CartService) cartLocked(sessionID string) *sessionCart {
	cart, exists := s.sessions[sessionID]
	if !exists {
		cart = &sessionCart{lines: make(map[string]entities.CartLine)}
		s.sessions[sessionID] = cart
	}
	cart.touchedAt = s.now()
	return cart
}
