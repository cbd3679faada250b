// Package memory keeps every aggregate in process. It backs STORE=memory and the service tests,
// and applies the same version checks as the Mongo repositories.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"courtcal/models"
)

type Store struct {
	mu        sync.Mutex
	blocks    map[string]models.AvailabilityBlock
	bookings  map[string]models.Booking
	ledgers   map[string]int64
	resources map[string]models.BookableResource
	deadlines map[string]models.Deadline
	events    []models.SchedulingEvent
}

func NewStore() *Store {
	return &Store{
		blocks:    make(map[string]models.AvailabilityBlock),
		bookings:  make(map[string]models.Booking),
		ledgers:   make(map[string]int64),
		resources: make(map[string]models.BookableResource),
		deadlines: make(map[string]models.Deadline),
	}
}

// ---- availability blocks ----

func (s *Store) CreateBlock(_ context.Context, block *models.AvailabilityBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blocks[block.ID]; exists {
		return fmt.Errorf("availability block %s already exists", block.ID)
	}
	s.blocks[block.ID] = cloneBlock(*block)
	return nil
}

func (s *Store) GetBlock(_ context.Context, id string) (*models.AvailabilityBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "availability block", ID: id}
	}
	out := cloneBlock(b)
	return &out, nil
}

func (s *Store) CancelBlock(_ context.Context, id, cancelledBy string, at time.Time) (*models.AvailabilityBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "availability block", ID: id}
	}
	if b.Status != models.BlockCancelled {
		b.Status = models.BlockCancelled
		b.CancelledBy = cancelledBy
		b.UpdatedAt = at
		s.blocks[id] = b
	}
	out := cloneBlock(b)
	return &out, nil
}

func (s *Store) ListBlocks(_ context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error) {
	return s.selectBlocks(subjectID, window, false), nil
}

func (s *Store) ActiveBlocks(_ context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error) {
	return s.selectBlocks(subjectID, window, true), nil
}

func (s *Store) selectBlocks(subjectID string, window models.TimeInterval, activeOnly bool) []models.AvailabilityBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AvailabilityBlock{}
	for _, b := range s.blocks {
		if b.SubjectID != subjectID || !b.MayCover(window) {
			continue
		}
		if activeOnly && b.Status != models.BlockActive {
			continue
		}
		out = append(out, cloneBlock(b))
	}
	slices.SortFunc(out, func(a, b models.AvailabilityBlock) int { return a.Interval.Start.Compare(b.Interval.Start) })
	return out
}

// ---- bookings ----

func (s *Store) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "booking", ID: id}
	}
	out := b.Clone()
	return &out, nil
}

func (s *Store) ListBookings(_ context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Booking{}
	for _, b := range s.bookings {
		if filter.SubjectID != "" && !slices.Contains(b.SubjectIDs, filter.SubjectID) {
			continue
		}
		if filter.ResourceID != "" && b.ResourceID != filter.ResourceID {
			continue
		}
		if !filter.Window.Start.IsZero() && !b.Interval.Overlaps(filter.Window) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, b.Status) {
			continue
		}
		out = append(out, b.Clone())
	}
	slices.SortFunc(out, func(a, b models.Booking) int { return a.Interval.Start.Compare(b.Interval.Start) })
	return out, nil
}

func (s *Store) HoldingBookingsForSubject(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.Booking, error) {
	return s.ListBookings(ctx, models.BookingFilter{SubjectID: subjectID, Window: window, Statuses: models.HoldingStatuses})
}

func (s *Store) HoldingBookingsForResource(ctx context.Context, resourceID string, window models.TimeInterval) ([]models.Booking, error) {
	return s.ListBookings(ctx, models.BookingFilter{ResourceID: resourceID, Window: window, Statuses: models.HoldingStatuses})
}

func (s *Store) ScopeVersions(_ context.Context, scopes []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := make(map[string]int64, len(scopes))
	for _, scope := range scopes {
		versions[scope] = s.ledgers[scope]
	}
	return versions, nil
}

// Reserve checks every ledger version and the superseded booking's version, then applies
// all writes. Nothing is written when any check fails.
func (s *Store) Reserve(_ context.Context, r models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for scope, expected := range r.Versions {
		if s.ledgers[scope] != expected {
			return &models.ConcurrencyConflictError{Scope: scope}
		}
	}
	if r.Supersedes != nil {
		current, ok := s.bookings[r.Supersedes.ID]
		if !ok {
			return &models.NotFoundError{Entity: "booking", ID: r.Supersedes.ID}
		}
		if current.Version != r.SupersedesVersion {
			return &models.ConcurrencyConflictError{Scope: "booking:" + r.Supersedes.ID}
		}
	}
	if _, exists := s.bookings[r.Booking.ID]; exists {
		return fmt.Errorf("booking %s already exists", r.Booking.ID)
	}

	for scope := range r.Versions {
		s.ledgers[scope]++
	}
	r.Booking.Version = 1
	s.bookings[r.Booking.ID] = r.Booking.Clone()
	if r.Supersedes != nil {
		r.Supersedes.Version = r.SupersedesVersion + 1
		s.bookings[r.Supersedes.ID] = r.Supersedes.Clone()
	}
	return nil
}

func (s *Store) UpdateBooking(_ context.Context, b *models.Booking, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bookings[b.ID]
	if !ok {
		return &models.NotFoundError{Entity: "booking", ID: b.ID}
	}
	if current.Version != expectedVersion {
		return &models.ConcurrencyConflictError{Scope: "booking:" + b.ID}
	}
	b.Version = expectedVersion + 1
	s.bookings[b.ID] = b.Clone()
	return nil
}

// ---- resources ----

func (s *Store) UpsertResource(_ context.Context, r *models.BookableResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.resources[r.ID]; ok {
		r.Version = current.Version + 1
		r.CreatedAt = current.CreatedAt
	} else {
		r.Version = 1
	}
	stored := *r
	stored.OperatingHours = slices.Clone(r.OperatingHours)
	s.resources[r.ID] = stored
	return nil
}

func (s *Store) GetResource(_ context.Context, id string) (*models.BookableResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "resource", ID: id}
	}
	r.OperatingHours = slices.Clone(r.OperatingHours)
	return &r, nil
}

func (s *Store) ListResources(_ context.Context) ([]models.BookableResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BookableResource, 0, len(s.resources))
	for _, r := range s.resources {
		r.OperatingHours = slices.Clone(r.OperatingHours)
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.BookableResource) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// ---- deadlines ----

func (s *Store) CreateDeadline(_ context.Context, d *models.Deadline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deadlines[d.ID]; exists {
		return fmt.Errorf("deadline %s already exists", d.ID)
	}
	d.Version = 1
	s.deadlines[d.ID] = d.Clone()
	return nil
}

func (s *Store) GetDeadline(_ context.Context, id string) (*models.Deadline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deadlines[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "deadline", ID: id}
	}
	out := d.Clone()
	return &out, nil
}

func (s *Store) UpdateDeadline(_ context.Context, d *models.Deadline, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.deadlines[d.ID]
	if !ok {
		return &models.NotFoundError{Entity: "deadline", ID: d.ID}
	}
	if current.Version != expectedVersion {
		return &models.ConcurrencyConflictError{Scope: "deadline:" + d.ID}
	}
	d.Version = expectedVersion + 1
	s.deadlines[d.ID] = d.Clone()
	return nil
}

func (s *Store) ListDueBetween(_ context.Context, from, to time.Time) ([]models.Deadline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Deadline{}
	for _, d := range s.deadlines {
		if d.Completed || d.Cancelled {
			continue
		}
		if !d.DueDate.Before(from) && d.DueDate.Before(to) {
			out = append(out, d.Clone())
		}
	}
	slices.SortFunc(out, func(a, b models.Deadline) int { return a.DueDate.Compare(b.DueDate) })
	return out, nil
}

// ---- events ----

func (s *Store) SaveEvent(_ context.Context, evt models.SchedulingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events {
		if existing.ID == evt.ID {
			return nil
		}
	}
	s.events = append(s.events, evt)
	return nil
}

func (s *Store) ListEvents(_ context.Context, aggregateID string) ([]models.SchedulingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.SchedulingEvent{}
	for _, evt := range s.events {
		if aggregateID == "" || evt.AggregateID == aggregateID {
			out = append(out, evt)
		}
	}
	return out, nil
}

func cloneBlock(b models.AvailabilityBlock) models.AvailabilityBlock {
	if b.Recurrence != nil {
		p := *b.Recurrence
		p.Weekdays = slices.Clone(p.Weekdays)
		p.Exceptions = slices.Clone(p.Exceptions)
		if p.EffectiveUntil != nil {
			until := *p.EffectiveUntil
			p.EffectiveUntil = &until
		}
		b.Recurrence = &p
	}
	return b
}
