package appointment

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/errors"
)

// Service answers read-side questions about appointments and resolves the
// customer's (bookingId, email) pair for the mutating services.
type Service struct {
	repo  repository.AppointmentRepository
	clock *civildate.Clock
}

func NewService(repo repository.AppointmentRepository, clock *civildate.Clock) *Service {
	return &Service{repo: repo, clock: clock}
}

// NormalizeBookingID upper-cases and trims what a customer typed.
func NormalizeBookingID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Find returns the appointment if bookingID exists and belongs to email.
// A mismatched email is reported as not found.
func (s *Service) Find(ctx context.Context, bookingID, email string) (*model.Appointment, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.BadRequest("email is required", nil)
	}

	apt, err := s.repo.GetByBookingID(ctx, NormalizeBookingID(bookingID))
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFound("booking", err)
	}
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if !apt.OwnedBy(email) {
		return nil, errors.NotFound("booking", nil)
	}
	return apt, nil
}

// Get is the customer lookup projection.
func (s *Service) Get(ctx context.Context, bookingID, email string) (*model.AppointmentView, error) {
	apt, err := s.Find(ctx, bookingID, email)
	if err != nil {
		return nil, err
	}
	return apt.View(s.clock.Today()), nil
}

// List is the operator listing. Status filters apply to the derived status,
// so COMPLETED and CONFIRMED select disjoint date ranges of stored
// CONFIRMED rows.
func (s *Service) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.AppointmentView, error) {
	today := s.clock.Today()

	switch filters.Status {
	case "":
	case model.AppointmentStatusCanceled:
	case model.AppointmentStatusConfirmed:
		if filters.From.IsZero() || filters.From.Before(today) {
			filters.From = today
		}
	case model.AppointmentStatusCompleted:
		yesterday := today.AddDays(-1)
		if filters.To.IsZero() || filters.To.After(yesterday) {
			filters.To = yesterday
		}
		filters.Status = model.AppointmentStatusConfirmed
	default:
		return nil, errors.BadRequest("unknown status "+string(filters.Status), nil)
	}

	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return []*model.AppointmentView{}, nil
	}

	appointments, err := s.repo.List(ctx, &filters)
	if err != nil {
		return nil, errors.Persistence(err)
	}

	views := make([]*model.AppointmentView, 0, len(appointments))
	for _, apt := range appointments {
		views = append(views, apt.View(today))
	}
	return views, nil
}
