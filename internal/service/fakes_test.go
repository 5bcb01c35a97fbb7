package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jtec/maintenance-service/internal/domain"
	"github.com/jtec/maintenance-service/internal/repository"
)

// In-memory repository fakes. They hand out copies so a caller mutation
// that never reaches Update leaves the stored record untouched, matching
// row-fetch semantics.

type fakeTicketRepo struct {
	tickets    map[string]*domain.Ticket
	seq        int
	getErr     error
	updateErr  error
	listResult []domain.Ticket
	lastFilter repository.TicketFilter
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", f.seq)
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	stored, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.lastFilter = filter
	return f.listResult, nil
}

func (f *fakeTicketRepo) put(ticket *domain.Ticket) {
	stored := *ticket
	f.tickets[ticket.ID] = &stored
}

type fakeMissionRepo struct {
	missions   map[string]*domain.Mission
	seq        int
	updateErr  error
	listResult []domain.Mission
	lastFilter repository.MissionFilter

	// ticketLookupMisses makes the next N GetByTicketID calls miss, so a
	// test can stage a row inserted between lookup and insert.
	ticketLookupMisses int
}

func newFakeMissionRepo() *fakeMissionRepo {
	return &fakeMissionRepo{missions: map[string]*domain.Mission{}}
}

func (f *fakeMissionRepo) Create(_ context.Context, mission *domain.Mission) error {
	for _, existing := range f.missions {
		if existing.TicketID == mission.TicketID {
			return repository.ErrDuplicateTicket
		}
	}
	f.seq++
	mission.ID = fmt.Sprintf("mission-%d", f.seq)
	stored := *mission
	f.missions[mission.ID] = &stored
	return nil
}

func (f *fakeMissionRepo) Update(_ context.Context, mission *domain.Mission) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.missions[mission.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *mission
	f.missions[mission.ID] = &stored
	return nil
}

func (f *fakeMissionRepo) GetByID(_ context.Context, id string) (*domain.Mission, error) {
	stored, ok := f.missions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeMissionRepo) GetByTicketID(_ context.Context, ticketID string) (*domain.Mission, error) {
	if f.ticketLookupMisses > 0 {
		f.ticketLookupMisses--
		return nil, pgx.ErrNoRows
	}
	for _, stored := range f.missions {
		if stored.TicketID == ticketID {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeMissionRepo) ListWithFilter(_ context.Context, filter repository.MissionFilter) ([]domain.Mission, error) {
	f.lastFilter = filter
	return f.listResult, nil
}

func (f *fakeMissionRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.missions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.missions, id)
	return nil
}

func (f *fakeMissionRepo) put(mission *domain.Mission) {
	stored := *mission
	f.missions[mission.ID] = &stored
}

type fakeProfileRepo struct {
	profiles map[string]*domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*domain.Profile{}}
}

func (f *fakeProfileRepo) Create(_ context.Context, profile *domain.Profile) error {
	stored := *profile
	f.profiles[profile.ID] = &stored
	return nil
}

func (f *fakeProfileRepo) Update(_ context.Context, profile *domain.Profile) error {
	if _, ok := f.profiles[profile.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *profile
	f.profiles[profile.ID] = &stored
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	stored, ok := f.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	for _, stored := range f.profiles {
		if stored.Email == email {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func strPtr(s string) *string { return &s }
