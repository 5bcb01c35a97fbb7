package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jtec/maintenance-service/internal/domain"
)

// TicketFilter captures role-scoped listing parameters. VisibleToEntreprise
// restricts results to tickets diffused to that company (open mode, or
// restricted mode with the company on the allow-list) that are still
// acceptable.
type TicketFilter struct {
	RegieID             *string
	LocataireID         *string
	VisibleToEntreprise *string
	Statuses            []domain.TicketStatus
	Categories          []domain.TicketCategorie
	Limit               int
	Offset              int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, titre, description, categorie, priorite, statut, diffusion_mode,
               entreprises_autorisees, regie_id, locataire_id, logement_id,
               date_acceptation, date_cloture, is_demo, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (titre, description, categorie, priorite, statut, diffusion_mode,
            entreprises_autorisees, regie_id, locataire_id, logement_id, is_demo)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Titre,
		ticket.Description,
		ticket.Categorie,
		ticket.Priorite,
		ticket.Statut,
		ticket.DiffusionMode,
		ticket.EntreprisesAutorisees,
		ticket.RegieID,
		ticket.LocataireID,
		ticket.LogementID,
		ticket.IsDemo,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET titre=$1, description=$2, categorie=$3, priorite=$4, statut=$5,
            diffusion_mode=$6, entreprises_autorisees=$7, date_acceptation=$8, date_cloture=$9,
            updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Titre,
		ticket.Description,
		ticket.Categorie,
		ticket.Priorite,
		ticket.Statut,
		ticket.DiffusionMode,
		ticket.EntreprisesAutorisees,
		ticket.DateAcceptation,
		ticket.DateCloture,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketScanTargets(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RegieID != nil {
		args = append(args, *filter.RegieID)
		clauses = append(clauses, fmt.Sprintf("regie_id=$%d", len(args)))
	}
	if filter.LocataireID != nil {
		args = append(args, *filter.LocataireID)
		clauses = append(clauses, fmt.Sprintf("locataire_id=$%d", len(args)))
	}
	if filter.VisibleToEntreprise != nil {
		args = append(args, *filter.VisibleToEntreprise)
		clauses = append(clauses, fmt.Sprintf(
			"(diffusion_mode='ouvert' OR $%d::uuid = ANY(entreprises_autorisees))", len(args)))
		clauses = append(clauses, "statut IN ('nouveau','en_attente_diffusion','diffusé')")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("statut IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("categorie IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketScanTargets(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func ticketScanTargets(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.Titre,
		&t.Description,
		&t.Categorie,
		&t.Priorite,
		&t.Statut,
		&t.DiffusionMode,
		&t.EntreprisesAutorisees,
		&t.RegieID,
		&t.LocataireID,
		&t.LogementID,
		&t.DateAcceptation,
		&t.DateCloture,
		&t.IsDemo,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}
