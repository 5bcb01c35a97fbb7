package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jtec/maintenance-service/internal/domain"
)

// ErrDuplicateTicket is returned when an insert loses the race for a
// ticket's single mission slot (unique constraint on missions.ticket_id).
var ErrDuplicateTicket = errors.New("mission already exists for ticket")

const uniqueViolationCode = "23505"

// MissionFilter captures role-scoped listing parameters. TicketIDs carries
// the join through ticket ownership for régie and tenant visibility.
type MissionFilter struct {
	EntrepriseID *string
	TechnicienID *string
	TicketIDs    []string
	Statuses     []domain.MissionStatus
	Limit        int
	Offset       int
}

// MissionRepository encapsulates mission persistence.
type MissionRepository interface {
	Create(ctx context.Context, mission *domain.Mission) error
	Update(ctx context.Context, mission *domain.Mission) error
	GetByID(ctx context.Context, id string) (*domain.Mission, error)
	GetByTicketID(ctx context.Context, ticketID string) (*domain.Mission, error)
	ListWithFilter(ctx context.Context, filter MissionFilter) ([]domain.Mission, error)
	Delete(ctx context.Context, id string) error
}

type missionRepository struct {
	pool *pgxpool.Pool
}

// NewMissionRepository instantiates repository.
func NewMissionRepository(pool *pgxpool.Pool) MissionRepository {
	return &missionRepository{pool: pool}
}

const missionColumns = `id, ticket_id, entreprise_id, technicien_id, titre, description, statut,
               date_prevue, date_intervention_debut, date_intervention_fin,
               cout_estime, cout_final, materiel_requis, materiel_utilise,
               en_retard, motif_retard, date_reportee, travaux_realises, notes_internes,
               photos, signature_client_url, signature_technicien_url, date_signature,
               facture_id, is_demo, created_at, updated_at`

func (r *missionRepository) Create(ctx context.Context, mission *domain.Mission) error {
	const query = `
        INSERT INTO missions (ticket_id, entreprise_id, technicien_id, titre, description, statut,
            date_prevue, cout_estime, materiel_requis, is_demo)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		mission.TicketID,
		mission.EntrepriseID,
		mission.TechnicienID,
		mission.Titre,
		mission.Description,
		mission.Statut,
		mission.DatePrevue,
		mission.CoutEstime,
		mission.MaterielRequis,
		mission.IsDemo,
	).Scan(&mission.ID, &mission.CreatedAt, &mission.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateTicket
		}
		return err
	}
	return nil
}

func (r *missionRepository) Update(ctx context.Context, mission *domain.Mission) error {
	const query = `
        UPDATE missions SET entreprise_id=$1, technicien_id=$2, titre=$3, description=$4, statut=$5,
            date_prevue=$6, date_intervention_debut=$7, date_intervention_fin=$8,
            cout_estime=$9, cout_final=$10, materiel_requis=$11, materiel_utilise=$12,
            en_retard=$13, motif_retard=$14, date_reportee=$15, travaux_realises=$16,
            notes_internes=$17, photos=$18, signature_client_url=$19, signature_technicien_url=$20,
            date_signature=$21, facture_id=$22, updated_at=NOW()
        WHERE id=$23`
	cmd, err := r.pool.Exec(ctx, query,
		mission.EntrepriseID,
		mission.TechnicienID,
		mission.Titre,
		mission.Description,
		mission.Statut,
		mission.DatePrevue,
		mission.DateInterventionDebut,
		mission.DateInterventionFin,
		mission.CoutEstime,
		mission.CoutFinal,
		mission.MaterielRequis,
		mission.MaterielUtilise,
		mission.EnRetard,
		mission.MotifRetard,
		mission.DateReportee,
		mission.TravauxRealises,
		mission.NotesInternes,
		mission.Photos,
		mission.SignatureClientURL,
		mission.SignatureTechnicienURL,
		mission.DateSignature,
		mission.FactureID,
		mission.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *missionRepository) GetByID(ctx context.Context, id string) (*domain.Mission, error) {
	query := fmt.Sprintf(`SELECT %s FROM missions WHERE id=$1`, missionColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *missionRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.Mission, error) {
	query := fmt.Sprintf(`SELECT %s FROM missions WHERE ticket_id=$1`, missionColumns)
	return r.fetchSingle(ctx, query, ticketID)
}

func (r *missionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Mission, error) {
	var mission domain.Mission
	if err := r.pool.QueryRow(ctx, query, arg).Scan(missionScanTargets(&mission)...); err != nil {
		return nil, err
	}
	return &mission, nil
}

func (r *missionRepository) ListWithFilter(ctx context.Context, filter MissionFilter) ([]domain.Mission, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.EntrepriseID != nil {
		args = append(args, *filter.EntrepriseID)
		clauses = append(clauses, fmt.Sprintf("entreprise_id=$%d", len(args)))
	}
	if filter.TechnicienID != nil {
		args = append(args, *filter.TechnicienID)
		clauses = append(clauses, fmt.Sprintf("technicien_id=$%d", len(args)))
	}
	if filter.TicketIDs != nil {
		args = append(args, filter.TicketIDs)
		clauses = append(clauses, fmt.Sprintf("ticket_id = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("statut IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM missions WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		missionColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Mission
	for rows.Next() {
		var mission domain.Mission
		if err := rows.Scan(missionScanTargets(&mission)...); err != nil {
			return nil, err
		}
		result = append(result, mission)
	}
	return result, rows.Err()
}

func (r *missionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM missions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func missionScanTargets(m *domain.Mission) []any {
	return []any{
		&m.ID,
		&m.TicketID,
		&m.EntrepriseID,
		&m.TechnicienID,
		&m.Titre,
		&m.Description,
		&m.Statut,
		&m.DatePrevue,
		&m.DateInterventionDebut,
		&m.DateInterventionFin,
		&m.CoutEstime,
		&m.CoutFinal,
		&m.MaterielRequis,
		&m.MaterielUtilise,
		&m.EnRetard,
		&m.MotifRetard,
		&m.DateReportee,
		&m.TravauxRealises,
		&m.NotesInternes,
		&m.Photos,
		&m.SignatureClientURL,
		&m.SignatureTechnicienURL,
		&m.DateSignature,
		&m.FactureID,
		&m.IsDemo,
		&m.CreatedAt,
		&m.UpdatedAt,
	}
}
