package repository

import (
	"database/sql"
	"log/slog"

	"github.com/kpflow/kpflow/pkg/kpflow/core"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
)

// TransitionRecordRepository provides read access to the append-only audit
// trail. Writes happen inside EntityRepository.ApplyTransition so a record
// can never exist without its stage change, and vice versa.
type TransitionRecordRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewTransitionRecordRepository(db *sql.DB, clock core.Clock) *TransitionRecordRepository {
	return &TransitionRecordRepository{db: db, clock: clock}
}

// FindAllByEntityID returns the full history for an entity, oldest first.
func (r *TransitionRecordRepository) FindAllByEntityID(entityID int64) (*[]domain.TransitionRecord, error) {
	query := `
		SELECT id, entity_id, from_stage, to_stage, action, actor_id, notes, score, date_time
		FROM transition_records
		WHERE entity_id = ` + placeholder(1) + `
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TransitionRecord
	for rows.Next() {
		var rec domain.TransitionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.EntityID,
			&rec.FromStage,
			&rec.ToStage,
			&rec.Action,
			&rec.ActorID,
			&rec.Notes,
			&rec.Score,
			&rec.DateTime,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return &records, nil
}

// CountByEntityID returns the number of applied transitions for an entity.
func (r *TransitionRecordRepository) CountByEntityID(entityID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM transition_records WHERE entity_id = ` + placeholder(1) + `
	`
	var count int
	if err := r.db.QueryRow(query, entityID).Scan(&count); err != nil {
		slog.Error("Failed to count transition records", "entity_id", entityID, "error", err)
		return 0, err
	}
	return count, nil
}
