package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kpflow/kpflow/internal/config"
	"github.com/kpflow/kpflow/pkg/kpflow/core"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// ErrNotLocked is returned when the optimistic modified guard failed, ie
// the entity row changed between read and write.
var ErrNotLocked = errors.New("entity modified by another writer")

type EntityRepository struct {
	db    *sql.DB
	clock core.Clock
}

const ENTITY_COLUMNS = ` id, external_id, workflow_type, business_key, current_stage, payload, created, modified `

func NewEntityRepository(db *sql.DB, clock core.Clock) *EntityRepository {
	return &EntityRepository{db: db, clock: clock}
}

func (r *EntityRepository) FindByID(id int64) (*domain.Entity, error) {
	query := `
		SELECT ` + ENTITY_COLUMNS + `
		FROM entities WHERE id = ` + placeholder(1) + `
	`
	var e domain.Entity
	err := r.db.QueryRow(query, id).Scan(
		&e.ID,
		&e.ExternalID,
		&e.WorkflowType,
		&e.BusinessKey,
		&e.CurrentStage,
		&e.Payload,
		&e.Created,
		&e.Modified,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntityRepository) FindByExternalID(externalID string) (*domain.Entity, error) {
	query := `
		SELECT ` + ENTITY_COLUMNS + `
		FROM entities WHERE external_id = ` + placeholder(1) + `
	`
	var e domain.Entity
	err := r.db.QueryRow(query, externalID).Scan(
		&e.ID,
		&e.ExternalID,
		&e.WorkflowType,
		&e.BusinessKey,
		&e.CurrentStage,
		&e.Payload,
		&e.Created,
		&e.Modified,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntityRepository) Save(e *domain.Entity) (int64, error) {
	vals := []interface{}{e.ExternalID, e.WorkflowType, e.BusinessKey, e.CurrentStage, e.Payload,
		formatDateInDatabase(e.Created), formatDateInDatabase(e.Modified)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO entities (
		external_id, workflow_type, business_key, current_stage, payload, created, modified
	) VALUES (` + strings.Join(pps, ", ") + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, vals...).Scan(&e.ID)
	} else {
		res, e2 := r.db.Exec(base, vals...)
		if e2 != nil {
			err = e2
		} else {
			id, e3 := res.LastInsertId()
			if e3 != nil {
				err = e3
			} else {
				e.ID = id
			}
		}
	}
	return e.ID, err
}

// ApplyTransition moves the entity to rec.ToStage and appends the audit
// record in a single transaction. The modified column is the optimistic
// guard; if another writer got there first the whole transaction is rolled
// back and ErrNotLocked is returned. Nothing is visible to readers unless
// both writes committed.
func (r *EntityRepository) ApplyTransition(e *domain.Entity, rec *domain.TransitionRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	update := `
		UPDATE entities
		SET current_stage = ` + placeholder(1) + `, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(2) + ` AND modified = ` + placeholder(3) + `
	`
	result, err := tx.Exec(update, rec.ToStage, e.ID, formatDateInDatabase(e.Modified))
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected != 1 {
		tx.Rollback()
		return ErrNotLocked
	}

	insert := `
		INSERT INTO transition_records (
			entity_id, from_stage, to_stage, action, actor_id, notes, score, date_time
		) VALUES (
			` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `, ` + placeholder(8) + `
		)`
	if _, err := tx.Exec(insert,
		rec.EntityID,
		rec.FromStage,
		rec.ToStage,
		rec.Action,
		rec.ActorID,
		rec.Notes,
		rec.Score,
		formatDateInDatabase(rec.DateTime),
	); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *EntityRepository) Search(req models.SearchEntitiesRequest) (*[]domain.Entity, error) {
	whereClause, args := buildEntityWhereClause(req)

	query := `
		SELECT ` + ENTITY_COLUMNS + `
		FROM entities
		` + whereClause +
		` ORDER BY id DESC
	` + buildLimitsAndOffset(req)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(
			&e.ID,
			&e.ExternalID,
			&e.WorkflowType,
			&e.BusinessKey,
			&e.CurrentStage,
			&e.Payload,
			&e.Created,
			&e.Modified,
		); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return &entities, nil
}

// FindByTypeAndBusinessKey returns the snapshot of every entity of the
// given workflow type sharing a business key, oldest first. Gate rules are
// evaluated against this set.
func (r *EntityRepository) FindByTypeAndBusinessKey(workflowType string, businessKey string) (*[]domain.Entity, error) {
	query := `
		SELECT ` + ENTITY_COLUMNS + `
		FROM entities
		WHERE workflow_type = ` + placeholder(1) + ` AND business_key = ` + placeholder(2) + `
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, workflowType, businessKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(
			&e.ID,
			&e.ExternalID,
			&e.WorkflowType,
			&e.BusinessKey,
			&e.CurrentStage,
			&e.Payload,
			&e.Created,
			&e.Modified,
		); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return &entities, nil
}

func formatDateInDatabase(t time.Time) string {
	if config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_SQLLITE {
		return t.UTC().Format("2006-01-02 15:04:05.000")
	}
	if config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_MYSQL {
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	}
	// PostgreSQL supports RFC3339
	return t.UTC().Format(time.RFC3339Nano)
}

func buildLimitsAndOffset(req models.SearchEntitiesRequest) string {
	if req.Limit > 0 {
		return fmt.Sprintf(" LIMIT %d OFFSET %d", req.Limit, req.Offset)
	}
	return ""
}

func buildEntityWhereClause(req models.SearchEntitiesRequest) (string, []interface{}) {
	var andClauses []string
	var args []interface{}

	if req.WorkflowType != "" {
		args = append(args, req.WorkflowType)
		andClauses = append(andClauses, fmt.Sprintf("workflow_type = %s", placeholder(len(args))))
	}
	if req.Stage != "" {
		args = append(args, req.Stage)
		andClauses = append(andClauses, fmt.Sprintf("current_stage = %s", placeholder(len(args))))
	}
	if req.BusinessKey != "" {
		args = append(args, req.BusinessKey)
		andClauses = append(andClauses, fmt.Sprintf("business_key = %s", placeholder(len(args))))
	}
	if req.Query != "" {
		// free text over the identity columns, as on the admin list pages
		like := "%" + req.Query + "%"
		args = append(args, like)
		first := fmt.Sprintf("external_id LIKE %s", placeholder(len(args)))
		args = append(args, like)
		second := fmt.Sprintf("business_key LIKE %s", placeholder(len(args)))
		andClauses = append(andClauses, "("+first+" OR "+second+")")
	}

	if len(andClauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(andClauses, " AND "), args
}
