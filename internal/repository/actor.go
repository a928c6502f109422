package repository

import (
	"database/sql"
	"strings"

	"github.com/kpflow/kpflow/pkg/kpflow/core"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
)

type ActorRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewActorRepository(db *sql.DB, clock core.Clock) *ActorRepository {
	return &ActorRepository{db: db, clock: clock}
}

func (r *ActorRepository) Save(a *domain.Actor) (int64, error) {
	vals := []interface{}{a.Username, a.Role, a.ApiKeyHash, a.Enabled, formatDateInDatabase(a.Created)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO actors (
		username, role, api_key_hash, enabled, created
	) VALUES (` + strings.Join(pps, ", ") + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, vals...).Scan(&a.ID)
	} else {
		res, e := r.db.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				a.ID = id
			}
		}
	}
	return a.ID, err
}

func (r *ActorRepository) FindById(id int64) (*domain.Actor, error) {
	query := `
		SELECT id, username, role, api_key_hash, enabled, created
		FROM actors WHERE id = ` + placeholder(1) + `
	`
	var a domain.Actor
	err := r.db.QueryRow(query, id).Scan(
		&a.ID,
		&a.Username,
		&a.Role,
		&a.ApiKeyHash,
		&a.Enabled,
		&a.Created,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ActorRepository) FindByUsername(username string) (*domain.Actor, error) {
	query := `
		SELECT id, username, role, api_key_hash, enabled, created
		FROM actors WHERE username = ` + placeholder(1) + `
	`
	var a domain.Actor
	err := r.db.QueryRow(query, username).Scan(
		&a.ID,
		&a.Username,
		&a.Role,
		&a.ApiKeyHash,
		&a.Enabled,
		&a.Created,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ActorRepository) FindAll() (*[]domain.Actor, error) {
	query := `
		SELECT id, username, role, api_key_hash, enabled, created
		FROM actors
		ORDER BY username
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actors := make([]domain.Actor, 0)
	for rows.Next() {
		var a domain.Actor
		if err := rows.Scan(&a.ID, &a.Username, &a.Role, &a.ApiKeyHash, &a.Enabled, &a.Created); err != nil {
			return nil, err
		}
		actors = append(actors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &actors, nil
}
