package repository

import (
	"database/sql"

	"github.com/kpflow/kpflow/internal/config"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
)

type StoredDefinitionRepository struct {
	db *sql.DB
}

func NewStoredDefinitionRepository(db *sql.DB) *StoredDefinitionRepository {
	return &StoredDefinitionRepository{db: db}
}

// Save inserts a new stage definition snapshot or updates an existing one
// by workflow type. Returns nil on success or an error.
func (r *StoredDefinitionRepository) Save(def *domain.StoredDefinition) error {
	query := ""
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES || db == config.DATABASE_TYPE_SQLLITE {
		query = `
		INSERT INTO stage_definitions (workflow_type, description, created, updated, flow_chart)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
		ON CONFLICT (workflow_type)
		DO UPDATE SET description = EXCLUDED.description,
			updated = EXCLUDED.updated,
			flow_chart = EXCLUDED.flow_chart
	`
	} else if db == config.DATABASE_TYPE_MYSQL {
		query = `
		INSERT INTO stage_definitions (workflow_type, description, created, updated, flow_chart)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
		ON DUPLICATE KEY UPDATE description = VALUES(description),
			updated = VALUES(updated),
			flow_chart = VALUES(flow_chart)
	`
	} else {
		panic("Unknown database type trying to save stage definition")
	}

	_, err := r.db.Exec(query, def.WorkflowType, def.Description, def.Created, def.Updated, def.FlowChart)
	return err
}

// FindByWorkflowType fetches a stored definition by its unique workflow type.
func (r *StoredDefinitionRepository) FindByWorkflowType(workflowType string) (*domain.StoredDefinition, error) {
	query := `
		SELECT workflow_type, description, created, updated, flow_chart
		FROM stage_definitions WHERE workflow_type = ` + placeholder(1) + `
	`
	var def domain.StoredDefinition
	err := r.db.QueryRow(query, workflowType).Scan(
		&def.WorkflowType,
		&def.Description,
		&def.Created,
		&def.Updated,
		&def.FlowChart,
	)
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// FindAll returns all stored definitions.
func (r *StoredDefinitionRepository) FindAll() (*[]domain.StoredDefinition, error) {
	query := `
		SELECT workflow_type, description, created, updated, flow_chart
		FROM stage_definitions
		ORDER BY workflow_type
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]domain.StoredDefinition, 0)
	for rows.Next() {
		var d domain.StoredDefinition
		if err := rows.Scan(&d.WorkflowType, &d.Description, &d.Created, &d.Updated, &d.FlowChart); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &defs, nil
}
