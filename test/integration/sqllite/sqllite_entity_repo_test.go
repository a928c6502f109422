package sqllite

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kpflow/kpflow/internal/repository"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
	"github.com/kpflow/kpflow/test/integration"
)

func openTestDatabase(t *testing.T, filename string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	// Create the schema directly since we're not using the full app setup
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS entities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			workflow_type TEXT NOT NULL,
			business_key TEXT NOT NULL,
			current_stage TEXT NOT NULL,
			payload TEXT,
			created TIMESTAMP NOT NULL,
			modified TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS transition_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_id INTEGER NOT NULL,
			from_stage TEXT NOT NULL,
			to_stage TEXT NOT NULL,
			action TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			notes TEXT,
			score REAL,
			date_time TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS stage_definitions (
			workflow_type TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			created TIMESTAMP NOT NULL,
			updated TIMESTAMP NOT NULL,
			flow_chart TEXT NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func TestEntityRepository(t *testing.T) {
	runTestWithSetup(t, func(t *testing.T, filename string) {
		clock := integration.NewFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
		db := openTestDatabase(t, filename)
		defer db.Close()

		entityRepo := repository.NewEntityRepository(db, clock)
		recordRepo := repository.NewTransitionRecordRepository(db, clock)

		entity := &domain.Entity{
			ExternalID:   "kp-1",
			WorkflowType: "KpRevision",
			BusinessKey:  "student-1",
			CurrentStage: "pending",
			Payload:      sql.NullString{String: `{"title":"Report v1"}`, Valid: true},
			Created:      clock.Now(),
			Modified:     clock.Now(),
		}

		t.Run("SaveAndFind", func(t *testing.T) {
			id, err := entityRepo.Save(entity)
			if err != nil {
				t.Fatalf("Failed to save entity: %v", err)
			}
			if id == 0 {
				t.Fatal("Expected a generated id")
			}

			byID, err := entityRepo.FindByID(id)
			if err != nil {
				t.Fatalf("Failed to find by id: %v", err)
			}
			if byID.ExternalID != "kp-1" || byID.CurrentStage != "pending" {
				t.Errorf("Unexpected entity: %+v", byID)
			}
			if !byID.Payload.Valid || byID.Payload.String != `{"title":"Report v1"}` {
				t.Errorf("Payload did not round-trip: %+v", byID.Payload)
			}

			byExternal, err := entityRepo.FindByExternalID("kp-1")
			if err != nil {
				t.Fatalf("Failed to find by external id: %v", err)
			}
			if byExternal.ID != id {
				t.Errorf("Expected id %d, got %d", id, byExternal.ID)
			}
		})

		t.Run("ApplyTransition", func(t *testing.T) {
			clock.Add(time.Minute)

			loaded, err := entityRepo.FindByID(entity.ID)
			if err != nil {
				t.Fatalf("Failed to load entity: %v", err)
			}
			rec := &domain.TransitionRecord{
				EntityID:  loaded.ID,
				FromStage: "pending",
				ToStage:   "rejected",
				Action:    "reject",
				ActorID:   "7",
				Notes:     sql.NullString{String: "missing chapter 3", Valid: true},
				DateTime:  clock.Now(),
			}
			if err := entityRepo.ApplyTransition(loaded, rec); err != nil {
				t.Fatalf("Failed to apply transition: %v", err)
			}

			after, err := entityRepo.FindByID(loaded.ID)
			if err != nil {
				t.Fatalf("Failed to reload entity: %v", err)
			}
			if after.CurrentStage != "rejected" {
				t.Errorf("Expected stage rejected, got %s", after.CurrentStage)
			}
			if !after.Modified.After(loaded.Modified) {
				t.Errorf("Expected modified to advance, got %v -> %v", loaded.Modified, after.Modified)
			}

			records, err := recordRepo.FindAllByEntityID(loaded.ID)
			if err != nil {
				t.Fatalf("Failed to load records: %v", err)
			}
			if len(*records) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(*records))
			}
			got := (*records)[0]
			if got.FromStage != "pending" || got.ToStage != "rejected" || got.ActorID != "7" {
				t.Errorf("Unexpected record: %+v", got)
			}
			if !got.Notes.Valid || got.Notes.String != "missing chapter 3" {
				t.Errorf("Notes did not round-trip: %+v", got.Notes)
			}
		})

		t.Run("StaleWriterIsRejected", func(t *testing.T) {
			stale, err := entityRepo.FindByID(entity.ID)
			if err != nil {
				t.Fatalf("Failed to load entity: %v", err)
			}

			clock.Add(time.Minute)
			first := &domain.TransitionRecord{
				EntityID: stale.ID, FromStage: "rejected", ToStage: "resubmitted",
				Action: "resubmit", ActorID: "7", DateTime: clock.Now(),
			}
			if err := entityRepo.ApplyTransition(stale, first); err != nil {
				t.Fatalf("Failed to apply transition: %v", err)
			}

			// Same snapshot again: the modified guard must reject it and the
			// audit trail must not grow.
			second := &domain.TransitionRecord{
				EntityID: stale.ID, FromStage: "rejected", ToStage: "resubmitted",
				Action: "resubmit", ActorID: "7", DateTime: clock.Now(),
			}
			err = entityRepo.ApplyTransition(stale, second)
			if !errors.Is(err, repository.ErrNotLocked) {
				t.Fatalf("Expected ErrNotLocked, got %v", err)
			}

			count, err := recordRepo.CountByEntityID(stale.ID)
			if err != nil {
				t.Fatalf("Failed to count records: %v", err)
			}
			if count != 2 {
				t.Errorf("Expected 2 records after the rejected write, got %d", count)
			}
		})

		t.Run("SearchAndGateSnapshot", func(t *testing.T) {
			second := &domain.Entity{
				ExternalID:   "kp-2",
				WorkflowType: "KpRevision",
				BusinessKey:  "student-1",
				CurrentStage: "pending",
				Created:      clock.Now(),
				Modified:     clock.Now(),
			}
			if _, err := entityRepo.Save(second); err != nil {
				t.Fatalf("Failed to save second entity: %v", err)
			}

			results, err := entityRepo.Search(models.SearchEntitiesRequest{
				WorkflowType: "KpRevision", Stage: "pending", Limit: 10,
			})
			if err != nil {
				t.Fatalf("Failed to search: %v", err)
			}
			if len(*results) != 1 || (*results)[0].ExternalID != "kp-2" {
				t.Errorf("Unexpected search results: %+v", results)
			}

			byText, err := entityRepo.Search(models.SearchEntitiesRequest{Query: "kp-", Limit: 10})
			if err != nil {
				t.Fatalf("Failed to search by text: %v", err)
			}
			if len(*byText) != 2 {
				t.Errorf("Expected 2 entities for free-text kp-, got %d", len(*byText))
			}

			siblings, err := entityRepo.FindByTypeAndBusinessKey("KpRevision", "student-1")
			if err != nil {
				t.Fatalf("Failed to load gate snapshot: %v", err)
			}
			if len(*siblings) != 2 {
				t.Fatalf("Expected 2 siblings, got %d", len(*siblings))
			}
			if (*siblings)[0].ID > (*siblings)[1].ID {
				t.Error("Expected the snapshot oldest first")
			}
		})
	})
}

func TestStoredDefinitionRepository(t *testing.T) {
	runTestWithSetup(t, func(t *testing.T, filename string) {
		db := openTestDatabase(t, filename)
		defer db.Close()

		repo := repository.NewStoredDefinitionRepository(db)
		created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		def := &domain.StoredDefinition{
			WorkflowType: "KpRevision",
			Description:  "Report revision review",
			FlowChart:    "flowchart TD",
			Created:      created,
			Updated:      created,
		}
		if err := repo.Save(def); err != nil {
			t.Fatalf("Failed to save definition: %v", err)
		}

		// Saving the same type again must update, not duplicate.
		def.Description = "Report revision review by the supervising lecturer"
		def.Updated = created.Add(time.Hour)
		if err := repo.Save(def); err != nil {
			t.Fatalf("Failed to upsert definition: %v", err)
		}

		all, err := repo.FindAll()
		if err != nil {
			t.Fatalf("Failed to list definitions: %v", err)
		}
		if len(*all) != 1 {
			t.Fatalf("Expected 1 definition after upsert, got %d", len(*all))
		}

		got, err := repo.FindByWorkflowType("KpRevision")
		if err != nil {
			t.Fatalf("Failed to find definition: %v", err)
		}
		if got.Description != "Report revision review by the supervising lecturer" {
			t.Errorf("Upsert did not update description: %s", got.Description)
		}
	})
}
