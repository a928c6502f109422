// Package definitions declares the stage definitions and gate rules for the
// Kerja Praktik (internship) approval workflows: revision review, document
// review, title approval, hearing verification and mentor logbook sign-off.
package definitions

import (
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

const (
	TypeRevision        = "KpRevision"
	TypeDocumentReview  = "KpDocumentReview"
	TypeTitleSubmission = "KpTitleSubmission"
	TypeHearing         = "KpHearing"
	TypeLogbook         = "KpLogbook"
)

// All returns every Kerja Praktik stage definition, ready for registration.
func All() []domain.StageDefinition {
	return []domain.StageDefinition{
		Revision(),
		DocumentReview(),
		TitleSubmission(),
		Hearing(),
		Logbook(),
	}
}

// Revision covers supervisor review of report revisions. A rejected
// revision can be resubmitted; resubmitted is a distinct stage so the
// reviewer can tell a resubmission from a first submission.
func Revision() domain.StageDefinition {
	return domain.StageDefinition{
		WorkflowType: TypeRevision,
		Description:  "Report revision review by the supervising lecturer",
		Stages: []models.Stage{
			{Name: "pending", StageType: models.StageInitial},
			{Name: "resubmitted", StageType: models.StageNormal},
			{Name: "rejected", StageType: models.StageNormal},
			{Name: "approved", StageType: models.StageTerminal},
		},
		Transitions: map[domain.TransitionKey]domain.TransitionSpec{
			{FromStage: "pending", Action: "approve"}:     {ToStage: "approved"},
			{FromStage: "pending", Action: "reject"}:      {ToStage: "rejected", RequiresNotes: true},
			{FromStage: "rejected", Action: "resubmit"}:   {ToStage: "resubmitted"},
			{FromStage: "resubmitted", Action: "approve"}: {ToStage: "approved"},
			{FromStage: "resubmitted", Action: "reject"}:  {ToStage: "rejected", RequiresNotes: true},
		},
	}
}

// DocumentReview covers the admin check of the submission document bundle
// that gates response letter generation.
func DocumentReview() domain.StageDefinition {
	return domain.StageDefinition{
		WorkflowType: TypeDocumentReview,
		Description:  "Administrative review of the submission document bundle",
		Stages: []models.Stage{
			{Name: "submitted", StageType: models.StageInitial},
			{Name: "rejected", StageType: models.StageNormal},
			{Name: "resubmitted", StageType: models.StageNormal},
			{Name: "accepted", StageType: models.StageTerminal},
		},
		Transitions: map[domain.TransitionKey]domain.TransitionSpec{
			{FromStage: "submitted", Action: "approve"}:   {ToStage: "accepted"},
			{FromStage: "submitted", Action: "reject"}:    {ToStage: "rejected", RequiresNotes: true},
			{FromStage: "rejected", Action: "resubmit"}:   {ToStage: "resubmitted"},
			{FromStage: "resubmitted", Action: "approve"}: {ToStage: "accepted"},
			{FromStage: "resubmitted", Action: "reject"}:  {ToStage: "rejected", RequiresNotes: true},
		},
		PayloadSchema: `{
			"type": "object",
			"properties": {
				"studentName": {"type": "string"},
				"documents": {"type": "array", "items": {"type": "string"}, "minItems": 1}
			},
			"required": ["documents"]
		}`,
	}
}

// TitleSubmission covers approval of the practicum title. Approval gates
// report upload; a rejected title is final, the student proposes a new one.
func TitleSubmission() domain.StageDefinition {
	return domain.StageDefinition{
		WorkflowType: TypeTitleSubmission,
		Description:  "Practicum title proposal and approval",
		Stages: []models.Stage{
			{Name: "proposed", StageType: models.StageInitial},
			{Name: "approved", StageType: models.StageTerminal},
			{Name: "rejected", StageType: models.StageTerminal},
		},
		Transitions: map[domain.TransitionKey]domain.TransitionSpec{
			{FromStage: "proposed", Action: "approve"}: {ToStage: "approved"},
			{FromStage: "proposed", Action: "reject"}:  {ToStage: "rejected", RequiresNotes: true},
		},
	}
}

// Hearing covers the defense hearing: admin verification of the schedule
// then the examining lecturer's scored verdict.
func Hearing() domain.StageDefinition {
	return domain.StageDefinition{
		WorkflowType: TypeHearing,
		Description:  "Defense hearing verification and scored verdict",
		Stages: []models.Stage{
			{Name: "scheduled", StageType: models.StageInitial},
			{Name: "verified", StageType: models.StageNormal},
			{Name: "approved", StageType: models.StageTerminal},
			{Name: "rejected", StageType: models.StageTerminal},
		},
		Transitions: map[domain.TransitionKey]domain.TransitionSpec{
			{FromStage: "scheduled", Action: "verify"}: {ToStage: "verified"},
			{FromStage: "verified", Action: "approve"}: {ToStage: "approved", RequiresScore: true, ScoreMin: 0, ScoreMax: 100},
			{FromStage: "verified", Action: "reject"}:  {ToStage: "rejected", RequiresNotes: true},
		},
	}
}

// Logbook covers field-mentor sign-off of weekly logbook entries. A
// returned entry goes back through submission.
func Logbook() domain.StageDefinition {
	return domain.StageDefinition{
		WorkflowType: TypeLogbook,
		Description:  "Weekly logbook entry sign-off by the field mentor",
		Stages: []models.Stage{
			{Name: "draft", StageType: models.StageInitial},
			{Name: "submitted", StageType: models.StageNormal},
			{Name: "returned", StageType: models.StageNormal},
			{Name: "signed", StageType: models.StageTerminal},
		},
		Transitions: map[domain.TransitionKey]domain.TransitionSpec{
			{FromStage: "draft", Action: "submit"}:     {ToStage: "submitted"},
			{FromStage: "submitted", Action: "sign"}:   {ToStage: "signed"},
			{FromStage: "submitted", Action: "return"}: {ToStage: "returned", RequiresNotes: true},
			{FromStage: "returned", Action: "submit"}:  {ToStage: "submitted"},
		},
	}
}
