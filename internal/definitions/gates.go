package definitions

import "github.com/kpflow/kpflow/pkg/kpflow/domain"

// Gates returns the dependent-stage unlock rules between the Kerja Praktik
// workflows. Every rule states its empty-set policy explicitly: all three
// stay locked until at least one dependent entity exists, so a student with
// nothing submitted cannot slip past a gate vacuously.
func Gates() []domain.GateRule {
	return []domain.GateRule{
		{
			Name:          "grading",
			WorkflowType:  TypeHearing,
			Stage:         "verified",
			DependsOn:     TypeRevision,
			Expression:    `all(entities, {.currentStage == "approved"})`,
			VacuousResult: false,
		},
		{
			Name:          "response-letter",
			WorkflowType:  TypeDocumentReview,
			Stage:         "accepted",
			DependsOn:     TypeDocumentReview,
			Expression:    `any(entities, {.currentStage == "accepted"})`,
			VacuousResult: false,
		},
		{
			Name:          "report-upload",
			WorkflowType:  TypeTitleSubmission,
			Stage:         "approved",
			DependsOn:     TypeTitleSubmission,
			Expression:    `any(entities, {.currentStage == "approved"})`,
			VacuousResult: false,
		},
	}
}
