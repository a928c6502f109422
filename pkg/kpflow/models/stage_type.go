package models

type StageType string

const (
	StageInitial  StageType = "Initial"  // entry stage, exactly one per definition
	StageNormal   StageType = "Normal"   // intermediate stage
	StageTerminal StageType = "Terminal" // no transitions out, entity is immutable
)

type Stage struct {
	Name      string    `json:"name"`
	StageType StageType `json:"stageType"`
}
