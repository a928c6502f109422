package main

import (
	"log/slog"

	"github.com/kpflow/kpflow/internal/definitions"
	"github.com/kpflow/kpflow/pkg/kpflow"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	kpflow.SetupLogger()

	kpflow.StageDefinitions = definitions.All()
	kpflow.GateRules = definitions.Gates()

	if err := kpflow.Start(nil); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}
