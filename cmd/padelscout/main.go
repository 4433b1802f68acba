package main

import (
	"padelscout-backend/cmd/padelscout/commands"
	"padelscout-backend/lib/serviceutil"
	"padelscout-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "padelscout")
	commands.ExecuteContext(ctx)
}
