package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"esic-scraper/cmd/esic/commands"
	"esic-scraper/lib/osutil"
	"esic-scraper/lib/telemetry"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())
	defer stop()

	tel, err := telemetry.SetupFromEnv(ctx, "esic")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	defer tel.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
