package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

func main() {
	app := mustBootstrapActivityAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("activity-api stopped", "error", err.Error())
		app.Close()
		os.Exit(1)
	}
}
