package logger

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module wires the slog logger and installs it as the process default so
// library code logging through slog shares the JSON output.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(slog.SetDefault),
)
