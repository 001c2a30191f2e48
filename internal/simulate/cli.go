package simulate

import (
	"fmt"
	"os"

	"github.com/okian/proctor/pkg/logger"
)

// SetupLogging configures logging to the console and, when logFile is set,
// to a rotating file as well.
func SetupLogging(logFile string, verbose bool) error {
	var opts []logger.Option
	if logFile != "" {
		opts = append(opts, logger.WithFile(logFile))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Proctor Session Simulator
=========================

Drives a running proctor server through a scripted session: focused, looking
away past the look-away threshold, absent past the no-face threshold, a second
face, then a phone. The session is stopped and its report is checked.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -candidate string
        Candidate name (default "Simulated Candidate")
  -face-interval duration
        Face push cadence; must equal the server's face interval (default 100ms)
  -object-interval duration
        Object push cadence (default 500ms)
  -look-away duration
        Server look-away threshold (default 5s)
  -no-face duration
        Server no-face threshold (default 10s)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write the final report to this file
  -log string
        Also write logs to this file
  -verbose
        Log every push
  -help
        Show this help message

Examples:
  # Against a local server with default settings
  go run ./cmd/simulate

  # Against a server started with PROCTOR_FACE_INTERVAL_MS=50
  go run ./cmd/simulate -face-interval 50ms -output report.json
`)
}
