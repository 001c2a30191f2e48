package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/proctor/internal/simulate"
)

// defaultRunTimeout bounds a whole simulated session.
const defaultRunTimeout = 5 * time.Minute

func main() {
	def := simulate.NewConfig()
	var (
		baseURL        = flag.String("url", def.BaseURL, "Base URL of the service")
		candidate      = flag.String("candidate", def.Candidate, "Candidate name")
		faceInterval   = flag.Duration("face-interval", def.FaceInterval, "Face push cadence; must equal the server's face interval")
		objectInterval = flag.Duration("object-interval", def.ObjectInterval, "Object push cadence")
		lookAway       = flag.Duration("look-away", def.LookAwayThreshold, "Server look-away threshold")
		noFace         = flag.Duration("no-face", def.NoFaceThreshold, "Server no-face threshold")
		timeout        = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		outputFile     = flag.String("output", "", "Write the final report to this file")
		logFile        = flag.String("log", "", "Also write logs to this file")
		verbose        = flag.Bool("verbose", false, "Log every push")
		help           = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:           *baseURL,
		Candidate:         *candidate,
		FaceInterval:      *faceInterval,
		ObjectInterval:    *objectInterval,
		LookAwayThreshold: *lookAway,
		NoFaceThreshold:   *noFace,
		FocusDuration:     def.FocusDuration,
		Timeout:           *timeout,
		OutputFile:        *outputFile,
		Verbose:           *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: cancel is called above
	}
}
