// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sessionkey/cmd"
	"sessionkey/internal/log"
	"sessionkey/pkg/build"
)

// main is the entry point for the key and tempo analysis service.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Configure logging
//
// 2. Run Phase:
//   - Wire the decoder, worker pool, recognizer, history and transports
//   - Serve HTTP, analyze files, record a take or print a listing
//
// 3. Shutdown Phase:
//   - SIGINT/SIGTERM cancel the run context
//   - The server drains, the pool finishes queued jobs, transports close
func main() {
	// ==================== STARTUP PHASE ====================

	// Development builds run without ldflags and keep the "dev" values.
	buildErr := build.Initialize()

	config, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if config == nil {
		return
	}

	configureLogging(config.LogLevel, config.LogFormat)
	if buildErr != nil {
		log.Debugf("build: %v, using development build info", buildErr)
	}

	// ==================== RUN PHASE ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, config, os.Stdout, os.Stderr)
	stop()

	// ==================== SHUTDOWN PHASE ====================

	if err != nil {
		log.Errorf("%s: %v", config.Command, err)
		os.Exit(1)
	}
}

func configureLogging(level, format string) {
	l, ok := log.ParseLevel(level)
	if !ok {
		log.Warnf("unknown log level %q, using info", level)
	}
	log.SetLevel(l)
	log.SetFormat(format)
}
