// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Command reqctxd is a minimal demonstration host wiring every request-
// context component against net/http, enough to exercise each pipeline
// stage and the outbound filter chain end to end. Config loading, watching,
// and DI wiring beyond this demo are out of scope.
package main

import (
	"flag"
	"fmt"
)

// flags is a plain struct populated by parseAndValidateFlags, kept separate
// from main so it is testable without touching os.Args.
type flags struct {
	configPath string
	addr       string
	logLevel   string
}

// parseAndValidateFlags parses args with flag.ContinueOnError (so a CLI
// wrapper can present its own usage on error) and validates logLevel against
// log/slog's known level names. A single function returning *flags, error
// keeps main and its tests exercising the same parse path.
func parseAndValidateFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("reqctxd", flag.ContinueOnError)
	f := &flags{}
	fs.StringVar(&f.configPath, "configPath", "config.yaml", "path to the request-context YAML document")
	fs.StringVar(&f.addr, "addr", ":8080", "address the demo HTTP server listens on")
	fs.StringVar(&f.logLevel, "logLevel", "info", "log level: debug, info, warn, or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch f.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level: %q", f.logLevel)
	}

	return f, nil
}
