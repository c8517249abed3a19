package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"fundcore/crypto"
	"fundcore/observability/logging"
)

func runOrchestratorCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, orchestratorUsage())
		return 1
	}
	switch args[0] {
	case "show":
		return runOrchestratorShow(args[1:], stdout, stderr)
	case "rotate":
		return runOrchestratorRotate(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown orchestrator subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, orchestratorUsage())
		return 1
	}
}

func runOrchestratorShow(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("orchestrator show", stderr, orchestratorUsage)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	orchestrator, opErr := env.ledger.Orchestrator()
	observeCommand("orchestrator show", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	result := struct {
		Orchestrator string `json:"orchestrator,omitempty"`
		Configured   bool   `json:"configured"`
	}{Configured: orchestrator != ([20]byte{})}
	if result.Configured {
		result.Orchestrator = crypto.NewAddress(orchestrator).String()
	}
	writeJSONResult(stdout, result)
	return 0
}

func runOrchestratorRotate(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("orchestrator rotate", stderr, orchestratorUsage)
	var caller, next string
	fs.StringVar(&caller, "caller", "", "governance bech32 address")
	fs.StringVar(&next, "next", "", "incoming orchestrator bech32 address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	callerAddr, err := parseCaller(caller)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	nextAddr, err := parseAddressFlag("--next", next)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	opErr := env.ledger.SetOrchestrator(callerAddr, nextAddr)
	observeCommand("orchestrator rotate", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	env.logger.Info("orchestrator rotated",
		slog.String("operation", "orchestrator rotate"),
		logging.MaskField("next", next),
	)
	writeJSONResult(stdout, struct {
		Orchestrator string      `json:"orchestrator"`
		Events       []eventView `json:"events,omitempty"`
	}{Orchestrator: crypto.NewAddress(nextAddr).String(), Events: env.drainEvents()})
	return 0
}

func orchestratorUsage() string {
	return strings.TrimSpace(`Usage:
  fund-cli orchestrator show
  fund-cli orchestrator rotate --caller addr --next addr

rotate requires a governance caller and refuses the null identity and no-op
rotations.`)
}
