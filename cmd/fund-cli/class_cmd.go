package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

func runClassCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, classUsage())
		return 1
	}
	switch args[0] {
	case "add":
		return runClassAdd(args[1:], stdout, stderr)
	case "set-terms":
		return runClassSetTerms(args[1:], stdout, stderr)
	case "set-shares":
		return runClassSetShares(args[1:], stdout, stderr)
	case "get":
		return runClassGet(args[1:], stdout, stderr)
	case "count":
		return runClassCount(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown class subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, classUsage())
		return 1
	}
}

type classResult struct {
	Class  classView   `json:"class"`
	Events []eventView `json:"events,omitempty"`
}

func runClassAdd(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("class add", stderr, classUsage)
	var caller string
	var adminBps, mgmtBps, performBps uint64
	fs.StringVar(&caller, "caller", "", "governance bech32 address")
	fs.Uint64Var(&adminBps, "admin-bps", 0, "annual administration fee in basis points")
	fs.Uint64Var(&mgmtBps, "mgmt-bps", 0, "annual management fee in basis points")
	fs.Uint64Var(&performBps, "perform-bps", 0, "performance fee in basis points")
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

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	classID, opErr := env.ledger.AddShareClass(callerAddr, adminBps, mgmtBps, performBps)
	observeCommand("class add", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	class, err := env.ledger.GetShareClass(classID)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	env.logger.Info("share class created",
		slog.String("operation", "class add"),
		slog.Uint64("class", classID),
	)
	writeJSONResult(stdout, classResult{Class: newClassView(class), Events: env.drainEvents()})
	return 0
}

func runClassSetTerms(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("class set-terms", stderr, classUsage)
	var caller string
	var classID, adminBps, mgmtBps, performBps uint64
	fs.StringVar(&caller, "caller", "", "governance bech32 address")
	fs.Uint64Var(&classID, "class", 0, "share class identifier")
	fs.Uint64Var(&adminBps, "admin-bps", 0, "annual administration fee in basis points")
	fs.Uint64Var(&mgmtBps, "mgmt-bps", 0, "annual management fee in basis points")
	fs.Uint64Var(&performBps, "perform-bps", 0, "performance fee in basis points")
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

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	opErr := env.ledger.ModifyShareClassTerms(callerAddr, classID, adminBps, mgmtBps, performBps)
	observeCommand("class set-terms", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	class, err := env.ledger.GetShareClass(classID)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	env.logger.Info("share class terms updated",
		slog.String("operation", "class set-terms"),
		slog.Uint64("class", classID),
	)
	writeJSONResult(stdout, classResult{Class: newClassView(class), Events: env.drainEvents()})
	return 0
}

func runClassSetShares(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("class set-shares", stderr, classUsage)
	var caller, supply, total string
	var classID uint64
	fs.StringVar(&caller, "caller", "", "orchestrator bech32 address")
	fs.Uint64Var(&classID, "class", 0, "share class identifier")
	fs.StringVar(&supply, "supply", "", "class share supply at share scale")
	fs.StringVar(&total, "total", "", "fund-wide share supply at share scale")
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
	classSupply, err := parseAmount("--supply", supply)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	totalSupply, err := parseAmount("--total", total)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	opErr := env.ledger.ModifyShareCount(callerAddr, classID, classSupply, totalSupply)
	observeCommand("class set-shares", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	class, err := env.ledger.GetShareClass(classID)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	env.logger.Info("share supply updated",
		slog.String("operation", "class set-shares"),
		slog.Uint64("class", classID),
	)
	writeJSONResult(stdout, classResult{Class: newClassView(class), Events: env.drainEvents()})
	return 0
}

func runClassGet(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("class get", stderr, classUsage)
	var classID uint64
	fs.Uint64Var(&classID, "class", 0, "share class identifier")
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
	class, opErr := env.ledger.GetShareClass(classID)
	observeCommand("class get", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	writeJSONResult(stdout, newClassView(class))
	return 0
}

func runClassCount(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("class count", stderr, classUsage)
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
	count, opErr := env.ledger.NumberOfShareClasses()
	observeCommand("class count", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	writeJSONResult(stdout, struct {
		Count uint64 `json:"count"`
	}{Count: count})
	return 0
}

func classUsage() string {
	return strings.TrimSpace(`Usage:
  fund-cli class add --caller addr --admin-bps n --mgmt-bps n --perform-bps n
  fund-cli class set-terms --caller addr --class id --admin-bps n --mgmt-bps n --perform-bps n
  fund-cli class get --class id
  fund-cli class count
  fund-cli class set-shares --caller addr --class id --supply n --total n

class add and set-terms require a governance caller; set-terms is refused once
the class has shares outstanding. set-shares requires the orchestrator and
writes the class and fund-wide supplies together.`)
}
