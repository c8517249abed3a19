package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"fundcore/crypto"
	"fundcore/native/fund"
	"fundcore/observability/logging"
)

func runInvestorCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, investorUsage())
		return 1
	}
	switch args[0] {
	case "add":
		return runInvestorAdd(args[1:], stdout, stderr)
	case "remove":
		return runInvestorRemove(args[1:], stdout, stderr)
	case "set":
		return runInvestorSet(args[1:], stdout, stderr)
	case "get":
		return runInvestorGet(args[1:], stdout, stderr)
	case "type":
		return runInvestorType(args[1:], stdout, stderr)
	case "list":
		return runInvestorList(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown investor subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, investorUsage())
		return 1
	}
}

type investorResult struct {
	Investor investorView `json:"investor"`
	Events   []eventView  `json:"events,omitempty"`
}

func runInvestorAdd(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("investor add", stderr, investorUsage)
	var caller, investor, investorType string
	fs.StringVar(&caller, "caller", "", "orchestrator bech32 address")
	fs.StringVar(&investor, "investor", "", "investor bech32 address")
	fs.StringVar(&investorType, "type", "", "subscription currency (coin or fiat)")
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
	investorAddr, err := parseAddressFlag("--investor", investor)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	typ, err := fund.ParseInvestorType(investorType)
	if err != nil || !typ.Valid() {
		return printCommandError(stderr, "--type must be coin or fiat")
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	opErr := env.ledger.AddInvestor(callerAddr, investorAddr, typ)
	observeCommand("investor add", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	record, err := env.ledger.GetInvestor(investorAddr)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	env.logger.Info("investor onboarded",
		slog.String("operation", "investor add"),
		logging.MaskField("investor", investor),
	)
	writeJSONResult(stdout, investorResult{
		Investor: newInvestorView(investorAddr, record),
		Events:   env.drainEvents(),
	})
	return 0
}

func runInvestorRemove(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("investor remove", stderr, investorUsage)
	var caller, investor string
	fs.StringVar(&caller, "caller", "", "orchestrator bech32 address")
	fs.StringVar(&investor, "investor", "", "investor bech32 address")
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
	investorAddr, err := parseAddressFlag("--investor", investor)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	opErr := env.ledger.RemoveInvestor(callerAddr, investorAddr)
	observeCommand("investor remove", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	env.logger.Info("investor offboarded",
		slog.String("operation", "investor remove"),
		logging.MaskField("investor", investor),
	)
	writeJSONResult(stdout, struct {
		Removed string      `json:"removed"`
		Events  []eventView `json:"events,omitempty"`
	}{Removed: crypto.NewAddress(investorAddr).String(), Events: env.drainEvents()})
	return 0
}

func runInvestorSet(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("investor set", stderr, investorUsage)
	var caller, investor, investorType, note string
	var pendingSub, shares, pendingRed, pendingWd string
	var classID uint64
	fs.StringVar(&caller, "caller", "", "orchestrator bech32 address")
	fs.StringVar(&investor, "investor", "", "investor bech32 address")
	fs.StringVar(&investorType, "type", "", "subscription currency (coin or fiat)")
	fs.StringVar(&pendingSub, "pending-subscription", "", "capital awaiting conversion")
	fs.StringVar(&shares, "shares", "", "shares owned at share scale")
	fs.Uint64Var(&classID, "class", 0, "share class identifier")
	fs.StringVar(&pendingRed, "pending-redemption", "", "shares queued for redemption")
	fs.StringVar(&pendingWd, "pending-withdrawal", "", "redeemed value awaiting payout")
	fs.StringVar(&note, "note", "", "audit note recorded with the change")
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
	investorAddr, err := parseAddressFlag("--investor", investor)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	current, err := env.ledger.GetInvestor(investorAddr)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	update := *current

	provided := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { provided[f.Name] = true })
	if provided["type"] {
		typ, err := fund.ParseInvestorType(investorType)
		if err != nil || !typ.Valid() {
			return printCommandError(stderr, "--type must be coin or fiat")
		}
		update.Type = typ
	}
	if provided["pending-subscription"] {
		amount, err := parseAmount("--pending-subscription", pendingSub)
		if err != nil {
			return printCommandError(stderr, err.Error())
		}
		update.PendingSubscription = amount
	}
	if provided["shares"] {
		amount, err := parseAmount("--shares", shares)
		if err != nil {
			return printCommandError(stderr, err.Error())
		}
		update.SharesOwned = amount
	}
	if provided["class"] {
		update.ShareClassID = classID
	}
	if provided["pending-redemption"] {
		amount, err := parseAmount("--pending-redemption", pendingRed)
		if err != nil {
			return printCommandError(stderr, err.Error())
		}
		update.PendingRedemption = amount
	}
	if provided["pending-withdrawal"] {
		amount, err := parseAmount("--pending-withdrawal", pendingWd)
		if err != nil {
			return printCommandError(stderr, err.Error())
		}
		update.PendingWithdrawal = amount
	}

	started := time.Now()
	opErr := env.ledger.ModifyInvestor(callerAddr, investorAddr, update, note)
	observeCommand("investor set", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	record, err := env.ledger.GetInvestor(investorAddr)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	env.logger.Info("investor record updated",
		slog.String("operation", "investor set"),
		logging.MaskField("investor", investor),
	)
	writeJSONResult(stdout, investorResult{
		Investor: newInvestorView(investorAddr, record),
		Events:   env.drainEvents(),
	})
	return 0
}

func runInvestorGet(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("investor get", stderr, investorUsage)
	var investor string
	fs.StringVar(&investor, "investor", "", "investor bech32 address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	investorAddr, err := parseAddressFlag("--investor", investor)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	record, opErr := env.ledger.GetInvestor(investorAddr)
	observeCommand("investor get", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	writeJSONResult(stdout, newInvestorView(investorAddr, record))
	return 0
}

func runInvestorType(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("investor type", stderr, investorUsage)
	var investor string
	fs.StringVar(&investor, "investor", "", "investor bech32 address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	investorAddr, err := parseAddressFlag("--investor", investor)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	typ, opErr := env.ledger.QueryInvestorType(investorAddr)
	observeCommand("investor type", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	writeJSONResult(stdout, struct {
		Address string `json:"address"`
		Type    string `json:"type"`
	}{Address: crypto.NewAddress(investorAddr).String(), Type: typ.String()})
	return 0
}

func runInvestorList(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("investor list", stderr, investorUsage)
	var caller string
	fs.StringVar(&caller, "caller", "", "governance or orchestrator bech32 address")
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
	index, opErr := env.ledger.InvestorAddresses(callerAddr)
	observeCommand("investor list", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	addresses := make([]string, 0, len(index))
	for _, addr := range index {
		addresses = append(addresses, crypto.NewAddress(addr).String())
	}
	writeJSONResult(stdout, struct {
		Count     int      `json:"count"`
		Investors []string `json:"investors"`
	}{Count: len(addresses), Investors: addresses})
	return 0
}

func investorUsage() string {
	return strings.TrimSpace(`Usage:
  fund-cli investor add --caller addr --investor addr --type coin|fiat
  fund-cli investor remove --caller addr --investor addr
  fund-cli investor set --caller addr --investor addr [--type t] [--pending-subscription n]
                        [--shares n] [--class id] [--pending-redemption n]
                        [--pending-withdrawal n] [--note text]
  fund-cli investor get --investor addr
  fund-cli investor type --investor addr
  fund-cli investor list --caller addr

investor set replaces the stored record wholesale; flags that are omitted keep
their current values. Balances are scaled integers and must not be negative.`)
}
