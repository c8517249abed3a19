package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"fundcore/native/fund"
)

func runNavCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, navUsage())
		return 1
	}
	switch args[0] {
	case "recalc":
		return runNavRecalc(args[1:], stdout, stderr)
	case "update":
		return runNavUpdate(args[1:], stdout, stderr)
	case "set-fees":
		return runNavSetFees(args[1:], stdout, stderr)
	case "show":
		return runNavShow(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown nav subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, navUsage())
		return 1
	}
}

func runNavRecalc(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("nav recalc", stderr, navUsage)
	var caller, gav, portfolio, liquid, rateNum, rateDen string
	var classID uint64
	fs.StringVar(&caller, "caller", "", "orchestrator bech32 address")
	fs.Uint64Var(&classID, "class", 0, "share class identifier")
	fs.StringVar(&gav, "gav", "", "gross asset value at share scale")
	fs.StringVar(&portfolio, "portfolio", "", "portfolio valuation in quote units")
	fs.StringVar(&liquid, "liquid", "", "liquid balance in quote units")
	fs.StringVar(&rateNum, "rate-num", "1", "quote conversion rate numerator")
	fs.StringVar(&rateDen, "rate-den", "1", "quote conversion rate denominator")
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
	grossValue, err := resolveGrossAssetValue(gav, portfolio, liquid, rateNum, rateDen)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	comp, opErr := env.engine.Recalculate(callerAddr, classID, grossValue)
	observeCommand("nav recalc", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	env.logger.Info("nav recalculated",
		slog.String("operation", "nav recalc"),
		slog.Uint64("class", classID),
		slog.String("share_nav", comp.ShareNav.String()),
	)
	writeJSONResult(stdout, struct {
		Computation computationView `json:"computation"`
		Events      []eventView     `json:"events,omitempty"`
	}{Computation: newComputationView(comp), Events: env.drainEvents()})
	return 0
}

// resolveGrossAssetValue accepts either a precomputed --gav or the
// portfolio/liquid/rate quartet and converts the latter into share scale.
func resolveGrossAssetValue(gav, portfolio, liquid, rateNum, rateDen string) (*big.Int, error) {
	if strings.TrimSpace(gav) != "" {
		if strings.TrimSpace(portfolio) != "" || strings.TrimSpace(liquid) != "" {
			return nil, fmt.Errorf("--gav cannot be combined with --portfolio or --liquid")
		}
		return parseAmount("--gav", gav)
	}
	if strings.TrimSpace(portfolio) == "" && strings.TrimSpace(liquid) == "" {
		return nil, fmt.Errorf("either --gav or --portfolio/--liquid is required")
	}
	portfolioValue := big.NewInt(0)
	liquidValue := big.NewInt(0)
	var err error
	if strings.TrimSpace(portfolio) != "" {
		portfolioValue, err = parseAmount("--portfolio", portfolio)
		if err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(liquid) != "" {
		liquidValue, err = parseAmount("--liquid", liquid)
		if err != nil {
			return nil, err
		}
	}
	num, err := parseAmount("--rate-num", rateNum)
	if err != nil {
		return nil, err
	}
	den, err := parseAmount("--rate-den", rateDen)
	if err != nil {
		return nil, err
	}
	return fund.GrossAssetValue(portfolioValue, liquidValue, num, den)
}

func runNavUpdate(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("nav update", stderr, navUsage)
	var caller, nav string
	var classID uint64
	fs.StringVar(&caller, "caller", "", "orchestrator bech32 address")
	fs.Uint64Var(&classID, "class", 0, "share class identifier")
	fs.StringVar(&nav, "nav", "", "per-share NAV at share scale")
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
	newNav, err := parseAmount("--nav", nav)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	opErr := env.ledger.UpdateNav(callerAddr, classID, newNav)
	observeCommand("nav update", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	class, err := env.ledger.GetShareClass(classID)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	env.logger.Info("nav updated",
		slog.String("operation", "nav update"),
		slog.Uint64("class", classID),
		slog.String("share_nav", class.ShareNav.String()),
	)
	writeJSONResult(stdout, classResult{Class: newClassView(class), Events: env.drainEvents()})
	return 0
}

func runNavSetFees(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("nav set-fees", stderr, navUsage)
	var caller, carry, mgmt, admin, perform string
	var classID uint64
	fs.StringVar(&caller, "caller", "", "orchestrator bech32 address")
	fs.Uint64Var(&classID, "class", 0, "share class identifier")
	fs.StringVar(&carry, "loss-carryforward", "0", "outstanding loss carryforward")
	fs.StringVar(&mgmt, "accrued-mgmt", "0", "accrued management fees")
	fs.StringVar(&admin, "accrued-admin", "0", "accrued administration fees")
	fs.StringVar(&perform, "accrued-perform", "0", "accrued performance fees")
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
	carryValue, err := parseAmount("--loss-carryforward", carry)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	mgmtValue, err := parseAmount("--accrued-mgmt", mgmt)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	adminValue, err := parseAmount("--accrued-admin", admin)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	performValue, err := parseAmount("--accrued-perform", perform)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	started := time.Now()
	opErr := env.ledger.UpdateFeeState(callerAddr, classID, carryValue, mgmtValue, adminValue, performValue)
	observeCommand("nav set-fees", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	class, err := env.ledger.GetShareClass(classID)
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	env.logger.Info("fee state updated",
		slog.String("operation", "nav set-fees"),
		slog.Uint64("class", classID),
	)
	writeJSONResult(stdout, classResult{Class: newClassView(class), Events: env.drainEvents()})
	return 0
}

func runNavShow(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("nav show", stderr, navUsage)
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
	observeCommand("nav show", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	writeJSONResult(stdout, struct {
		ClassID            uint64 `json:"classId"`
		ShareNav           string `json:"shareNav"`
		ShareSupply        string `json:"shareSupply"`
		LastCalc           uint64 `json:"lastCalc"`
		LossCarryforward   string `json:"lossCarryforward"`
		AccruedMgmtFees    string `json:"accruedMgmtFees"`
		AccruedAdminFees   string `json:"accruedAdminFees"`
		AccruedPerformFees string `json:"accruedPerformFees"`
	}{
		ClassID:            class.ID,
		ShareNav:           class.ShareNav.String(),
		ShareSupply:        class.ShareSupply.String(),
		LastCalc:           class.LastCalc,
		LossCarryforward:   class.LossCarryforward.String(),
		AccruedMgmtFees:    class.AccruedMgmtFees.String(),
		AccruedAdminFees:   class.AccruedAdminFees.String(),
		AccruedPerformFees: class.AccruedPerformFees.String(),
	})
	return 0
}

func navUsage() string {
	return strings.TrimSpace(`Usage:
  fund-cli nav recalc --caller addr --class id --gav n
  fund-cli nav recalc --caller addr --class id --portfolio n --liquid n [--rate-num n] [--rate-den n]
  fund-cli nav update --caller addr --class id --nav n
  fund-cli nav set-fees --caller addr --class id [--loss-carryforward n]
                        [--accrued-mgmt n] [--accrued-admin n] [--accrued-perform n]
  fund-cli nav show --class id

recalc accrues fees for the elapsed period, settles the loss carryforward and
persists the resulting per-share NAV. All commands mutating state require the
orchestrator.`)
}
