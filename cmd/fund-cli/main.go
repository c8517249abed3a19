package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"fundcore/config"
	"fundcore/core/events"
	"fundcore/core/state"
	"fundcore/core/types"
	"fundcore/crypto"
	"fundcore/native/fund"
	"fundcore/observability"
	"fundcore/observability/logging"
	"fundcore/storage"
)

var configPath = defaultConfigPath() // Defaults to ./config.toml, can be overridden via FUND_CONFIG or --config

func main() {
	args := os.Args[1:]
	var err error
	configPath = defaultConfigPath()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	var code int
	command := args[0]
	switch command {
	case "init":
		code = runInitCommand(args[1:], os.Stdout, os.Stderr)
	case "investor":
		code = runInvestorCommand(args[1:], os.Stdout, os.Stderr)
	case "class":
		code = runClassCommand(args[1:], os.Stdout, os.Stderr)
	case "nav":
		code = runNavCommand(args[1:], os.Stdout, os.Stderr)
	case "orchestrator":
		code = runOrchestratorCommand(args[1:], os.Stdout, os.Stderr)
	case "status":
		code = runStatusCommand(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = 1
	}
	if code != 0 {
		os.Exit(code)
	}
}

func defaultConfigPath() string {
	if v := strings.TrimSpace(os.Getenv("FUND_CONFIG")); v != "" {
		return v
	}
	return "./config.toml"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			configPath = strings.TrimPrefix(arg, "--config=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func printUsage() {
	fmt.Println(strings.TrimSpace(`Usage:
  fund-cli [--config path] <command> [flags]

Commands:
  init          Seed an empty state database from a genesis document
  investor      Manage investor records
  class         Manage share classes
  nav           Update and recompute per-share NAV
  orchestrator  Show or rotate the orchestrator identity
  status        Summarise ledger state`))
}

// cliEnv bundles everything one command invocation needs: the parsed config,
// the structured logger and a ledger opened over the local state database.
type cliEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      storage.Database
	manager *state.Manager
	ledger  *fund.Ledger
	engine  *fund.Engine
	emitter *memoryEmitter
}

// openEnv is a package variable so tests can substitute an in-memory
// environment.
var openEnv = newLedgerEnv

func newLedgerEnv() (*cliEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	envProfile, err := config.ParseEnvironment(cfg.Environment)
	if err != nil {
		return nil, err
	}
	logger := logging.SetupWithFile("fund-cli", envProfile.String(), cfg.LogFile)
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	manager := state.NewManager(db)
	emitter := newMemoryEmitter()
	ledger := fund.NewLedger(manager)
	ledger.SetEmitter(emitter)
	return &cliEnv{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		manager: manager,
		ledger:  ledger,
		engine:  fund.NewEngine(ledger),
		emitter: emitter,
	}, nil
}

func (e *cliEnv) Close() {
	if e != nil && e.db != nil {
		e.db.Close()
	}
}

// drainEvents converts the events collected during the invocation into their
// JSON view and feeds the emission counters.
func (e *cliEnv) drainEvents() []eventView {
	raw := e.emitter.Drain()
	views := make([]eventView, 0, len(raw))
	for _, ev := range raw {
		observability.Events().RecordEvent(ev.Type)
		views = append(views, eventView{Type: ev.Type, Attributes: ev.Attributes})
	}
	return views
}

func observeCommand(command string, started time.Time, err error) {
	observability.Commands().Observe(command, time.Since(started), err)
}

// memoryEmitter buffers ledger events for the duration of one invocation.
type memoryEmitter struct {
	events []*types.Event
}

func newMemoryEmitter() *memoryEmitter {
	return &memoryEmitter{}
}

func (m *memoryEmitter) Emit(ev events.Event) {
	type attributed interface {
		Event() *types.Event
	}
	if a, ok := ev.(attributed); ok {
		m.events = append(m.events, a.Event())
		return
	}
	m.events = append(m.events, &types.Event{Type: ev.EventType()})
}

func (m *memoryEmitter) Drain() []*types.Event {
	out := m.events
	m.events = nil
	return out
}

func newFundFlagSet(name string, stderr io.Writer, usage func() string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage())
	}
	return fs
}

func printCommandError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func writeJSONResult(w io.Writer, result interface{}) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

func parseCaller(value string) ([20]byte, error) {
	return parseAddressFlag("--caller", value)
}

func parseAddressFlag(flagName, value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, fmt.Errorf("%s is required", flagName)
	}
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid %s: %v", flagName, err)
	}
	return decoded.Bytes20(), nil
}

// parseAmount parses a non-negative scaled integer, accepting underscore
// separators and 15e2 style shorthand.
func parseAmount(flagName, value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("%s is required", flagName)
	}
	var exponent int64
	base := trimmed
	if idx := strings.IndexAny(trimmed, "eE"); idx != -1 {
		base = trimmed[:idx]
		expPart := strings.TrimSpace(trimmed[idx+1:])
		if expPart == "" {
			return nil, fmt.Errorf("invalid scientific notation in %s", flagName)
		}
		expValue, err := strconv.ParseInt(expPart, 10, 32)
		if err != nil || expValue < 0 {
			return nil, fmt.Errorf("invalid scientific notation in %s", flagName)
		}
		exponent = expValue
	}
	base = strings.TrimSpace(strings.TrimPrefix(base, "+"))
	if strings.HasPrefix(base, "-") {
		return nil, fmt.Errorf("%s must not be negative", flagName)
	}
	amount, ok := new(big.Int).SetString(base, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", flagName, value)
	}
	if exponent > 0 {
		amount.Mul(amount, new(big.Int).Exp(big.NewInt(10), big.NewInt(exponent), nil))
	}
	return amount, nil
}

type eventView struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type investorView struct {
	Address             string `json:"address"`
	Type                string `json:"type"`
	PendingSubscription string `json:"pendingSubscription"`
	SharesOwned         string `json:"sharesOwned"`
	ShareClassID        uint64 `json:"shareClassId"`
	PendingRedemption   string `json:"pendingRedemption"`
	PendingWithdrawal   string `json:"pendingWithdrawal"`
}

func newInvestorView(addr [20]byte, record *fund.InvestorRecord) investorView {
	return investorView{
		Address:             crypto.NewAddress(addr).String(),
		Type:                record.Type.String(),
		PendingSubscription: record.PendingSubscription.String(),
		SharesOwned:         record.SharesOwned.String(),
		ShareClassID:        record.ShareClassID,
		PendingRedemption:   record.PendingRedemption.String(),
		PendingWithdrawal:   record.PendingWithdrawal.String(),
	}
}

type classView struct {
	ID                 uint64 `json:"id"`
	AdminFeeBps        uint64 `json:"adminFeeBps"`
	MgmtFeeBps         uint64 `json:"mgmtFeeBps"`
	PerformFeeBps      uint64 `json:"performFeeBps"`
	ShareSupply        string `json:"shareSupply"`
	ShareNav           string `json:"shareNav"`
	LastCalc           uint64 `json:"lastCalc"`
	AccruedMgmtFees    string `json:"accruedMgmtFees"`
	AccruedAdminFees   string `json:"accruedAdminFees"`
	AccruedPerformFees string `json:"accruedPerformFees"`
	LossCarryforward   string `json:"lossCarryforward"`
}

func newClassView(class *fund.ShareClass) classView {
	return classView{
		ID:                 class.ID,
		AdminFeeBps:        class.AdminFeeBps,
		MgmtFeeBps:         class.MgmtFeeBps,
		PerformFeeBps:      class.PerformFeeBps,
		ShareSupply:        class.ShareSupply.String(),
		ShareNav:           class.ShareNav.String(),
		LastCalc:           class.LastCalc,
		AccruedMgmtFees:    class.AccruedMgmtFees.String(),
		AccruedAdminFees:   class.AccruedAdminFees.String(),
		AccruedPerformFees: class.AccruedPerformFees.String(),
		LossCarryforward:   class.LossCarryforward.String(),
	}
}

type computationView struct {
	ClassID            uint64 `json:"classId"`
	ElapsedSeconds     uint64 `json:"elapsedSeconds"`
	GrossAssetValue    string `json:"grossAssetValue"`
	NavBefore          string `json:"navBefore"`
	MgmtFee            string `json:"mgmtFee"`
	AdminFee           string `json:"adminFee"`
	GavNet             string `json:"gavNet"`
	GainLoss           string `json:"gainLoss"`
	PerformFeePayback  string `json:"performFeePayback"`
	LossPayback        string `json:"lossPayback"`
	PerformFee         string `json:"performFee"`
	NetGain            string `json:"netGain"`
	NavAfter           string `json:"navAfter"`
	ShareNav           string `json:"shareNav"`
	LossCarryforward   string `json:"lossCarryforward"`
	AccruedMgmtFees    string `json:"accruedMgmtFees"`
	AccruedAdminFees   string `json:"accruedAdminFees"`
	AccruedPerformFees string `json:"accruedPerformFees"`
}

func newComputationView(comp *fund.Computation) computationView {
	return computationView{
		ClassID:            comp.ClassID,
		ElapsedSeconds:     comp.ElapsedSeconds,
		GrossAssetValue:    comp.GrossAssetValue.String(),
		NavBefore:          comp.NavBefore.String(),
		MgmtFee:            comp.MgmtFee.String(),
		AdminFee:           comp.AdminFee.String(),
		GavNet:             comp.GavNet.String(),
		GainLoss:           comp.GainLoss.String(),
		PerformFeePayback:  comp.PerformFeePayback.String(),
		LossPayback:        comp.LossPayback.String(),
		PerformFee:         comp.PerformFee.String(),
		NetGain:            comp.NetGain.String(),
		NavAfter:           comp.NavAfter.String(),
		ShareNav:           comp.ShareNav.String(),
		LossCarryforward:   comp.LossCarryforward.String(),
		AccruedMgmtFees:    comp.AccruedMgmtFees.String(),
		AccruedAdminFees:   comp.AccruedAdminFees.String(),
		AccruedPerformFees: comp.AccruedPerformFees.String(),
	}
}

type statusResult struct {
	Orchestrator    string      `json:"orchestrator,omitempty"`
	ShareClasses    uint64      `json:"shareClasses"`
	TotalShares     string      `json:"totalShares"`
	Classes         []classView `json:"classes,omitempty"`
	ActiveInvestors *int        `json:"activeInvestors,omitempty"`
}

func runStatusCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("status", stderr, statusUsage)
	var caller string
	fs.StringVar(&caller, "caller", "", "optional bech32 address for privileged detail")
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
	result, opErr := buildStatus(env, caller)
	observeCommand("status", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	writeJSONResult(stdout, result)
	return 0
}

func buildStatus(env *cliEnv, caller string) (*statusResult, error) {
	orchestrator, err := env.ledger.Orchestrator()
	if err != nil {
		return nil, err
	}
	count, err := env.ledger.NumberOfShareClasses()
	if err != nil {
		return nil, err
	}
	total, err := env.ledger.TotalShareSupply()
	if err != nil {
		return nil, err
	}
	result := &statusResult{
		ShareClasses: count,
		TotalShares:  total.String(),
	}
	if orchestrator != ([20]byte{}) {
		result.Orchestrator = crypto.NewAddress(orchestrator).String()
	}
	for id := uint64(0); id < count; id++ {
		class, err := env.ledger.GetShareClass(id)
		if err != nil {
			return nil, err
		}
		result.Classes = append(result.Classes, newClassView(class))
	}
	if strings.TrimSpace(caller) != "" {
		callerAddr, err := parseCaller(caller)
		if err != nil {
			return nil, err
		}
		index, err := env.ledger.InvestorAddresses(callerAddr)
		if err != nil {
			return nil, err
		}
		investors := len(index)
		result.ActiveInvestors = &investors
	}
	return result, nil
}

func statusUsage() string {
	return strings.TrimSpace(`Usage:
  fund-cli status [--caller addr]

Summarises the orchestrator identity, share classes and total supply. When
--caller names a governance member or the orchestrator the active investor
count is included.`)
}
