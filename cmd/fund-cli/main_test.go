package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"fundcore/config"
	"fundcore/core/state"
	"fundcore/crypto"
	"fundcore/native/fund"
	"fundcore/storage"
)

// newTestEnv wires a command environment over an in-memory database with a
// governance member and orchestrator already configured, and points openEnv
// at it for the duration of the test.
func newTestEnv(t *testing.T) (*cliEnv, [20]byte, [20]byte) {
	t.Helper()
	db := storage.NewMemDB()
	manager := state.NewManager(db)
	gov, _ := cliAddr(0xAA)
	orch, _ := cliAddr(0xBB)
	if err := manager.SetRole(fund.RoleGovernance, gov[:]); err != nil {
		t.Fatalf("seed governance role: %v", err)
	}
	if err := manager.PutOrchestrator(orch); err != nil {
		t.Fatalf("seed orchestrator: %v", err)
	}
	emitter := newMemoryEmitter()
	ledger := fund.NewLedger(manager)
	ledger.SetEmitter(emitter)
	env := &cliEnv{
		cfg:     &config.Config{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		db:      db,
		manager: manager,
		ledger:  ledger,
		engine:  fund.NewEngine(ledger),
		emitter: emitter,
	}
	original := openEnv
	openEnv = func() (*cliEnv, error) { return env, nil }
	t.Cleanup(func() { openEnv = original })
	return env, gov, orch
}

func cliAddr(fill byte) ([20]byte, string) {
	var raw [20]byte
	for i := range raw {
		raw[i] = fill
	}
	return raw, crypto.NewAddress(raw).String()
}

func decodeJSON(t *testing.T, buf *bytes.Buffer, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		t.Fatalf("decode command output: %v\noutput: %s", err, buf.String())
	}
}

func TestApplyGlobalFlags(t *testing.T) {
	original := configPath
	defer func() { configPath = original }()

	args, err := applyGlobalFlags([]string{"--config", "/tmp/fund.toml", "status"})
	if err != nil {
		t.Fatalf("apply global flags: %v", err)
	}
	if configPath != "/tmp/fund.toml" {
		t.Fatalf("unexpected config path: %s", configPath)
	}
	if len(args) != 1 || args[0] != "status" {
		t.Fatalf("unexpected remaining args: %v", args)
	}

	args, err = applyGlobalFlags([]string{"--config=/etc/fund.toml", "class", "count"})
	if err != nil {
		t.Fatalf("apply global flags: %v", err)
	}
	if configPath != "/etc/fund.toml" {
		t.Fatalf("unexpected config path: %s", configPath)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected remaining args: %v", args)
	}

	if _, err := applyGlobalFlags([]string{"--config"}); err == nil {
		t.Fatal("expected error for dangling --config")
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "plain", value: "12345", want: "12345"},
		{name: "underscores", value: "1_000_000", want: "1000000"},
		{name: "exponent", value: "15e2", want: "1500"},
		{name: "upper_exponent", value: "2E3", want: "2000"},
		{name: "zero", value: "0", want: "0"},
		{name: "negative", value: "-5", wantErr: true},
		{name: "negative_exponent", value: "1e-2", wantErr: true},
		{name: "empty", value: "  ", wantErr: true},
		{name: "garbage", value: "10x", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAmount("--amount", tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.value, err)
			}
			want, _ := new(big.Int).SetString(tc.want, 10)
			if got.Cmp(want) != 0 {
				t.Fatalf("unexpected amount: got %s, want %s", got, want)
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	env, govAddr, orchAddrRaw := newTestEnv(t)
	_, govStr := cliAddr(0xAA)

	if _, err := env.ledger.AddShareClass(govAddr, 50, 200, 2000); err != nil {
		t.Fatalf("add share class: %v", err)
	}
	investor, _ := cliAddr(0x01)
	if err := env.ledger.AddInvestor(orchAddrRaw, investor, fund.InvestorTypeCoin); err != nil {
		t.Fatalf("add investor: %v", err)
	}
	env.emitter.Drain()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	if code := runStatusCommand(nil, stdout, stderr); code != 0 {
		t.Fatalf("status failed: %s", stderr.String())
	}
	var result statusResult
	decodeJSON(t, stdout, &result)
	if result.ShareClasses != 1 {
		t.Fatalf("unexpected class count: %d", result.ShareClasses)
	}
	if result.TotalShares != "0" {
		t.Fatalf("unexpected total shares: %s", result.TotalShares)
	}
	if result.ActiveInvestors != nil {
		t.Fatal("investor count should be omitted without a caller")
	}
	if len(result.Classes) != 1 || result.Classes[0].MgmtFeeBps != 200 {
		t.Fatalf("unexpected class summary: %+v", result.Classes)
	}

	stdout.Reset()
	stderr.Reset()
	if code := runStatusCommand([]string{"--caller", govStr}, stdout, stderr); code != 0 {
		t.Fatalf("privileged status failed: %s", stderr.String())
	}
	decodeJSON(t, stdout, &result)
	if result.ActiveInvestors == nil || *result.ActiveInvestors != 1 {
		t.Fatalf("unexpected investor count: %+v", result.ActiveInvestors)
	}

	stdout.Reset()
	stderr.Reset()
	_, strangerStr := cliAddr(0xEE)
	if code := runStatusCommand([]string{"--caller", strangerStr}, stdout, stderr); code != 1 {
		t.Fatal("expected unauthorized caller to fail")
	}
}

func TestStatusRejectsPositionalArgs(t *testing.T) {
	newTestEnv(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	if code := runStatusCommand([]string{"extra"}, stdout, stderr); code != 1 {
		t.Fatal("expected positional arguments to be rejected")
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected empty stdout, got %q", stdout.String())
	}
}
