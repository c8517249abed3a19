// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"fundcore/native/fund"
)

// GenesisSpec is the JSON document a fund node boots from: the governance
// council, the orchestrator identity, the initial share classes and the
// onboarded investors.
type GenesisSpec struct {
	GenesisTime  string           `json:"genesisTime"`
	Governance   []string         `json:"governance"`
	Orchestrator string           `json:"orchestrator"`
	ShareClasses []ShareClassSpec `json:"shareClasses,omitempty"`
	Investors    []InvestorSpec   `json:"investors,omitempty"`

	genesisTimestamp time.Time
	governanceAddrs  [][20]byte
	orchestratorAddr [20]byte
	investorEntries  []investorEntry
}

// ShareClassSpec declares the fee schedule for one class created at genesis.
// Identifiers are assigned densely in declaration order.
type ShareClassSpec struct {
	AdminFeeBps   uint64 `json:"adminFeeBps"`
	MgmtFeeBps    uint64 `json:"mgmtFeeBps"`
	PerformFeeBps uint64 `json:"performFeeBps"`
}

// InvestorSpec declares one investor onboarded at genesis with empty
// balances.
type InvestorSpec struct {
	Address string `json:"address"`
	Type    string `json:"type"`
}

type investorEntry struct {
	addr [20]byte
	typ  fund.InvestorType
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// GovernanceAddresses returns the parsed governance council.
func (s *GenesisSpec) GovernanceAddresses() [][20]byte {
	out := make([][20]byte, len(s.governanceAddrs))
	copy(out, s.governanceAddrs)
	return out
}

// OrchestratorAddress returns the parsed orchestrator identity.
func (s *GenesisSpec) OrchestratorAddress() [20]byte { return s.orchestratorAddr }

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	if parsedTime.Unix() < 0 {
		return fmt.Errorf("genesisTime must not predate the unix epoch")
	}
	s.genesisTimestamp = parsedTime

	// governance
	if len(s.Governance) == 0 {
		return fmt.Errorf("governance: at least one council member required")
	}
	s.governanceAddrs = make([][20]byte, 0, len(s.Governance))
	governanceSeen := make(map[[20]byte]struct{}, len(s.Governance))
	for i, account := range s.Governance {
		addr, err := ParseBech32Account(strings.TrimSpace(account))
		if err != nil {
			return fmt.Errorf("governance[%d]: %w", i, err)
		}
		if addr == ([20]byte{}) {
			return fmt.Errorf("governance[%d]: null identity", i)
		}
		if _, exists := governanceSeen[addr]; exists {
			return fmt.Errorf("governance[%d]: duplicate address %q", i, account)
		}
		governanceSeen[addr] = struct{}{}
		s.governanceAddrs = append(s.governanceAddrs, addr)
	}

	// orchestrator
	if strings.TrimSpace(s.Orchestrator) == "" {
		return fmt.Errorf("orchestrator must be provided")
	}
	orchestrator, err := ParseBech32Account(strings.TrimSpace(s.Orchestrator))
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if orchestrator == ([20]byte{}) {
		return fmt.Errorf("orchestrator: null identity")
	}
	s.orchestratorAddr = orchestrator

	// share classes
	for i := range s.ShareClasses {
		if err := s.ShareClasses[i].validate(); err != nil {
			return fmt.Errorf("shareClass[%d]: %w", i, err)
		}
	}

	// investors
	s.investorEntries = make([]investorEntry, 0, len(s.Investors))
	investorSeen := make(map[[20]byte]struct{}, len(s.Investors))
	for i := range s.Investors {
		inv := &s.Investors[i]
		addr, err := ParseBech32Account(strings.TrimSpace(inv.Address))
		if err != nil {
			return fmt.Errorf("investor[%d]: %w", i, err)
		}
		if addr == ([20]byte{}) {
			return fmt.Errorf("investor[%d]: null identity", i)
		}
		if _, exists := investorSeen[addr]; exists {
			return fmt.Errorf("investor[%d]: duplicate address %q", i, inv.Address)
		}
		typ, err := fund.ParseInvestorType(inv.Type)
		if err != nil {
			return fmt.Errorf("investor[%d]: %w", i, err)
		}
		if !typ.Valid() {
			return fmt.Errorf("investor[%d]: type must be coin or fiat", i)
		}
		investorSeen[addr] = struct{}{}
		s.investorEntries = append(s.investorEntries, investorEntry{addr: addr, typ: typ})
	}
	return nil
}

func (c *ShareClassSpec) validate() error {
	for _, bps := range []uint64{c.AdminFeeBps, c.MgmtFeeBps, c.PerformFeeBps} {
		if bps > fund.MaxFeeBps {
			return fmt.Errorf("fee rate %d exceeds %d bps", bps, fund.MaxFeeBps)
		}
	}
	return nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
