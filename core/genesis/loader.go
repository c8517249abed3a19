// core/genesis/loader.go
package genesis

import (
	"fmt"
	"math/big"

	"fundcore/core/state"
	"fundcore/native/fund"
)

// ApplyGenesisSpec seeds an empty state database from the spec: governance
// role grants, the orchestrator identity, the declared share classes at par
// and the onboarded investors. The writes land through one session so a
// failing spec leaves the database untouched.
func ApplyGenesisSpec(spec *GenesisSpec, manager *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	if err := spec.validate(); err != nil {
		return err
	}

	manager.Begin()
	if err := applyGenesisState(spec, manager); err != nil {
		manager.Rollback()
		return err
	}
	return manager.Commit()
}

func applyGenesisState(spec *GenesisSpec, manager *state.Manager) error {
	genesisUnix := uint64(spec.GenesisTimestamp().Unix())

	for i, addr := range spec.governanceAddrs {
		if err := manager.SetRole(fund.RoleGovernance, addr[:]); err != nil {
			return fmt.Errorf("governance[%d]: %w", i, err)
		}
	}

	if err := manager.PutOrchestrator(spec.orchestratorAddr); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	for i := range spec.ShareClasses {
		declared := &spec.ShareClasses[i]
		class := &fund.ShareClass{
			ID:                 uint64(i),
			AdminFeeBps:        declared.AdminFeeBps,
			MgmtFeeBps:         declared.MgmtFeeBps,
			PerformFeeBps:      declared.PerformFeeBps,
			ShareSupply:        big.NewInt(0),
			ShareNav:           big.NewInt(fund.ParShareNav),
			LastCalc:           genesisUnix,
			AccruedMgmtFees:    big.NewInt(0),
			AccruedAdminFees:   big.NewInt(0),
			AccruedPerformFees: big.NewInt(0),
			LossCarryforward:   big.NewInt(0),
		}
		if err := manager.PutShareClass(class); err != nil {
			return fmt.Errorf("shareClass[%d]: %w", i, err)
		}
	}
	if err := manager.PutClassCount(uint64(len(spec.ShareClasses))); err != nil {
		return fmt.Errorf("class count: %w", err)
	}
	if err := manager.PutTotalShares(big.NewInt(0)); err != nil {
		return fmt.Errorf("total shares: %w", err)
	}

	for i, entry := range spec.investorEntries {
		record := fund.EmptyInvestorRecord()
		record.Type = entry.typ
		if err := manager.PutInvestor(entry.addr, record); err != nil {
			return fmt.Errorf("investor[%d]: %w", i, err)
		}
		if err := manager.AppendInvestorIndex(entry.addr); err != nil {
			return fmt.Errorf("investor[%d]: %w", i, err)
		}
	}
	return nil
}
