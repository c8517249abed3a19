package state

import (
	"math/big"
	"testing"

	"fundcore/native/fund"
	"fundcore/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func TestInvestorRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	addr := [20]byte{0x01}

	if _, ok, err := mgr.GetInvestor(addr); err != nil {
		t.Fatalf("get missing investor: %v", err)
	} else if ok {
		t.Fatalf("expected missing investor")
	}

	record := &fund.InvestorRecord{
		Type:                fund.InvestorTypeCoin,
		PendingSubscription: big.NewInt(500),
		SharesOwned:         big.NewInt(12050),
		ShareClassID:        2,
		PendingRedemption:   big.NewInt(0),
		PendingWithdrawal:   big.NewInt(75),
	}
	if err := mgr.PutInvestor(addr, record); err != nil {
		t.Fatalf("put investor: %v", err)
	}

	loaded, ok, err := mgr.GetInvestor(addr)
	if err != nil {
		t.Fatalf("get investor: %v", err)
	}
	if !ok {
		t.Fatalf("expected stored investor")
	}
	if loaded.Type != fund.InvestorTypeCoin {
		t.Fatalf("unexpected type: %v", loaded.Type)
	}
	if loaded.PendingSubscription.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected pending subscription: %s", loaded.PendingSubscription)
	}
	if loaded.SharesOwned.Cmp(big.NewInt(12050)) != 0 {
		t.Fatalf("unexpected shares owned: %s", loaded.SharesOwned)
	}
	if loaded.ShareClassID != 2 {
		t.Fatalf("unexpected class id: %d", loaded.ShareClassID)
	}
	if loaded.PendingWithdrawal.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("unexpected pending withdrawal: %s", loaded.PendingWithdrawal)
	}

	loaded.SharesOwned.SetInt64(1)
	reloaded, _, err := mgr.GetInvestor(addr)
	if err != nil {
		t.Fatalf("reload investor: %v", err)
	}
	if reloaded.SharesOwned.Cmp(big.NewInt(12050)) != 0 {
		t.Fatalf("stored record aliased by caller mutation: %s", reloaded.SharesOwned)
	}

	if err := mgr.DeleteInvestor(addr); err != nil {
		t.Fatalf("delete investor: %v", err)
	}
	if _, ok, err := mgr.GetInvestor(addr); err != nil {
		t.Fatalf("get deleted investor: %v", err)
	} else if ok {
		t.Fatalf("expected investor to be deleted")
	}
}

func TestPutInvestorRejectsNegativeBalance(t *testing.T) {
	mgr := newTestManager(t)
	record := fund.EmptyInvestorRecord()
	record.Type = fund.InvestorTypeFiat
	record.PendingWithdrawal = big.NewInt(-1)
	if err := mgr.PutInvestor([20]byte{0x02}, record); err == nil {
		t.Fatalf("expected negative balance rejection")
	}
}

func TestInvestorIndex(t *testing.T) {
	mgr := newTestManager(t)

	index, err := mgr.GetInvestorIndex()
	if err != nil {
		t.Fatalf("get empty index: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(index))
	}

	a := [20]byte{0xaa}
	b := [20]byte{0xbb}
	c := [20]byte{0xcc}
	for _, addr := range [][20]byte{a, b, c, b} {
		if err := mgr.AppendInvestorIndex(addr); err != nil {
			t.Fatalf("append %x: %v", addr, err)
		}
	}

	index, err = mgr.GetInvestorIndex()
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	if len(index) != 3 {
		t.Fatalf("expected 3 entries after duplicate append, got %d", len(index))
	}
	if index[0] != a || index[1] != b || index[2] != c {
		t.Fatalf("unexpected index order: %x", index)
	}

	// Swap-remove of b: c moves into its slot and the tail is dropped.
	index[1] = index[len(index)-1]
	index = index[:len(index)-1]
	if err := mgr.PutInvestorIndex(index); err != nil {
		t.Fatalf("put shrunk index: %v", err)
	}

	reloaded, err := mgr.GetInvestorIndex()
	if err != nil {
		t.Fatalf("reload index: %v", err)
	}
	if len(reloaded) != 2 || reloaded[0] != a || reloaded[1] != c {
		t.Fatalf("unexpected shrunk index: %x", reloaded)
	}
}

func TestShareClassRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	if _, ok, err := mgr.GetShareClass(0); err != nil {
		t.Fatalf("get missing class: %v", err)
	} else if ok {
		t.Fatalf("expected missing class")
	}

	class := &fund.ShareClass{
		ID:                 0,
		AdminFeeBps:        50,
		MgmtFeeBps:         200,
		PerformFeeBps:      2000,
		ShareSupply:        big.NewInt(100000),
		ShareNav:           big.NewInt(fund.ParShareNav),
		LastCalc:           1_700_000_000,
		AccruedMgmtFees:    big.NewInt(16438),
		AccruedAdminFees:   big.NewInt(4109),
		AccruedPerformFees: big.NewInt(15890),
		LossCarryforward:   big.NewInt(0),
	}
	if err := mgr.PutShareClass(class); err != nil {
		t.Fatalf("put class: %v", err)
	}

	loaded, ok, err := mgr.GetShareClass(0)
	if err != nil {
		t.Fatalf("get class: %v", err)
	}
	if !ok {
		t.Fatalf("expected stored class")
	}
	if loaded.AdminFeeBps != 50 || loaded.MgmtFeeBps != 200 || loaded.PerformFeeBps != 2000 {
		t.Fatalf("unexpected fee schedule: %+v", loaded)
	}
	if loaded.ShareSupply.Cmp(big.NewInt(100000)) != 0 {
		t.Fatalf("unexpected supply: %s", loaded.ShareSupply)
	}
	if loaded.ShareNav.Cmp(big.NewInt(fund.ParShareNav)) != 0 {
		t.Fatalf("unexpected nav: %s", loaded.ShareNav)
	}
	if loaded.LastCalc != 1_700_000_000 {
		t.Fatalf("unexpected last calc: %d", loaded.LastCalc)
	}
	if loaded.AccruedPerformFees.Cmp(big.NewInt(15890)) != 0 {
		t.Fatalf("unexpected perform accrual: %s", loaded.AccruedPerformFees)
	}
}

func TestClassCountAndTotalShares(t *testing.T) {
	mgr := newTestManager(t)

	count, err := mgr.GetClassCount()
	if err != nil {
		t.Fatalf("get count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero count, got %d", count)
	}
	if err := mgr.PutClassCount(3); err != nil {
		t.Fatalf("put count: %v", err)
	}
	count, err = mgr.GetClassCount()
	if err != nil {
		t.Fatalf("reload count: %v", err)
	}
	if count != 3 {
		t.Fatalf("unexpected count: %d", count)
	}

	total, err := mgr.GetTotalShares()
	if err != nil {
		t.Fatalf("get total: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("expected zero total, got %s", total)
	}
	if err := mgr.PutTotalShares(big.NewInt(250000)); err != nil {
		t.Fatalf("put total: %v", err)
	}
	total, err = mgr.GetTotalShares()
	if err != nil {
		t.Fatalf("reload total: %v", err)
	}
	if total.Cmp(big.NewInt(250000)) != 0 {
		t.Fatalf("unexpected total: %s", total)
	}
	if err := mgr.PutTotalShares(big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative total rejection")
	}
}

func TestOrchestratorRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	if _, ok, err := mgr.GetOrchestrator(); err != nil {
		t.Fatalf("get unset orchestrator: %v", err)
	} else if ok {
		t.Fatalf("expected unset orchestrator")
	}

	if err := mgr.PutOrchestrator([20]byte{}); err == nil {
		t.Fatalf("expected null orchestrator rejection")
	}

	addr := [20]byte{0x0f, 0x0e}
	if err := mgr.PutOrchestrator(addr); err != nil {
		t.Fatalf("put orchestrator: %v", err)
	}
	stored, ok, err := mgr.GetOrchestrator()
	if err != nil {
		t.Fatalf("get orchestrator: %v", err)
	}
	if !ok || stored != addr {
		t.Fatalf("unexpected orchestrator: %x ok=%v", stored, ok)
	}
}

func TestSessionCommitFlushesAtomically(t *testing.T) {
	mgr := newTestManager(t)
	addr := [20]byte{0x05}

	mgr.Begin()
	if !mgr.InSession() {
		t.Fatalf("expected open session")
	}
	record := fund.EmptyInvestorRecord()
	record.Type = fund.InvestorTypeCoin
	if err := mgr.PutInvestor(addr, record); err != nil {
		t.Fatalf("put in session: %v", err)
	}
	if err := mgr.AppendInvestorIndex(addr); err != nil {
		t.Fatalf("append in session: %v", err)
	}

	// Reads inside the session observe the staged writes.
	if _, ok, err := mgr.GetInvestor(addr); err != nil || !ok {
		t.Fatalf("staged investor not visible: ok=%v err=%v", ok, err)
	}

	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.InSession() {
		t.Fatalf("session should be closed after commit")
	}

	loaded, ok, err := mgr.GetInvestor(addr)
	if err != nil || !ok {
		t.Fatalf("committed investor missing: ok=%v err=%v", ok, err)
	}
	if loaded.Type != fund.InvestorTypeCoin {
		t.Fatalf("unexpected committed type: %v", loaded.Type)
	}
	index, err := mgr.GetInvestorIndex()
	if err != nil {
		t.Fatalf("committed index: %v", err)
	}
	if len(index) != 1 || index[0] != addr {
		t.Fatalf("unexpected committed index: %x", index)
	}
}

func TestSessionRollbackDiscardsWrites(t *testing.T) {
	mgr := newTestManager(t)
	addr := [20]byte{0x06}

	seed := fund.EmptyInvestorRecord()
	seed.Type = fund.InvestorTypeFiat
	if err := mgr.PutInvestor(addr, seed); err != nil {
		t.Fatalf("seed investor: %v", err)
	}

	mgr.Begin()
	if err := mgr.DeleteInvestor(addr); err != nil {
		t.Fatalf("delete in session: %v", err)
	}
	if _, ok, err := mgr.GetInvestor(addr); err != nil {
		t.Fatalf("read staged delete: %v", err)
	} else if ok {
		t.Fatalf("staged delete should hide the record")
	}
	mgr.Rollback()

	loaded, ok, err := mgr.GetInvestor(addr)
	if err != nil || !ok {
		t.Fatalf("rolled back investor missing: ok=%v err=%v", ok, err)
	}
	if loaded.Type != fund.InvestorTypeFiat {
		t.Fatalf("unexpected type after rollback: %v", loaded.Type)
	}
}

func TestCommitWithoutSessionFails(t *testing.T) {
	mgr := newTestManager(t)
	if err := mgr.Commit(); err == nil {
		t.Fatalf("expected commit without session to fail")
	}
}

func TestRoles(t *testing.T) {
	mgr := newTestManager(t)
	role := "ROLE_FUND_GOVERNANCE"
	member := []byte{0x01, 0x02}

	if mgr.HasRole(role, member) {
		t.Fatalf("unexpected role membership")
	}
	if err := mgr.SetRole(role, member); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := mgr.SetRole(role, member); err != nil {
		t.Fatalf("duplicate set role: %v", err)
	}
	if !mgr.HasRole(role, member) {
		t.Fatalf("expected role membership")
	}
	members, err := mgr.RoleMembers(role)
	if err != nil {
		t.Fatalf("role members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected single member, got %d", len(members))
	}
	if mgr.HasRole(role, nil) {
		t.Fatalf("empty address must not hold a role")
	}
}
