package fund

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"fundcore/core/events"
)

func testClass(adminBps, mgmtBps, performBps uint64) *ShareClass {
	return &ShareClass{
		ID:                 0,
		AdminFeeBps:        adminBps,
		MgmtFeeBps:         mgmtBps,
		PerformFeeBps:      performBps,
		ShareSupply:        big.NewInt(0),
		ShareNav:           big.NewInt(ParShareNav),
		AccruedMgmtFees:    big.NewInt(0),
		AccruedAdminFees:   big.NewInt(0),
		AccruedPerformFees: big.NewInt(0),
		LossCarryforward:   big.NewInt(0),
	}
}

func wantInt(t *testing.T, name string, got *big.Int, want string) {
	t.Helper()
	if got.String() != want {
		t.Fatalf("%s: got %s, want %s", name, got, want)
	}
}

// A thirty-day period with a gain: both time-based fees accrue, the full
// performance fee is charged and the per-share price truncates down.
func TestComputeMonthlyGain(t *testing.T) {
	class := testClass(50, 200, 2000)
	supply := big.NewInt(100_000)

	comp, err := Compute(class, big.NewInt(10_100_000), supply, 2_592_000)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "nav before", comp.NavBefore, "10000000")
	wantInt(t, "management fee", comp.MgmtFee, "16438")
	wantInt(t, "administration fee", comp.AdminFee, "4109")
	wantInt(t, "gain", comp.GainLoss, "79453")
	wantInt(t, "performance fee", comp.PerformFee, "15890")
	wantInt(t, "net gain", comp.NetGain, "63563")
	wantInt(t, "nav after", comp.NavAfter, "10063563")
	wantInt(t, "share nav", comp.ShareNav, "10063")
	wantInt(t, "loss carryforward", comp.LossCarryforward, "0")
	wantInt(t, "accrued management", comp.AccruedMgmtFees, "32328")
	wantInt(t, "accrued administration", comp.AccruedAdminFees, "4109")
	wantInt(t, "accrued performance", comp.AccruedPerformFees, "15890")
	if comp.ElapsedSeconds != 2_592_000 {
		t.Fatalf("unexpected elapsed: %d", comp.ElapsedSeconds)
	}

	// The input record is never written.
	wantInt(t, "input nav", class.ShareNav, "10000")
	wantInt(t, "input accruals", class.AccruedMgmtFees, "0")
}

// A losing period grows the carryforward by the full net loss while fees for
// the elapsed time still accrue.
func TestComputeMonthlyLoss(t *testing.T) {
	class := testClass(50, 200, 2000)
	class.LossCarryforward = big.NewInt(50_000)
	supply := big.NewInt(100_000)

	comp, err := Compute(class, big.NewInt(9_900_000), supply, 2_592_000)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "loss", comp.GainLoss, "-120547")
	wantInt(t, "performance fee", comp.PerformFee, "0")
	wantInt(t, "net loss", comp.NetGain, "-120547")
	wantInt(t, "nav after", comp.NavAfter, "9879453")
	wantInt(t, "share nav", comp.ShareNav, "9879")
	wantInt(t, "loss carryforward", comp.LossCarryforward, "170547")
	wantInt(t, "accrued management", comp.AccruedMgmtFees, "16438")
	wantInt(t, "accrued administration", comp.AccruedAdminFees, "4109")
	wantInt(t, "accrued performance", comp.AccruedPerformFees, "0")
}

// A loss while performance fees are accrued claws the fee back into the NAV
// before capital absorbs anything, and the reversal wipes the matching
// carryforward.
func TestComputePerformFeeClawback(t *testing.T) {
	class := testClass(50, 200, 2000)
	class.AccruedMgmtFees = big.NewInt(5000)
	class.AccruedPerformFees = big.NewInt(5000)
	supply := big.NewInt(100_000)

	comp, err := Compute(class, big.NewInt(10_003_000), supply, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "loss", comp.GainLoss, "-2000")
	wantInt(t, "fee payback", comp.PerformFeePayback, "2000")
	wantInt(t, "nav after", comp.NavAfter, "10000000")
	wantInt(t, "share nav", comp.ShareNav, "10000")
	wantInt(t, "loss carryforward", comp.LossCarryforward, "0")
	wantInt(t, "accrued management", comp.AccruedMgmtFees, "3000")
	wantInt(t, "accrued performance", comp.AccruedPerformFees, "3000")
}

// Gains repay the carryforward before any new performance fee is charged;
// only the surplus above the old high-water mark is feeable.
func TestComputeLossPayback(t *testing.T) {
	class := testClass(0, 0, 2000)
	class.LossCarryforward = big.NewInt(60_000)
	supply := big.NewInt(100_000)

	comp, err := Compute(class, big.NewInt(10_100_000), supply, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "gain", comp.GainLoss, "100000")
	wantInt(t, "loss payback", comp.LossPayback, "60000")
	wantInt(t, "performance fee", comp.PerformFee, "8000")
	wantInt(t, "net gain", comp.NetGain, "92000")
	wantInt(t, "nav after", comp.NavAfter, "10092000")
	wantInt(t, "share nav", comp.ShareNav, "10092")
	wantInt(t, "loss carryforward", comp.LossCarryforward, "0")
	wantInt(t, "accrued performance", comp.AccruedPerformFees, "8000")
}

// A gain smaller than the carryforward repays part of it and leaves no room
// for a performance fee.
func TestComputePartialLossPayback(t *testing.T) {
	class := testClass(0, 0, 2000)
	class.LossCarryforward = big.NewInt(60_000)
	supply := big.NewInt(100_000)

	comp, err := Compute(class, big.NewInt(10_040_000), supply, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "gain", comp.GainLoss, "40000")
	wantInt(t, "loss payback", comp.LossPayback, "40000")
	wantInt(t, "performance fee", comp.PerformFee, "0")
	wantInt(t, "net gain", comp.NetGain, "40000")
	wantInt(t, "share nav", comp.ShareNav, "10040")
	wantInt(t, "loss carryforward", comp.LossCarryforward, "20000")
}

// Revaluing at the implied value with no elapsed time changes nothing.
func TestComputeIdempotentAtImpliedValue(t *testing.T) {
	class := testClass(50, 200, 2000)
	class.AccruedMgmtFees = big.NewInt(3000)
	class.AccruedAdminFees = big.NewInt(2000)
	supply := big.NewInt(100_000)

	comp, err := Compute(class, big.NewInt(10_005_000), supply, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "gain", comp.GainLoss, "0")
	wantInt(t, "share nav", comp.ShareNav, "10000")
	wantInt(t, "nav after", comp.NavAfter, "10000000")
	wantInt(t, "accrued management", comp.AccruedMgmtFees, "3000")
	wantInt(t, "accrued administration", comp.AccruedAdminFees, "2000")
	wantInt(t, "loss carryforward", comp.LossCarryforward, "0")
}

// An awkward supply forces the final division to truncate.
func TestComputeTruncatesShareNav(t *testing.T) {
	class := testClass(50, 200, 2000)
	supply := big.NewInt(33_333)

	comp, err := Compute(class, big.NewInt(3_400_000), supply, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "nav before", comp.NavBefore, "3333300")
	wantInt(t, "gain", comp.GainLoss, "66700")
	wantInt(t, "performance fee", comp.PerformFee, "13340")
	wantInt(t, "nav after", comp.NavAfter, "3386660")
	wantInt(t, "share nav", comp.ShareNav, "10160")
}

// A zero-rate class still hands accrued performance fees back on a loss, but
// the carryforward reversal is skipped: no rate, no reversal.
func TestComputeClawbackWithZeroPerformRate(t *testing.T) {
	class := testClass(0, 0, 0)
	class.AccruedMgmtFees = big.NewInt(5000)
	class.AccruedPerformFees = big.NewInt(5000)
	supply := big.NewInt(100_000)

	comp, err := Compute(class, big.NewInt(9_998_000), supply, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantInt(t, "loss", comp.GainLoss, "-7000")
	wantInt(t, "fee payback", comp.PerformFeePayback, "5000")
	wantInt(t, "nav after", comp.NavAfter, "9998000")
	wantInt(t, "share nav", comp.ShareNav, "9998")
	wantInt(t, "loss carryforward", comp.LossCarryforward, "7000")
	wantInt(t, "accrued management", comp.AccruedMgmtFees, "0")
	wantInt(t, "accrued performance", comp.AccruedPerformFees, "0")
}

func TestComputeErrors(t *testing.T) {
	supply := big.NewInt(100_000)

	if _, err := Compute(nil, big.NewInt(1), supply, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil class: got %v, want ErrInvalidArgument", err)
	}
	if _, err := Compute(testClass(0, 0, 0), big.NewInt(1), big.NewInt(0), 0); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("zero supply: got %v, want ErrDivisionByZero", err)
	}
	if _, err := Compute(testClass(0, 0, 0), big.NewInt(1), big.NewInt(-1), 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative supply: got %v, want ErrInvalidArgument", err)
	}

	flat := testClass(0, 0, 0)
	flat.ShareNav = big.NewInt(0)
	if _, err := Compute(flat, big.NewInt(1), supply, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero prior NAV: got %v, want ErrInvalidArgument", err)
	}

	// Wiping out the whole fund value cannot produce a price.
	if _, err := Compute(testClass(0, 0, 0), big.NewInt(0), supply, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("depleted NAV: got %v, want ErrInvalidArgument", err)
	}

	// A value small enough to truncate the price to zero is refused too.
	wide := testClass(0, 0, 0)
	if _, err := Compute(wide, big.NewInt(9_999), big.NewInt(1_000_000), 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("truncated NAV: got %v, want ErrInvalidArgument", err)
	}
}

func TestFeeAccrualRounding(t *testing.T) {
	// One day of a 2% annual rate on a tiny supply truncates to zero.
	got := feeAccrual(big.NewInt(ParShareNav), 200, 86_400, big.NewInt(1))
	wantInt(t, "small accrual", got, "0")

	// The same day across the full supply is material.
	got = feeAccrual(big.NewInt(ParShareNav), 200, 86_400, big.NewInt(100_000))
	wantInt(t, "daily accrual", got, "547")

	if feeAccrual(big.NewInt(ParShareNav), 0, 86_400, big.NewInt(100_000)).Sign() != 0 {
		t.Fatal("zero rate must accrue nothing")
	}
	if feeAccrual(big.NewInt(ParShareNav), 200, 0, big.NewInt(100_000)).Sign() != 0 {
		t.Fatal("zero elapsed must accrue nothing")
	}
}

func TestGrossAssetValue(t *testing.T) {
	gav, err := GrossAssetValue(big.NewInt(9_000_000), big.NewInt(2_000_000), big.NewInt(55), big.NewInt(100))
	if err != nil {
		t.Fatalf("gross asset value: %v", err)
	}
	wantInt(t, "converted", gav, "10100000")

	// Conversion truncates toward zero.
	gav, err = GrossAssetValue(big.NewInt(0), big.NewInt(1000), big.NewInt(1), big.NewInt(3))
	if err != nil {
		t.Fatalf("gross asset value: %v", err)
	}
	wantInt(t, "truncated", gav, "333")

	// Nil inputs read as zero.
	gav, err = GrossAssetValue(nil, nil, nil, big.NewInt(1))
	if err != nil {
		t.Fatalf("gross asset value: %v", err)
	}
	wantInt(t, "nil inputs", gav, "0")

	if _, err := GrossAssetValue(big.NewInt(-1), big.NewInt(0), big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative portfolio: got %v, want ErrInvalidArgument", err)
	}
	if _, err := GrossAssetValue(big.NewInt(0), big.NewInt(-1), big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative liquid: got %v, want ErrInvalidArgument", err)
	}
	if _, err := GrossAssetValue(big.NewInt(0), big.NewInt(1), big.NewInt(-1), big.NewInt(1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative rate: got %v, want ErrInvalidArgument", err)
	}
	if _, err := GrossAssetValue(big.NewInt(0), big.NewInt(1), big.NewInt(1), big.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("zero denominator: got %v, want ErrDivisionByZero", err)
	}
	if _, err := GrossAssetValue(big.NewInt(0), big.NewInt(1), big.NewInt(1), big.NewInt(-1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative denominator: got %v, want ErrInvalidArgument", err)
	}
}

func TestRecalculatePersistsOutcome(t *testing.T) {
	ledger, st, emitter := newTestLedger(t)
	engine := NewEngine(ledger)

	classID, err := ledger.AddShareClass(testGov, 50, 200, 2000)
	if err != nil {
		t.Fatalf("add share class: %v", err)
	}
	if err := ledger.ModifyShareCount(testOrch, classID, big.NewInt(100_000), big.NewInt(100_000)); err != nil {
		t.Fatalf("set supply: %v", err)
	}
	ledger.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000+2_592_000, 0) })

	comp, err := engine.Recalculate(testOrch, classID, big.NewInt(10_100_000))
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if comp.ElapsedSeconds != 2_592_000 {
		t.Fatalf("unexpected elapsed: %d", comp.ElapsedSeconds)
	}
	wantInt(t, "share nav", comp.ShareNav, "10063")

	class := st.classes[classID]
	wantInt(t, "persisted nav", class.ShareNav, "10063")
	wantInt(t, "persisted management accrual", class.AccruedMgmtFees, "32328")
	wantInt(t, "persisted administration accrual", class.AccruedAdminFees, "4109")
	wantInt(t, "persisted performance accrual", class.AccruedPerformFees, "15890")
	wantInt(t, "persisted carryforward", class.LossCarryforward, "0")
	if class.LastCalc != 1_700_000_000+2_592_000 {
		t.Fatalf("unexpected calculation stamp: %d", class.LastCalc)
	}

	ev, ok := emitter.last(t).(events.FundNavRecalculated)
	if !ok {
		t.Fatalf("unexpected event %T", emitter.last(t))
	}
	if ev.ClassID != classID {
		t.Fatalf("unexpected event class: %d", ev.ClassID)
	}
	wantInt(t, "event prev nav", ev.PrevShareNav, "10000")
	wantInt(t, "event nav", ev.ShareNav, "10063")
}

func TestRecalculateClampsBackwardsClock(t *testing.T) {
	ledger, st, _ := newTestLedger(t)
	engine := NewEngine(ledger)

	classID, err := ledger.AddShareClass(testGov, 50, 200, 2000)
	if err != nil {
		t.Fatalf("add share class: %v", err)
	}
	if err := ledger.ModifyShareCount(testOrch, classID, big.NewInt(100_000), big.NewInt(100_000)); err != nil {
		t.Fatalf("set supply: %v", err)
	}
	ledger.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000-3600, 0) })

	comp, err := engine.Recalculate(testOrch, classID, big.NewInt(10_000_000))
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if comp.ElapsedSeconds != 0 {
		t.Fatalf("expected clamped elapsed, got %d", comp.ElapsedSeconds)
	}
	wantInt(t, "management fee", comp.MgmtFee, "0")
	// The stamp still moves to the (earlier) host clock.
	if st.classes[classID].LastCalc != 1_700_000_000-3600 {
		t.Fatalf("unexpected calculation stamp: %d", st.classes[classID].LastCalc)
	}
}

func TestRecalculateValidation(t *testing.T) {
	ledger, st, _ := newTestLedger(t)
	engine := NewEngine(ledger)

	classID, err := ledger.AddShareClass(testGov, 50, 200, 2000)
	if err != nil {
		t.Fatalf("add share class: %v", err)
	}

	if _, err := engine.Recalculate(testGov, classID, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("governance caller: got %v, want ErrUnauthorized", err)
	}
	if _, err := engine.Recalculate(testOrch, classID, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil valuation: got %v, want ErrInvalidArgument", err)
	}
	if _, err := engine.Recalculate(testOrch, classID, big.NewInt(-1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative valuation: got %v, want ErrInvalidArgument", err)
	}
	if _, err := engine.Recalculate(testOrch, 9, big.NewInt(1)); !errors.Is(err, ErrInvalidClass) {
		t.Fatalf("unknown class: got %v, want ErrInvalidClass", err)
	}

	// No supply, no price: the class record stays untouched.
	if _, err := engine.Recalculate(testOrch, classID, big.NewInt(10_000_000)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("zero supply: got %v, want ErrDivisionByZero", err)
	}
	wantInt(t, "unchanged nav", st.classes[classID].ShareNav, "10000")

	var nilEngine *Engine
	if _, err := nilEngine.Recalculate(testOrch, classID, big.NewInt(1)); err == nil {
		t.Fatal("expected nil engine to be rejected")
	}
}
