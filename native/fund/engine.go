package fund

import (
	"fmt"
	"math/big"

	"fundcore/core/events"
)

// Computation carries the full breakdown of one NAV revaluation: the fee
// accruals charged for the elapsed period, the performance-fee clawback and
// loss-carryforward flows, and the resulting per-share price and balances
// to persist.
type Computation struct {
	ClassID            uint64
	ElapsedSeconds     uint64
	GrossAssetValue    *big.Int
	NavBefore          *big.Int
	MgmtFee            *big.Int
	AdminFee           *big.Int
	GavNet             *big.Int
	GainLoss           *big.Int
	PerformFeePayback  *big.Int
	LossPayback        *big.Int
	PerformFee         *big.Int
	NetGain            *big.Int
	NavAfter           *big.Int
	ShareNav           *big.Int
	LossCarryforward   *big.Int
	AccruedMgmtFees    *big.Int
	AccruedAdminFees   *big.Int
	AccruedPerformFees *big.Int
}

// feeAccrual prorates an annual basis-point rate over the elapsed period and
// the full share supply. The product is assembled before the single
// truncating division so no precision is lost along the way.
func feeAccrual(shareNav *big.Int, rateBps uint64, elapsedSeconds uint64, totalShares *big.Int) *big.Int {
	if rateBps == 0 || elapsedSeconds == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(shareNav, new(big.Int).SetUint64(rateBps))
	num.Mul(num, new(big.Int).SetUint64(elapsedSeconds))
	num.Mul(num, totalShares)
	den := new(big.Int).Mul(basisPoints, secondsPerYear)
	den.Mul(den, shareScale)
	return num.Quo(num, den)
}

// Compute derives the new per-share NAV and accrual balances for one share
// class from a fresh gross asset valuation and the seconds elapsed since the
// class's previous calculation. It is a pure function: the class record is
// read, never written, and every division truncates toward zero so fees and
// gains round in the fund's favour on ties.
//
// The caller is responsible for rejecting negative valuations upstream;
// Compute only refuses states it cannot price (zero supply, non-positive
// prior NAV, depletion below zero).
func Compute(class *ShareClass, gav, totalShareSupply *big.Int, elapsedSeconds uint64) (*Computation, error) {
	if class == nil {
		return nil, fmt.Errorf("%w: nil share class", ErrInvalidArgument)
	}
	supply := copyBigInt(totalShareSupply)
	if supply.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	if supply.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative share supply", ErrInvalidArgument)
	}
	prevNav := copyBigInt(class.ShareNav)
	if prevNav.Sign() <= 0 {
		return nil, fmt.Errorf("%w: share NAV must be positive", ErrInvalidArgument)
	}
	grossValue := copyBigInt(gav)
	accMgmt := copyBigInt(class.AccruedMgmtFees)
	accAdmin := copyBigInt(class.AccruedAdminFees)
	accPerform := copyBigInt(class.AccruedPerformFees)
	carry := copyBigInt(class.LossCarryforward)

	// The fund value implied by the previous price, before this period's
	// accrual.
	navBefore := new(big.Int).Mul(supply, prevNav)
	navBefore.Quo(navBefore, shareScale)

	mgmtFee := feeAccrual(prevNav, class.MgmtFeeBps, elapsedSeconds, supply)
	adminFee := feeAccrual(prevNav, class.AdminFeeBps, elapsedSeconds, supply)

	// Strip fees that were already accrued out of the valuation so they are
	// not double-counted as gains.
	gavNet := new(big.Int).Sub(grossValue, accMgmt)
	gavNet.Sub(gavNet, accAdmin)

	gainLoss := new(big.Int).Sub(gavNet, navBefore)
	gainLoss.Sub(gainLoss, mgmtFee)
	gainLoss.Sub(gainLoss, adminFee)

	// High-water-mark clawback: performance fees already accrued are handed
	// back to investors, up to the period's loss, before any new loss is
	// charged against capital.
	performFeePayback := big.NewInt(0)
	if accPerform.Sign() > 0 && gainLoss.Sign() < 0 {
		performFeePayback = minBigInt(accPerform, new(big.Int).Neg(gainLoss))
	}

	// Gains repay prior losses before a new performance fee is charged.
	lossPayback := big.NewInt(0)
	if gainLoss.Sign() > 0 {
		lossPayback = minBigInt(gainLoss, carry)
	}

	gainAfterPayback := new(big.Int).Sub(gainLoss, lossPayback)

	performFee := big.NewInt(0)
	if gainAfterPayback.Sign() > 0 {
		performFee = new(big.Int).Mul(gainAfterPayback, new(big.Int).SetUint64(class.PerformFeeBps))
		performFee.Quo(performFee, basisPoints)
	}

	// The loss-payback portion is capital movement, not fee, so it rejoins
	// the realised result here.
	netGain := new(big.Int).Add(gainAfterPayback, lossPayback)
	netGain.Sub(netGain, performFee)

	navAfter := new(big.Int).Add(navBefore, netGain)
	navAfter.Add(navAfter, performFeePayback)
	if navAfter.Sign() <= 0 {
		return nil, fmt.Errorf("%w: NAV depleted", ErrInvalidArgument)
	}

	if netGain.Sign() < 0 {
		carry.Add(carry, new(big.Int).Neg(netGain))
	}

	shareNav := new(big.Int).Mul(navAfter, shareScale)
	shareNav.Quo(shareNav, supply)
	if shareNav.Sign() <= 0 {
		return nil, fmt.Errorf("%w: share NAV truncated to zero", ErrInvalidArgument)
	}

	// Repaid losses leave the carryforward, along with the gross gain the
	// clawed-back fee had been charged on, reversed at the original rate.
	// A zero-rate class skips the reversal: it can never have accrued the
	// fee in the first place.
	carry.Sub(carry, lossPayback)
	if class.PerformFeeBps > 0 && performFeePayback.Sign() > 0 {
		reversal := new(big.Int).Mul(performFeePayback, basisPoints)
		reversal.Quo(reversal, new(big.Int).SetUint64(class.PerformFeeBps))
		carry.Sub(carry, reversal)
	}
	if carry.Sign() < 0 {
		carry.SetInt64(0)
	}

	accMgmt.Add(accMgmt, mgmtFee)
	accMgmt.Add(accMgmt, performFee)
	accMgmt.Sub(accMgmt, performFeePayback)

	accAdmin.Add(accAdmin, adminFee)

	accPerform.Add(accPerform, performFee)
	accPerform.Sub(accPerform, performFeePayback)

	return &Computation{
		ClassID:            class.ID,
		ElapsedSeconds:     elapsedSeconds,
		GrossAssetValue:    grossValue,
		NavBefore:          navBefore,
		MgmtFee:            mgmtFee,
		AdminFee:           adminFee,
		GavNet:             gavNet,
		GainLoss:           gainLoss,
		PerformFeePayback:  performFeePayback,
		LossPayback:        lossPayback,
		PerformFee:         performFee,
		NetGain:            netGain,
		NavAfter:           navAfter,
		ShareNav:           shareNav,
		LossCarryforward:   carry,
		AccruedMgmtFees:    accMgmt,
		AccruedAdminFees:   accAdmin,
		AccruedPerformFees: accPerform,
	}, nil
}

// GrossAssetValue combines an external portfolio valuation with the fund's
// liquid balance converted at the supplied exchange rate, truncating toward
// zero like every other division in the engine.
func GrossAssetValue(portfolioValue, liquidBalance, rateNum, rateDen *big.Int) (*big.Int, error) {
	portfolio := copyBigInt(portfolioValue)
	liquid := copyBigInt(liquidBalance)
	num := copyBigInt(rateNum)
	den := copyBigInt(rateDen)
	if portfolio.Sign() < 0 || liquid.Sign() < 0 || num.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative valuation input", ErrInvalidArgument)
	}
	if den.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	if den.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative exchange-rate denominator", ErrInvalidArgument)
	}
	converted := new(big.Int).Mul(liquid, num)
	converted.Quo(converted, den)
	return portfolio.Add(portfolio, converted), nil
}

// Engine wires the pure NAV computation to the ledger so hosts can revalue
// a class and persist the outcome in one atomic step.
type Engine struct {
	ledger *Ledger
}

// NewEngine constructs an engine operating through the provided ledger.
func NewEngine(ledger *Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// Recalculate revalues one share class against a fresh gross asset value.
// The elapsed period is derived from the class's last calculation stamp
// (clamped at zero if the host clock ran backwards), the computation runs
// over the fund-wide share supply, and the resulting price, stamp and
// accrual balances are persisted together. Restricted to the orchestrator.
//
// A recalculation for one class must not be interleaved with supply or NAV
// writes to the same class; the host serialises mutating calls.
func (e *Engine) Recalculate(caller [20]byte, classID uint64, gav *big.Int) (comp *Computation, err error) {
	if e == nil || e.ledger == nil {
		return nil, errNilEngine
	}
	l := e.ledger
	defer func() { l.telemetry.ObserveOperation("nav_recalculate", outcomeLabel(err)) }()
	if l.st == nil {
		return nil, errNilState
	}
	if err := l.requireOrchestrator(caller); err != nil {
		return nil, err
	}
	if gav == nil || gav.Sign() < 0 {
		return nil, fmt.Errorf("%w: gross asset value must be non-negative", ErrInvalidArgument)
	}
	class, err := l.loadClass(classID)
	if err != nil {
		return nil, err
	}
	total, err := l.st.GetTotalShares()
	if err != nil {
		return nil, err
	}
	now := l.now()
	elapsed := now.Unix() - int64(class.LastCalc)
	if elapsed < 0 {
		elapsed = 0
	}
	comp, err = Compute(class, gav, total, uint64(elapsed))
	if err != nil {
		return nil, err
	}
	prevNav := class.ShareNav
	class.ShareNav = new(big.Int).Set(comp.ShareNav)
	class.LastCalc = uint64(now.Unix())
	class.LossCarryforward = new(big.Int).Set(comp.LossCarryforward)
	class.AccruedMgmtFees = new(big.Int).Set(comp.AccruedMgmtFees)
	class.AccruedAdminFees = new(big.Int).Set(comp.AccruedAdminFees)
	class.AccruedPerformFees = new(big.Int).Set(comp.AccruedPerformFees)
	if err := l.withSession(func() error {
		return l.st.PutShareClass(class)
	}); err != nil {
		return nil, err
	}
	l.emit(events.FundNavRecalculated{
		AuditID:           auditID(),
		ClassID:           classID,
		GrossAssetValue:   comp.GrossAssetValue,
		ElapsedSeconds:    comp.ElapsedSeconds,
		NavBefore:         comp.NavBefore,
		MgmtFee:           comp.MgmtFee,
		AdminFee:          comp.AdminFee,
		GainLoss:          comp.GainLoss,
		PerformFeePayback: comp.PerformFeePayback,
		LossPayback:       comp.LossPayback,
		PerformFee:        comp.PerformFee,
		NetGain:           comp.NetGain,
		NavAfter:          comp.NavAfter,
		ShareNav:          comp.ShareNav,
		PrevShareNav:      prevNav,
		LossCarryforward:  comp.LossCarryforward,
		Timestamp:         now.Unix(),
	})
	l.telemetry.ObserveNavRecalculation(classID)
	l.telemetry.SetShareNav(classID, gaugeValue(comp.ShareNav))
	l.telemetry.SetLossCarryforward(classID, gaugeValue(comp.LossCarryforward))
	return comp, nil
}
