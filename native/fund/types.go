package fund

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// ShareScale is the fixed-point denominator shared by share quantities
	// and per-share prices: two implied decimal digits, so 100001 reads as
	// 1000.01 shares.
	ShareScale = 100
	// ParShareNav is the initial per-share price assigned to a freshly
	// created share class: 100.00 in the scale-100 representation.
	ParShareNav = 10_000
	// SecondsPerYear converts annual basis-point rates into per-second
	// accruals.
	SecondsPerYear = 31_536_000
	// MaxFeeBps caps each fee schedule rate at 100%.
	MaxFeeBps = 10_000
)

var (
	basisPoints    = big.NewInt(10_000)
	shareScale     = big.NewInt(ShareScale)
	secondsPerYear = big.NewInt(SecondsPerYear)
)

// InvestorType denotes the currency an investor subscribes in. The zero
// value marks an identity that has never been onboarded (or has been fully
// removed).
type InvestorType uint8

const (
	// InvestorTypeNone is the canonical "not onboarded" marker.
	InvestorTypeNone InvestorType = iota
	// InvestorTypeCoin marks investors subscribing in the fund's native
	// coin.
	InvestorTypeCoin
	// InvestorTypeFiat marks investors subscribing in fiat-denominated
	// stable units.
	InvestorTypeFiat
)

// Valid reports whether the type is a recognised onboarded kind.
func (t InvestorType) Valid() bool {
	return t == InvestorTypeCoin || t == InvestorTypeFiat
}

func (t InvestorType) String() string {
	switch t {
	case InvestorTypeNone:
		return "none"
	case InvestorTypeCoin:
		return "coin"
	case InvestorTypeFiat:
		return "fiat"
	default:
		return fmt.Sprintf("investortype(%d)", uint8(t))
	}
}

// ParseInvestorType maps the textual form used by genesis documents and the
// CLI back onto the enum.
func ParseInvestorType(s string) (InvestorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return InvestorTypeNone, nil
	case "coin":
		return InvestorTypeCoin, nil
	case "fiat":
		return InvestorTypeFiat, nil
	default:
		return InvestorTypeNone, fmt.Errorf("%w: unknown investor type %q", ErrInvalidArgument, s)
	}
}

// InvestorRecord is the ledger entry for a single investor identity.
type InvestorRecord struct {
	// Type marks the subscription currency; InvestorTypeNone means the
	// identity is not onboarded and every balance below must be zero.
	Type InvestorType
	// PendingSubscription holds currency units awaiting conversion to
	// shares.
	PendingSubscription *big.Int
	// SharesOwned holds the investor's shares at scale 100.
	SharesOwned *big.Int
	// ShareClassID references the class the shares belong to.
	ShareClassID uint64
	// PendingRedemption holds shares earmarked for redemption but not yet
	// settled, at scale 100.
	PendingRedemption *big.Int
	// PendingWithdrawal holds currency units cleared for withdrawal.
	PendingWithdrawal *big.Int
}

// EmptyInvestorRecord returns the canonical empty form: type None, every
// balance zero.
func EmptyInvestorRecord() *InvestorRecord {
	return &InvestorRecord{
		Type:                InvestorTypeNone,
		PendingSubscription: big.NewInt(0),
		SharesOwned:         big.NewInt(0),
		PendingRedemption:   big.NewInt(0),
		PendingWithdrawal:   big.NewInt(0),
	}
}

// Clone produces a deep copy so callers cannot alias ledger-held balances.
func (r *InvestorRecord) Clone() *InvestorRecord {
	if r == nil {
		return EmptyInvestorRecord()
	}
	return &InvestorRecord{
		Type:                r.Type,
		PendingSubscription: copyBigInt(r.PendingSubscription),
		SharesOwned:         copyBigInt(r.SharesOwned),
		ShareClassID:        r.ShareClassID,
		PendingRedemption:   copyBigInt(r.PendingRedemption),
		PendingWithdrawal:   copyBigInt(r.PendingWithdrawal),
	}
}

// Normalize replaces nil balances with zero values and returns the receiver.
func (r *InvestorRecord) Normalize() *InvestorRecord {
	if r == nil {
		return nil
	}
	r.PendingSubscription = copyBigInt(r.PendingSubscription)
	r.SharesOwned = copyBigInt(r.SharesOwned)
	r.PendingRedemption = copyBigInt(r.PendingRedemption)
	r.PendingWithdrawal = copyBigInt(r.PendingWithdrawal)
	return r
}

// Drained reports whether all four balance fields are zero, the precondition
// for removing the investor from the active-address index.
func (r *InvestorRecord) Drained() bool {
	if r == nil {
		return true
	}
	return isZero(r.PendingSubscription) &&
		isZero(r.SharesOwned) &&
		isZero(r.PendingRedemption) &&
		isZero(r.PendingWithdrawal)
}

func (r *InvestorRecord) validateBalances() error {
	for _, v := range []*big.Int{r.PendingSubscription, r.SharesOwned, r.PendingRedemption, r.PendingWithdrawal} {
		if v != nil && v.Sign() < 0 {
			return fmt.Errorf("%w: negative balance", ErrInvalidArgument)
		}
	}
	return nil
}

// ShareClass is the per-class accounting record: the fee schedule, the share
// supply, the NAV track and the accrual balances the NAV computation rolls
// forward.
type ShareClass struct {
	// ID is the dense index assigned at creation.
	ID uint64
	// AdminFeeBps is the annual administration fee in basis points.
	AdminFeeBps uint64
	// MgmtFeeBps is the annual management fee in basis points.
	MgmtFeeBps uint64
	// PerformFeeBps is the performance fee charged on net new gains, in
	// basis points.
	PerformFeeBps uint64
	// ShareSupply is the aggregate shares outstanding in this class at
	// scale 100.
	ShareSupply *big.Int
	// ShareNav is the per-share price at scale 100, strictly positive once
	// initialised.
	ShareNav *big.Int
	// LastCalc is the unix timestamp of the most recent NAV computation.
	LastCalc uint64
	// AccruedMgmtFees holds management fees accrued but not yet settled,
	// including the performance component per the accrual netting rules.
	AccruedMgmtFees *big.Int
	// AccruedAdminFees holds administration fees accrued but not yet
	// settled.
	AccruedAdminFees *big.Int
	// AccruedPerformFees holds the clawback-eligible performance fee
	// balance.
	AccruedPerformFees *big.Int
	// LossCarryforward holds losses that future gains must repay before
	// new performance fees accrue.
	LossCarryforward *big.Int
}

// Clone produces a deep copy to keep ledger-held balances unaliased.
func (c *ShareClass) Clone() *ShareClass {
	if c == nil {
		return nil
	}
	return &ShareClass{
		ID:                 c.ID,
		AdminFeeBps:        c.AdminFeeBps,
		MgmtFeeBps:         c.MgmtFeeBps,
		PerformFeeBps:      c.PerformFeeBps,
		ShareSupply:        copyBigInt(c.ShareSupply),
		ShareNav:           copyBigInt(c.ShareNav),
		LastCalc:           c.LastCalc,
		AccruedMgmtFees:    copyBigInt(c.AccruedMgmtFees),
		AccruedAdminFees:   copyBigInt(c.AccruedAdminFees),
		AccruedPerformFees: copyBigInt(c.AccruedPerformFees),
		LossCarryforward:   copyBigInt(c.LossCarryforward),
	}
}

// Normalize replaces nil balances with zero values and returns the receiver.
func (c *ShareClass) Normalize() *ShareClass {
	if c == nil {
		return nil
	}
	c.ShareSupply = copyBigInt(c.ShareSupply)
	c.ShareNav = copyBigInt(c.ShareNav)
	c.AccruedMgmtFees = copyBigInt(c.AccruedMgmtFees)
	c.AccruedAdminFees = copyBigInt(c.AccruedAdminFees)
	c.AccruedPerformFees = copyBigInt(c.AccruedPerformFees)
	c.LossCarryforward = copyBigInt(c.LossCarryforward)
	return c
}

func validateFeeBps(adminBps, mgmtBps, performBps uint64) error {
	if adminBps > MaxFeeBps || mgmtBps > MaxFeeBps || performBps > MaxFeeBps {
		return fmt.Errorf("%w: fee rate exceeds %d bps", ErrInvalidArgument, MaxFeeBps)
	}
	return nil
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

func minBigInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
