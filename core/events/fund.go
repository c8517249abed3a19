package events

import (
	"math/big"
	"strconv"

	"fundcore/core/types"
	"fundcore/crypto"
)

const (
	// TypeFundInvestorAdded is emitted when an investor is onboarded onto
	// the active-address index.
	TypeFundInvestorAdded = "fund.investor.added"
	// TypeFundInvestorRemoved is emitted when a fully drained investor
	// record is removed from the active-address index.
	TypeFundInvestorRemoved = "fund.investor.removed"
	// TypeFundInvestorModified is emitted when the orchestrator overwrites
	// an investor record during settlement.
	TypeFundInvestorModified = "fund.investor.modified"
	// TypeFundShareClassCreated is emitted when governance registers a new
	// share class.
	TypeFundShareClassCreated = "fund.class.created"
	// TypeFundShareClassTermsUpdated is emitted when governance changes the
	// fee schedule of a class with no shares outstanding.
	TypeFundShareClassTermsUpdated = "fund.class.terms_updated"
	// TypeFundShareCountUpdated is emitted when the orchestrator records a
	// new class supply together with the fund-wide total.
	TypeFundShareCountUpdated = "fund.class.shares_updated"
	// TypeFundNavUpdated is emitted when the orchestrator writes a freshly
	// computed share price back to a class.
	TypeFundNavUpdated = "fund.class.nav_updated"
	// TypeFundFeeStateUpdated is emitted when the orchestrator persists the
	// accrual and loss-carryforward balances of a class.
	TypeFundFeeStateUpdated = "fund.class.fees_updated"
	// TypeFundNavRecalculated is emitted after a full NAV computation,
	// carrying every intermediate figure for the audit trail.
	TypeFundNavRecalculated = "fund.nav.recalculated"
	// TypeFundOrchestratorRotated is emitted when governance reassigns the
	// orchestrator identity.
	TypeFundOrchestratorRotated = "fund.orchestrator.rotated"
)

// FundInvestorAdded captures a successful onboarding.
type FundInvestorAdded struct {
	AuditID      string
	Investor     [20]byte
	InvestorType string
	Timestamp    int64
}

// EventType implements the Event interface.
func (FundInvestorAdded) EventType() string { return TypeFundInvestorAdded }

// Event converts the onboarding into its attribute form.
func (e FundInvestorAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeFundInvestorAdded,
		Attributes: map[string]string{
			"auditId":   e.AuditID,
			"investor":  crypto.NewAddress(e.Investor).String(),
			"type":      e.InvestorType,
			"timestamp": intToString(e.Timestamp),
		},
	}
}

// FundInvestorRemoved captures the removal of a drained investor record.
type FundInvestorRemoved struct {
	AuditID   string
	Investor  [20]byte
	Timestamp int64
}

// EventType implements the Event interface.
func (FundInvestorRemoved) EventType() string { return TypeFundInvestorRemoved }

// Event converts the removal into its attribute form.
func (e FundInvestorRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeFundInvestorRemoved,
		Attributes: map[string]string{
			"auditId":   e.AuditID,
			"investor":  crypto.NewAddress(e.Investor).String(),
			"timestamp": intToString(e.Timestamp),
		},
	}
}

// FundInvestorModified captures a bulk settlement update, including the
// state the record held before the overwrite.
type FundInvestorModified struct {
	AuditID                 string
	Investor                [20]byte
	InvestorType            string
	PrevInvestorType        string
	PendingSubscription     *big.Int
	PrevPendingSubscription *big.Int
	SharesOwned             *big.Int
	PrevSharesOwned         *big.Int
	ShareClassID            uint64
	PrevShareClassID        uint64
	PendingRedemption       *big.Int
	PrevPendingRedemption   *big.Int
	PendingWithdrawal       *big.Int
	PrevPendingWithdrawal   *big.Int
	Note                    string
	Timestamp               int64
}

// EventType implements the Event interface.
func (FundInvestorModified) EventType() string { return TypeFundInvestorModified }

// Event converts the modification into its attribute form.
func (e FundInvestorModified) Event() *types.Event {
	return &types.Event{
		Type: TypeFundInvestorModified,
		Attributes: map[string]string{
			"auditId":                 e.AuditID,
			"investor":                crypto.NewAddress(e.Investor).String(),
			"type":                    e.InvestorType,
			"prevType":                e.PrevInvestorType,
			"pendingSubscription":     formatAmount(e.PendingSubscription),
			"prevPendingSubscription": formatAmount(e.PrevPendingSubscription),
			"sharesOwned":             formatAmount(e.SharesOwned),
			"prevSharesOwned":         formatAmount(e.PrevSharesOwned),
			"shareClass":              uintToString(e.ShareClassID),
			"prevShareClass":          uintToString(e.PrevShareClassID),
			"pendingRedemption":       formatAmount(e.PendingRedemption),
			"prevPendingRedemption":   formatAmount(e.PrevPendingRedemption),
			"pendingWithdrawal":       formatAmount(e.PendingWithdrawal),
			"prevPendingWithdrawal":   formatAmount(e.PrevPendingWithdrawal),
			"note":                    e.Note,
			"timestamp":               intToString(e.Timestamp),
		},
	}
}

// FundShareClassCreated captures a newly registered share class.
type FundShareClassCreated struct {
	AuditID       string
	ClassID       uint64
	AdminFeeBps   uint64
	MgmtFeeBps    uint64
	PerformFeeBps uint64
	ShareNav      *big.Int
	Timestamp     int64
}

// EventType implements the Event interface.
func (FundShareClassCreated) EventType() string { return TypeFundShareClassCreated }

// Event converts the creation into its attribute form.
func (e FundShareClassCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeFundShareClassCreated,
		Attributes: map[string]string{
			"auditId":       e.AuditID,
			"class":         uintToString(e.ClassID),
			"adminFeeBps":   uintToString(e.AdminFeeBps),
			"mgmtFeeBps":    uintToString(e.MgmtFeeBps),
			"performFeeBps": uintToString(e.PerformFeeBps),
			"shareNav":      formatAmount(e.ShareNav),
			"timestamp":     intToString(e.Timestamp),
		},
	}
}

// FundShareClassTermsUpdated captures a fee-schedule change on a class with
// no shares outstanding.
type FundShareClassTermsUpdated struct {
	AuditID           string
	ClassID           uint64
	AdminFeeBps       uint64
	PrevAdminFeeBps   uint64
	MgmtFeeBps        uint64
	PrevMgmtFeeBps    uint64
	PerformFeeBps     uint64
	PrevPerformFeeBps uint64
	Timestamp         int64
}

// EventType implements the Event interface.
func (FundShareClassTermsUpdated) EventType() string { return TypeFundShareClassTermsUpdated }

// Event converts the terms change into its attribute form.
func (e FundShareClassTermsUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFundShareClassTermsUpdated,
		Attributes: map[string]string{
			"auditId":           e.AuditID,
			"class":             uintToString(e.ClassID),
			"adminFeeBps":       uintToString(e.AdminFeeBps),
			"prevAdminFeeBps":   uintToString(e.PrevAdminFeeBps),
			"mgmtFeeBps":        uintToString(e.MgmtFeeBps),
			"prevMgmtFeeBps":    uintToString(e.PrevMgmtFeeBps),
			"performFeeBps":     uintToString(e.PerformFeeBps),
			"prevPerformFeeBps": uintToString(e.PrevPerformFeeBps),
			"timestamp":         intToString(e.Timestamp),
		},
	}
}

// FundShareCountUpdated captures a supply change recorded by the
// orchestrator.
type FundShareCountUpdated struct {
	AuditID         string
	ClassID         uint64
	ClassSupply     *big.Int
	PrevClassSupply *big.Int
	TotalSupply     *big.Int
	PrevTotalSupply *big.Int
	Timestamp       int64
}

// EventType implements the Event interface.
func (FundShareCountUpdated) EventType() string { return TypeFundShareCountUpdated }

// Event converts the supply change into its attribute form.
func (e FundShareCountUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFundShareCountUpdated,
		Attributes: map[string]string{
			"auditId":         e.AuditID,
			"class":           uintToString(e.ClassID),
			"classSupply":     formatAmount(e.ClassSupply),
			"prevClassSupply": formatAmount(e.PrevClassSupply),
			"totalSupply":     formatAmount(e.TotalSupply),
			"prevTotalSupply": formatAmount(e.PrevTotalSupply),
			"timestamp":       intToString(e.Timestamp),
		},
	}
}

// FundNavUpdated captures a direct share-price write.
type FundNavUpdated struct {
	AuditID      string
	ClassID      uint64
	ShareNav     *big.Int
	PrevShareNav *big.Int
	Timestamp    int64
}

// EventType implements the Event interface.
func (FundNavUpdated) EventType() string { return TypeFundNavUpdated }

// Event converts the price write into its attribute form.
func (e FundNavUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFundNavUpdated,
		Attributes: map[string]string{
			"auditId":      e.AuditID,
			"class":        uintToString(e.ClassID),
			"shareNav":     formatAmount(e.ShareNav),
			"prevShareNav": formatAmount(e.PrevShareNav),
			"timestamp":    intToString(e.Timestamp),
		},
	}
}

// FundFeeStateUpdated captures a persisted accrual snapshot.
type FundFeeStateUpdated struct {
	AuditID                string
	ClassID                uint64
	LossCarryforward       *big.Int
	PrevLossCarryforward   *big.Int
	AccruedMgmtFees        *big.Int
	PrevAccruedMgmtFees    *big.Int
	AccruedAdminFees       *big.Int
	PrevAccruedAdminFees   *big.Int
	AccruedPerformFees     *big.Int
	PrevAccruedPerformFees *big.Int
	Timestamp              int64
}

// EventType implements the Event interface.
func (FundFeeStateUpdated) EventType() string { return TypeFundFeeStateUpdated }

// Event converts the accrual snapshot into its attribute form.
func (e FundFeeStateUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFundFeeStateUpdated,
		Attributes: map[string]string{
			"auditId":                e.AuditID,
			"class":                  uintToString(e.ClassID),
			"lossCarryforward":       formatAmount(e.LossCarryforward),
			"prevLossCarryforward":   formatAmount(e.PrevLossCarryforward),
			"accruedMgmtFees":        formatAmount(e.AccruedMgmtFees),
			"prevAccruedMgmtFees":    formatAmount(e.PrevAccruedMgmtFees),
			"accruedAdminFees":       formatAmount(e.AccruedAdminFees),
			"prevAccruedAdminFees":   formatAmount(e.PrevAccruedAdminFees),
			"accruedPerformFees":     formatAmount(e.AccruedPerformFees),
			"prevAccruedPerformFees": formatAmount(e.PrevAccruedPerformFees),
			"timestamp":              intToString(e.Timestamp),
		},
	}
}

// FundNavRecalculated carries the full breakdown of one NAV computation so
// auditors can replay the accrual arithmetic.
type FundNavRecalculated struct {
	AuditID           string
	ClassID           uint64
	GrossAssetValue   *big.Int
	ElapsedSeconds    uint64
	NavBefore         *big.Int
	MgmtFee           *big.Int
	AdminFee          *big.Int
	GainLoss          *big.Int
	PerformFeePayback *big.Int
	LossPayback       *big.Int
	PerformFee        *big.Int
	NetGain           *big.Int
	NavAfter          *big.Int
	ShareNav          *big.Int
	PrevShareNav      *big.Int
	LossCarryforward  *big.Int
	Timestamp         int64
}

// EventType implements the Event interface.
func (FundNavRecalculated) EventType() string { return TypeFundNavRecalculated }

// Event converts the computation breakdown into its attribute form.
func (e FundNavRecalculated) Event() *types.Event {
	return &types.Event{
		Type: TypeFundNavRecalculated,
		Attributes: map[string]string{
			"auditId":           e.AuditID,
			"class":             uintToString(e.ClassID),
			"grossAssetValue":   formatAmount(e.GrossAssetValue),
			"elapsedSeconds":    uintToString(e.ElapsedSeconds),
			"navBefore":         formatAmount(e.NavBefore),
			"mgmtFee":           formatAmount(e.MgmtFee),
			"adminFee":          formatAmount(e.AdminFee),
			"gainLoss":          formatAmount(e.GainLoss),
			"performFeePayback": formatAmount(e.PerformFeePayback),
			"lossPayback":       formatAmount(e.LossPayback),
			"performFee":        formatAmount(e.PerformFee),
			"netGain":           formatAmount(e.NetGain),
			"navAfter":          formatAmount(e.NavAfter),
			"shareNav":          formatAmount(e.ShareNav),
			"prevShareNav":      formatAmount(e.PrevShareNav),
			"lossCarryforward":  formatAmount(e.LossCarryforward),
			"timestamp":         intToString(e.Timestamp),
		},
	}
}

// FundOrchestratorRotated captures a governance reassignment of the
// orchestrator identity.
type FundOrchestratorRotated struct {
	AuditID   string
	Previous  [20]byte
	Next      [20]byte
	Timestamp int64
}

// EventType implements the Event interface.
func (FundOrchestratorRotated) EventType() string { return TypeFundOrchestratorRotated }

// Event converts the rotation into its attribute form.
func (e FundOrchestratorRotated) Event() *types.Event {
	return &types.Event{
		Type: TypeFundOrchestratorRotated,
		Attributes: map[string]string{
			"auditId":   e.AuditID,
			"previous":  crypto.NewAddress(e.Previous).String(),
			"next":      crypto.NewAddress(e.Next).String(),
			"timestamp": intToString(e.Timestamp),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
