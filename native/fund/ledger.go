package fund

import (
	"fmt"
	"math/big"
	"time"

	"fundcore/core/events"
	"fundcore/observability/metrics"
)

const (
	// RoleGovernance marks the principals allowed to administer share
	// classes and rotate the orchestrator.
	RoleGovernance = "ROLE_FUND_GOVERNANCE"

	moduleName = "fund"
)

type ledgerState interface {
	GetInvestor(addr [20]byte) (*InvestorRecord, bool, error)
	PutInvestor(addr [20]byte, record *InvestorRecord) error
	DeleteInvestor(addr [20]byte) error
	GetInvestorIndex() ([][20]byte, error)
	PutInvestorIndex(addrs [][20]byte) error
	AppendInvestorIndex(addr [20]byte) error
	GetShareClass(id uint64) (*ShareClass, bool, error)
	PutShareClass(class *ShareClass) error
	GetClassCount() (uint64, error)
	PutClassCount(count uint64) error
	GetTotalShares() (*big.Int, error)
	PutTotalShares(total *big.Int) error
	GetOrchestrator() ([20]byte, bool, error)
	PutOrchestrator(addr [20]byte) error
	HasRole(role string, addr []byte) bool
}

// sessionState is implemented by stores that can buffer an operation's writes
// and flush them atomically. When the backing state supports it, every
// mutating ledger operation becomes all-or-nothing.
type sessionState interface {
	Begin()
	Commit() error
	Rollback()
}

// Ledger holds the canonical record of investors and share classes and
// enforces who may read and write what. Every mutating operation takes the
// caller identity explicitly and checks it before touching state.
type Ledger struct {
	st        ledgerState
	emitter   events.Emitter
	nowFunc   func() time.Time
	telemetry *metrics.FundMetrics
}

// NewLedger creates a ledger backed by the provided state manager.
func NewLedger(st ledgerState) *Ledger {
	return &Ledger{
		st:        st,
		emitter:   events.NoopEmitter{},
		nowFunc:   func() time.Time { return time.Now().UTC() },
		telemetry: metrics.Fund(),
	}
}

// SetEmitter configures the event emitter used to broadcast ledger changes.
// Passing nil resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if l == nil {
		return
	}
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the clock used for creation and calculation stamps.
// Passing nil restores the UTC wall clock.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	if l == nil {
		return
	}
	if now == nil {
		l.nowFunc = func() time.Time { return time.Now().UTC() }
		return
	}
	l.nowFunc = now
}

func (l *Ledger) now() time.Time {
	if l.nowFunc != nil {
		return l.nowFunc()
	}
	return time.Now().UTC()
}

func (l *Ledger) emit(ev events.Event) {
	if l.emitter == nil {
		return
	}
	l.emitter.Emit(ev)
}

func (l *Ledger) withSession(fn func() error) error {
	if s, ok := l.st.(sessionState); ok {
		s.Begin()
		if err := fn(); err != nil {
			s.Rollback()
			return err
		}
		return s.Commit()
	}
	return fn()
}

func (l *Ledger) isOrchestrator(caller [20]byte) (bool, error) {
	if caller == ([20]byte{}) {
		return false, nil
	}
	current, ok, err := l.st.GetOrchestrator()
	if err != nil {
		return false, err
	}
	return ok && current == caller, nil
}

func (l *Ledger) requireOrchestrator(caller [20]byte) error {
	ok, err := l.isOrchestrator(caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (l *Ledger) requireGovernance(caller [20]byte) error {
	if !l.st.HasRole(RoleGovernance, caller[:]) {
		return ErrUnauthorized
	}
	return nil
}

// loadClass resolves a class index against the dense class counter before
// fetching the record.
func (l *Ledger) loadClass(classID uint64) (*ShareClass, error) {
	count, err := l.st.GetClassCount()
	if err != nil {
		return nil, err
	}
	if classID >= count {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClass, classID)
	}
	class, ok, err := l.st.GetShareClass(classID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fund: class %d missing from state", classID)
	}
	return class.Normalize(), nil
}

// AddInvestor onboards a new identity with all balances zero and appends it
// to the active-address index. Restricted to the orchestrator.
func (l *Ledger) AddInvestor(caller [20]byte, addr [20]byte, typ InvestorType) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("investor_add", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireOrchestrator(caller); err != nil {
		return err
	}
	if addr == ([20]byte{}) {
		return fmt.Errorf("%w: null investor identity", ErrInvalidArgument)
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: investor type %s", ErrInvalidArgument, typ)
	}
	existing, ok, err := l.st.GetInvestor(addr)
	if err != nil {
		return err
	}
	if ok && existing.Type != InvestorTypeNone {
		return ErrAlreadyExists
	}
	index, err := l.st.GetInvestorIndex()
	if err != nil {
		return err
	}
	record := EmptyInvestorRecord()
	record.Type = typ
	if err := l.withSession(func() error {
		if err := l.st.AppendInvestorIndex(addr); err != nil {
			return err
		}
		return l.st.PutInvestor(addr, record)
	}); err != nil {
		return err
	}
	ts := l.now().Unix()
	l.emit(events.FundInvestorAdded{
		AuditID:      auditID(),
		Investor:     addr,
		InvestorType: typ.String(),
		Timestamp:    ts,
	})
	l.telemetry.SetActiveInvestors(len(index) + 1)
	return nil
}

// RemoveInvestor deletes a fully drained record and swap-removes the address
// from the active-address index: the last entry replaces the removed slot,
// so removal is O(1) and ordering is not preserved. Restricted to the
// orchestrator.
func (l *Ledger) RemoveInvestor(caller [20]byte, addr [20]byte) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("investor_remove", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireOrchestrator(caller); err != nil {
		return err
	}
	record, ok, err := l.st.GetInvestor(addr)
	if err != nil {
		return err
	}
	if !ok || record.Type == InvestorTypeNone {
		return ErrNotFound
	}
	if !record.Drained() {
		return ErrNonZeroBalance
	}
	index, err := l.st.GetInvestorIndex()
	if err != nil {
		return err
	}
	for i := range index {
		if index[i] == addr {
			index[i] = index[len(index)-1]
			index = index[:len(index)-1]
			break
		}
	}
	if err := l.withSession(func() error {
		if err := l.st.PutInvestorIndex(index); err != nil {
			return err
		}
		return l.st.DeleteInvestor(addr)
	}); err != nil {
		return err
	}
	l.emit(events.FundInvestorRemoved{
		AuditID:   auditID(),
		Investor:  addr,
		Timestamp: l.now().Unix(),
	})
	l.telemetry.SetActiveInvestors(len(index))
	return nil
}

// ModifyInvestor overwrites the whole record in one step. This is the
// trusted bulk-update entry point for subscription, redemption and fee
// settlement flows: the caller owns the arithmetic, the ledger enforces
// identity existence, type validity and balance sign. Restricted to the
// orchestrator.
func (l *Ledger) ModifyInvestor(caller [20]byte, addr [20]byte, update InvestorRecord, note string) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("investor_modify", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireOrchestrator(caller); err != nil {
		return err
	}
	existing, ok, err := l.st.GetInvestor(addr)
	if err != nil {
		return err
	}
	if !ok || existing.Type == InvestorTypeNone {
		return ErrNotFound
	}
	if !update.Type.Valid() {
		return fmt.Errorf("%w: investor type %s", ErrInvalidArgument, update.Type)
	}
	if err := update.validateBalances(); err != nil {
		return err
	}
	sanitized := update.Clone()
	if sanitized.SharesOwned.Sign() > 0 || sanitized.PendingRedemption.Sign() > 0 {
		count, err := l.st.GetClassCount()
		if err != nil {
			return err
		}
		if sanitized.ShareClassID >= count {
			return fmt.Errorf("%w: %d", ErrInvalidClass, sanitized.ShareClassID)
		}
	}
	if err := l.withSession(func() error {
		return l.st.PutInvestor(addr, sanitized)
	}); err != nil {
		return err
	}
	prev := existing.Normalize()
	l.emit(events.FundInvestorModified{
		AuditID:                 auditID(),
		Investor:                addr,
		InvestorType:            sanitized.Type.String(),
		PrevInvestorType:        prev.Type.String(),
		PendingSubscription:     sanitized.PendingSubscription,
		PrevPendingSubscription: prev.PendingSubscription,
		SharesOwned:             sanitized.SharesOwned,
		PrevSharesOwned:         prev.SharesOwned,
		ShareClassID:            sanitized.ShareClassID,
		PrevShareClassID:        prev.ShareClassID,
		PendingRedemption:       sanitized.PendingRedemption,
		PrevPendingRedemption:   prev.PendingRedemption,
		PendingWithdrawal:       sanitized.PendingWithdrawal,
		PrevPendingWithdrawal:   prev.PendingWithdrawal,
		Note:                    note,
		Timestamp:               l.now().Unix(),
	})
	return nil
}

// GetInvestor returns the stored record, or the canonical empty record for
// identities that were never onboarded. Unrestricted.
func (l *Ledger) GetInvestor(addr [20]byte) (*InvestorRecord, error) {
	if l == nil {
		return nil, errNilLedger
	}
	if l.st == nil {
		return nil, errNilState
	}
	record, ok, err := l.st.GetInvestor(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return EmptyInvestorRecord(), nil
	}
	return record.Normalize().Clone(), nil
}

// QueryInvestorType reports the investor's subscription currency, with
// InvestorTypeNone for unknown identities. Unrestricted.
func (l *Ledger) QueryInvestorType(addr [20]byte) (InvestorType, error) {
	record, err := l.GetInvestor(addr)
	if err != nil {
		return InvestorTypeNone, err
	}
	return record.Type, nil
}

// InvestorAddresses returns the active-address index. Restricted to
// governance principals and the orchestrator.
func (l *Ledger) InvestorAddresses(caller [20]byte) ([][20]byte, error) {
	if l == nil {
		return nil, errNilLedger
	}
	if l.st == nil {
		return nil, errNilState
	}
	orch, err := l.isOrchestrator(caller)
	if err != nil {
		return nil, err
	}
	if !orch && !l.st.HasRole(RoleGovernance, caller[:]) {
		return nil, ErrUnauthorized
	}
	return l.st.GetInvestorIndex()
}

// AddShareClass registers a new class under the next dense index with zero
// supply, par NAV and a fresh calculation stamp. Restricted to governance.
func (l *Ledger) AddShareClass(caller [20]byte, adminBps, mgmtBps, performBps uint64) (classID uint64, err error) {
	if l == nil {
		return 0, errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("class_add", outcomeLabel(err)) }()
	if l.st == nil {
		return 0, errNilState
	}
	if err := l.requireGovernance(caller); err != nil {
		return 0, err
	}
	if err := validateFeeBps(adminBps, mgmtBps, performBps); err != nil {
		return 0, err
	}
	count, err := l.st.GetClassCount()
	if err != nil {
		return 0, err
	}
	ts := l.now().Unix()
	class := &ShareClass{
		ID:                 count,
		AdminFeeBps:        adminBps,
		MgmtFeeBps:         mgmtBps,
		PerformFeeBps:      performBps,
		ShareSupply:        big.NewInt(0),
		ShareNav:           big.NewInt(ParShareNav),
		LastCalc:           uint64(ts),
		AccruedMgmtFees:    big.NewInt(0),
		AccruedAdminFees:   big.NewInt(0),
		AccruedPerformFees: big.NewInt(0),
		LossCarryforward:   big.NewInt(0),
	}
	if err := l.withSession(func() error {
		if err := l.st.PutShareClass(class); err != nil {
			return err
		}
		return l.st.PutClassCount(count + 1)
	}); err != nil {
		return 0, err
	}
	l.emit(events.FundShareClassCreated{
		AuditID:       auditID(),
		ClassID:       count,
		AdminFeeBps:   adminBps,
		MgmtFeeBps:    mgmtBps,
		PerformFeeBps: performBps,
		ShareNav:      class.ShareNav,
		Timestamp:     ts,
	})
	l.telemetry.SetShareClasses(count + 1)
	l.telemetry.SetShareNav(count, gaugeValue(class.ShareNav))
	return count, nil
}

// ModifyShareClassTerms replaces the fee schedule of a class that has no
// shares outstanding. Once supply exists the schedule is immutable so the
// economics cannot shift under existing holders. Restricted to governance.
func (l *Ledger) ModifyShareClassTerms(caller [20]byte, classID uint64, adminBps, mgmtBps, performBps uint64) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("class_terms", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireGovernance(caller); err != nil {
		return err
	}
	if err := validateFeeBps(adminBps, mgmtBps, performBps); err != nil {
		return err
	}
	class, err := l.loadClass(classID)
	if err != nil {
		return err
	}
	if class.ShareSupply.Sign() != 0 {
		return ErrSharesOutstanding
	}
	prevAdmin, prevMgmt, prevPerform := class.AdminFeeBps, class.MgmtFeeBps, class.PerformFeeBps
	class.AdminFeeBps = adminBps
	class.MgmtFeeBps = mgmtBps
	class.PerformFeeBps = performBps
	if err := l.withSession(func() error {
		return l.st.PutShareClass(class)
	}); err != nil {
		return err
	}
	l.emit(events.FundShareClassTermsUpdated{
		AuditID:           auditID(),
		ClassID:           classID,
		AdminFeeBps:       adminBps,
		PrevAdminFeeBps:   prevAdmin,
		MgmtFeeBps:        mgmtBps,
		PrevMgmtFeeBps:    prevMgmt,
		PerformFeeBps:     performBps,
		PrevPerformFeeBps: prevPerform,
		Timestamp:         l.now().Unix(),
	})
	return nil
}

// ModifyShareCount records a class supply together with the fund-wide total.
// The caller must have computed the pairing consistently; both values are
// written atomically so the supply invariant never tears. Restricted to the
// orchestrator.
func (l *Ledger) ModifyShareCount(caller [20]byte, classID uint64, classSupply, totalSupply *big.Int) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("class_shares", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireOrchestrator(caller); err != nil {
		return err
	}
	if classSupply == nil || totalSupply == nil {
		return fmt.Errorf("%w: nil share supply", ErrInvalidArgument)
	}
	if classSupply.Sign() < 0 || totalSupply.Sign() < 0 {
		return fmt.Errorf("%w: negative share supply", ErrInvalidArgument)
	}
	class, err := l.loadClass(classID)
	if err != nil {
		return err
	}
	prevTotal, err := l.st.GetTotalShares()
	if err != nil {
		return err
	}
	prevClassSupply := class.ShareSupply
	class.ShareSupply = new(big.Int).Set(classSupply)
	total := new(big.Int).Set(totalSupply)
	if err := l.withSession(func() error {
		if err := l.st.PutShareClass(class); err != nil {
			return err
		}
		return l.st.PutTotalShares(total)
	}); err != nil {
		return err
	}
	l.emit(events.FundShareCountUpdated{
		AuditID:         auditID(),
		ClassID:         classID,
		ClassSupply:     class.ShareSupply,
		PrevClassSupply: prevClassSupply,
		TotalSupply:     total,
		PrevTotalSupply: prevTotal,
		Timestamp:       l.now().Unix(),
	})
	return nil
}

// UpdateNav writes a freshly computed per-share price and stamps the
// calculation time. Restricted to the orchestrator.
func (l *Ledger) UpdateNav(caller [20]byte, classID uint64, newNav *big.Int) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("nav_update", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireOrchestrator(caller); err != nil {
		return err
	}
	if newNav == nil || newNav.Sign() <= 0 {
		return fmt.Errorf("%w: share NAV must be positive", ErrInvalidArgument)
	}
	class, err := l.loadClass(classID)
	if err != nil {
		return err
	}
	prevNav := class.ShareNav
	ts := l.now().Unix()
	class.ShareNav = new(big.Int).Set(newNav)
	class.LastCalc = uint64(ts)
	if err := l.withSession(func() error {
		return l.st.PutShareClass(class)
	}); err != nil {
		return err
	}
	l.emit(events.FundNavUpdated{
		AuditID:      auditID(),
		ClassID:      classID,
		ShareNav:     class.ShareNav,
		PrevShareNav: prevNav,
		Timestamp:    ts,
	})
	l.telemetry.SetShareNav(classID, gaugeValue(class.ShareNav))
	return nil
}

// UpdateFeeState persists the accrual and loss-carryforward balances the NAV
// computation produced for a class. Restricted to the orchestrator.
func (l *Ledger) UpdateFeeState(caller [20]byte, classID uint64, lossCarryforward, accMgmt, accAdmin, accPerform *big.Int) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("fee_state", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireOrchestrator(caller); err != nil {
		return err
	}
	for _, v := range []*big.Int{lossCarryforward, accMgmt, accAdmin, accPerform} {
		if v == nil {
			return fmt.Errorf("%w: nil fee balance", ErrInvalidArgument)
		}
		if v.Sign() < 0 {
			return fmt.Errorf("%w: negative fee balance", ErrInvalidArgument)
		}
	}
	class, err := l.loadClass(classID)
	if err != nil {
		return err
	}
	prev := class.Clone()
	class.LossCarryforward = new(big.Int).Set(lossCarryforward)
	class.AccruedMgmtFees = new(big.Int).Set(accMgmt)
	class.AccruedAdminFees = new(big.Int).Set(accAdmin)
	class.AccruedPerformFees = new(big.Int).Set(accPerform)
	if err := l.withSession(func() error {
		return l.st.PutShareClass(class)
	}); err != nil {
		return err
	}
	l.emit(events.FundFeeStateUpdated{
		AuditID:                auditID(),
		ClassID:                classID,
		LossCarryforward:       class.LossCarryforward,
		PrevLossCarryforward:   prev.LossCarryforward,
		AccruedMgmtFees:        class.AccruedMgmtFees,
		PrevAccruedMgmtFees:    prev.AccruedMgmtFees,
		AccruedAdminFees:       class.AccruedAdminFees,
		PrevAccruedAdminFees:   prev.AccruedAdminFees,
		AccruedPerformFees:     class.AccruedPerformFees,
		PrevAccruedPerformFees: prev.AccruedPerformFees,
		Timestamp:              l.now().Unix(),
	})
	l.telemetry.SetLossCarryforward(classID, gaugeValue(class.LossCarryforward))
	return nil
}

// SetOrchestrator reassigns the orchestrator identity. Reassignment to the
// null identity or to the current orchestrator is rejected. Restricted to
// governance.
func (l *Ledger) SetOrchestrator(caller [20]byte, next [20]byte) (err error) {
	if l == nil {
		return errNilLedger
	}
	defer func() { l.telemetry.ObserveOperation("orchestrator_rotate", outcomeLabel(err)) }()
	if l.st == nil {
		return errNilState
	}
	if err := l.requireGovernance(caller); err != nil {
		return err
	}
	if next == ([20]byte{}) {
		return fmt.Errorf("%w: null orchestrator identity", ErrInvalidArgument)
	}
	current, ok, err := l.st.GetOrchestrator()
	if err != nil {
		return err
	}
	if ok && current == next {
		return fmt.Errorf("%w: orchestrator unchanged", ErrInvalidArgument)
	}
	if err := l.withSession(func() error {
		return l.st.PutOrchestrator(next)
	}); err != nil {
		return err
	}
	l.emit(events.FundOrchestratorRotated{
		AuditID:   auditID(),
		Previous:  current,
		Next:      next,
		Timestamp: l.now().Unix(),
	})
	return nil
}

// GetShareClass returns a copy of the class record. Unrestricted.
func (l *Ledger) GetShareClass(classID uint64) (*ShareClass, error) {
	if l == nil {
		return nil, errNilLedger
	}
	if l.st == nil {
		return nil, errNilState
	}
	return l.loadClass(classID)
}

// NumberOfShareClasses returns the dense class counter. Unrestricted.
func (l *Ledger) NumberOfShareClasses() (uint64, error) {
	if l == nil {
		return 0, errNilLedger
	}
	if l.st == nil {
		return 0, errNilState
	}
	return l.st.GetClassCount()
}

// TotalShareSupply returns the fund-wide share count. Unrestricted.
func (l *Ledger) TotalShareSupply() (*big.Int, error) {
	if l == nil {
		return nil, errNilLedger
	}
	if l.st == nil {
		return nil, errNilState
	}
	total, err := l.st.GetTotalShares()
	if err != nil {
		return nil, err
	}
	return copyBigInt(total), nil
}

// Orchestrator returns the current orchestrator identity, or the zero
// identity when none is configured. Unrestricted.
func (l *Ledger) Orchestrator() ([20]byte, error) {
	if l == nil {
		return [20]byte{}, errNilLedger
	}
	if l.st == nil {
		return [20]byte{}, errNilState
	}
	current, ok, err := l.st.GetOrchestrator()
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, nil
	}
	return current, nil
}
