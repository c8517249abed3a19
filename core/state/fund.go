package state

import (
	"fmt"
	"math/big"
	"strconv"

	"fundcore/native/fund"
)

var (
	fundInvestorPrefix   = []byte("fund/investor/")
	fundInvestorIndexKey = []byte("fund/investorIndex")
	fundClassPrefix      = []byte("fund/class/")
	fundClassCountKey    = []byte("fund/classCount")
	fundTotalSharesKey   = []byte("fund/totalShares")
	fundOrchestratorKey  = []byte("fund/orchestrator")
)

func fundInvestorKey(addr [20]byte) []byte {
	buf := make([]byte, len(fundInvestorPrefix)+len(addr))
	copy(buf, fundInvestorPrefix)
	copy(buf[len(fundInvestorPrefix):], addr[:])
	return buf
}

func fundClassKey(id uint64) []byte {
	encoded := strconv.FormatUint(id, 10)
	buf := make([]byte, len(fundClassPrefix)+len(encoded))
	copy(buf, fundClassPrefix)
	copy(buf[len(fundClassPrefix):], encoded)
	return buf
}

// GetInvestor loads the record stored for the provided identity. The boolean
// result reports whether a record exists.
func (m *Manager) GetInvestor(addr [20]byte) (*fund.InvestorRecord, bool, error) {
	record := new(fund.InvestorRecord)
	ok, err := m.KVGet(fundInvestorKey(addr), record)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return record.Normalize(), true, nil
}

// PutInvestor stores the record for the provided identity.
func (m *Manager) PutInvestor(addr [20]byte, record *fund.InvestorRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil investor record")
	}
	sanitized := record.Clone()
	for _, v := range []*big.Int{sanitized.PendingSubscription, sanitized.SharesOwned, sanitized.PendingRedemption, sanitized.PendingWithdrawal} {
		if v.Sign() < 0 {
			return fmt.Errorf("state: negative investor balance")
		}
	}
	return m.KVPut(fundInvestorKey(addr), sanitized)
}

// DeleteInvestor removes the record for the provided identity.
func (m *Manager) DeleteInvestor(addr [20]byte) error {
	return m.KVDelete(fundInvestorKey(addr))
}

// GetInvestorIndex returns the active-address index.
func (m *Manager) GetInvestorIndex() ([][20]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(fundInvestorIndexKey, &raw); err != nil {
		return nil, err
	}
	index := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 20 {
			return nil, fmt.Errorf("state: malformed investor index entry of %d bytes", len(entry))
		}
		var addr [20]byte
		copy(addr[:], entry)
		index = append(index, addr)
	}
	return index, nil
}

// PutInvestorIndex replaces the active-address index wholesale. Used by the
// swap-remove path, which rewrites the shrunk index in place.
func (m *Manager) PutInvestorIndex(addrs [][20]byte) error {
	raw := make([][]byte, 0, len(addrs))
	for _, addr := range addrs {
		raw = append(raw, append([]byte(nil), addr[:]...))
	}
	return m.KVPut(fundInvestorIndexKey, raw)
}

// AppendInvestorIndex appends one identity to the active-address index,
// ignoring duplicates.
func (m *Manager) AppendInvestorIndex(addr [20]byte) error {
	return m.KVAppend(fundInvestorIndexKey, addr[:])
}

// GetShareClass loads one share class by its dense index. The boolean result
// reports whether the class exists.
func (m *Manager) GetShareClass(id uint64) (*fund.ShareClass, bool, error) {
	class := new(fund.ShareClass)
	ok, err := m.KVGet(fundClassKey(id), class)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return class.Normalize(), true, nil
}

// PutShareClass stores a share class under its dense index.
func (m *Manager) PutShareClass(class *fund.ShareClass) error {
	if class == nil {
		return fmt.Errorf("state: nil share class")
	}
	sanitized := class.Clone()
	for _, v := range []*big.Int{sanitized.ShareSupply, sanitized.ShareNav, sanitized.AccruedMgmtFees, sanitized.AccruedAdminFees, sanitized.AccruedPerformFees, sanitized.LossCarryforward} {
		if v.Sign() < 0 {
			return fmt.Errorf("state: negative share class balance")
		}
	}
	return m.KVPut(fundClassKey(sanitized.ID), sanitized)
}

// GetClassCount returns the dense share-class counter.
func (m *Manager) GetClassCount() (uint64, error) {
	var count uint64
	if _, err := m.KVGet(fundClassCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// PutClassCount stores the dense share-class counter.
func (m *Manager) PutClassCount(count uint64) error {
	return m.KVPut(fundClassCountKey, count)
}

// GetTotalShares returns the fund-wide share supply, zero when unset.
func (m *Manager) GetTotalShares() (*big.Int, error) {
	total := new(big.Int)
	ok, err := m.KVGet(fundTotalSharesKey, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// PutTotalShares stores the fund-wide share supply.
func (m *Manager) PutTotalShares(total *big.Int) error {
	if total == nil || total.Sign() < 0 {
		return fmt.Errorf("state: total share supply must be non-negative")
	}
	return m.KVPut(fundTotalSharesKey, total)
}

// GetOrchestrator returns the configured orchestrator identity. The boolean
// result reports whether one has been set.
func (m *Manager) GetOrchestrator() ([20]byte, bool, error) {
	var addr [20]byte
	ok, err := m.KVGet(fundOrchestratorKey, &addr)
	if err != nil {
		return [20]byte{}, false, err
	}
	if !ok {
		return [20]byte{}, false, nil
	}
	return addr, true, nil
}

// PutOrchestrator stores the orchestrator identity.
func (m *Manager) PutOrchestrator(addr [20]byte) error {
	if addr == ([20]byte{}) {
		return fmt.Errorf("state: null orchestrator identity")
	}
	return m.KVPut(fundOrchestratorKey, addr)
}
