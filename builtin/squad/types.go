// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package squad

import (
	"math/big"

	"github.com/alpaworld/alpafi/alpafi"
)

// MemberInfo is the squad aggregate of one user. The weighted share is
// derived, not stored: sumEnergy squared over the number of alpacas.
type MemberInfo struct {
	NumAlpacas uint32
	SumEnergy  uint64
	RewardDebt *big.Int
}

func (u *MemberInfo) norm() *MemberInfo {
	if u.RewardDebt == nil {
		u.RewardDebt = new(big.Int)
	}
	return u
}

// Share returns the member's weighted share. Zero when the squad is empty.
func (u *MemberInfo) Share() *big.Int {
	if u.NumAlpacas == 0 {
		return new(big.Int)
	}
	sum := new(big.Int).SetUint64(u.SumEnergy)
	share := new(big.Int).Mul(sum, sum)
	return share.Div(share, new(big.Int).SetUint64(uint64(u.NumAlpacas)))
}

// Attachment records who attached an alpaca and the energy it was priced in
// at. The cached energy is what removal and energy-change bookkeeping
// subtract, never a fresh registry read.
type Attachment struct {
	Owner  alpafi.Address
	Energy uint32
}

// IsEmpty reports whether the attachment record is unset.
func (a *Attachment) IsEmpty() bool {
	return a.Owner.IsZero()
}

type addressKey alpafi.Address

func (k addressKey) Bytes() []byte {
	return alpafi.Address(k).Bytes()
}
