// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package masterchef

import (
	"math/big"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/farming"
)

// PoolInfo is one staking pool of the chef.
type PoolInfo struct {
	StakedToken alpafi.Address
	AllocPoint  uint64
	Pool        farming.Pool
}

func (p *PoolInfo) norm() *PoolInfo {
	p.Pool.Norm()
	return p
}

// IsEmpty reports whether the pool record is unset.
func (p *PoolInfo) IsEmpty() bool {
	return p.StakedToken.IsZero()
}

// UserInfo is the position of one user in one pool.
//
// Energy caches the attached alpaca's energy at attachment time; it is only
// refreshed through the registry's energy-change notification, never re-read
// during settlement.
type UserInfo struct {
	Amount     *big.Int
	AlpacaID   uint64
	Energy     uint32
	RewardDebt *big.Int
}

func (u *UserInfo) norm() *UserInfo {
	if u.Amount == nil {
		u.Amount = new(big.Int)
	}
	if u.RewardDebt == nil {
		u.RewardDebt = new(big.Int)
	}
	return u
}

// WeightFactor returns the position's multiplier: the attached alpaca's
// energy, or 1 when none is attached.
func (u *UserInfo) WeightFactor() *big.Int {
	if u.AlpacaID == 0 {
		return big.NewInt(1)
	}
	return new(big.Int).SetUint64(uint64(u.Energy))
}

// WeightedShare returns stake times weight factor, the unit the pool
// accumulator is expressed per.
func (u *UserInfo) WeightedShare() *big.Int {
	return new(big.Int).Mul(u.Amount, u.WeightFactor())
}

// Attachment records which address attached an alpaca, and to which pool.
// The alpaca goes back to that address on retrieval or swap.
type Attachment struct {
	Owner alpafi.Address
	Pid   uint64
}

// IsEmpty reports whether the attachment record is unset.
func (a *Attachment) IsEmpty() bool {
	return a.Owner.IsZero()
}

type userKey struct {
	pid  uint64
	user alpafi.Address
}

func (k userKey) Bytes() []byte {
	b := make([]byte, 8, 8+alpafi.AddressLength)
	b[0] = byte(k.pid >> 56)
	b[1] = byte(k.pid >> 48)
	b[2] = byte(k.pid >> 40)
	b[3] = byte(k.pid >> 32)
	b[4] = byte(k.pid >> 24)
	b[5] = byte(k.pid >> 16)
	b[6] = byte(k.pid >> 8)
	b[7] = byte(k.pid)
	return append(b, k.user.Bytes()...)
}
