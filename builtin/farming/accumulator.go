// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package farming holds the reward-accounting machinery shared by the farm
// ledgers: the fixed-point accumulator arithmetic, the emission schedule and
// the settle protocol of a weighted reward pool.
package farming

import (
	"errors"
	"math/big"

	"github.com/alpaworld/alpafi/alpafi"
)

// ErrPendingUnderflow signals that a pending-reward computation went
// negative. That can only happen when reward debt was not re-priced after a
// structural change, i.e. an accounting defect; callers must abort.
var ErrPendingUnderflow = errors.New("farming: negative pending reward")

// Accrue returns acc advanced by reward spread over totalWeighted units,
// fixed-point scaled. totalWeighted must be positive.
func Accrue(acc, reward, totalWeighted *big.Int) *big.Int {
	delta := new(big.Int).Mul(reward, alpafi.RewardScale)
	delta.Div(delta, totalWeighted)
	return new(big.Int).Add(acc, delta)
}

// PendingReward returns the reward accrued by a position of the given
// weighted share since its debt was last re-priced.
func PendingReward(weightedShare, acc, rewardDebt *big.Int) (*big.Int, error) {
	pending := new(big.Int).Mul(weightedShare, acc)
	pending.Div(pending, alpafi.RewardScale)
	pending.Sub(pending, rewardDebt)
	if pending.Sign() < 0 {
		return nil, ErrPendingUnderflow
	}
	return pending, nil
}

// RewardDebt prices a weighted share at the current accumulator. Storing it
// right after every structural change is what keeps PendingReward correct.
func RewardDebt(weightedShare, acc *big.Int) *big.Int {
	debt := new(big.Int).Mul(weightedShare, acc)
	return debt.Div(debt, alpafi.RewardScale)
}
