// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farming

import "math/big"

// Emission computes how many reward tokens are due for a block range.
type Emission struct {
	RatePerBlock *big.Int
}

// Due returns the reward emitted over elapsed blocks.
func (e Emission) Due(elapsed uint32) *big.Int {
	return new(big.Int).Mul(e.RatePerBlock, new(big.Int).SetUint64(uint64(elapsed)))
}

// PoolShare returns the reward emitted over elapsed blocks for a pool
// holding allocPoint out of totalAllocPoint, rounded down. A zero
// totalAllocPoint yields zero.
func (e Emission) PoolShare(elapsed uint32, allocPoint uint64, totalAllocPoint *big.Int) *big.Int {
	if totalAllocPoint.Sign() == 0 {
		return new(big.Int)
	}
	due := e.Due(elapsed)
	due.Mul(due, new(big.Int).SetUint64(allocPoint))
	return due.Div(due, totalAllocPoint)
}

// Split divides an emission into dev, community and pool shares. The pool
// takes the remainder, so the three parts always sum to total.
func Split(total *big.Int, devPercent, communityPercent int64) (dev, community, pool *big.Int) {
	hundred := big.NewInt(100)
	dev = new(big.Int).Mul(total, big.NewInt(devPercent))
	dev.Div(dev, hundred)
	community = new(big.Int).Mul(total, big.NewInt(communityPercent))
	community.Div(community, hundred)
	pool = new(big.Int).Sub(total, dev)
	pool.Sub(pool, community)
	return
}
