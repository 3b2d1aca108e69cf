// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farming

import "math/big"

// Pool is the reward-accounting core of one weighted pool.
//
// The invariant every ledger maintains: TotalWeightedShare equals the sum of
// the weighted shares of all positions in the pool, and every mutating entry
// point settles the pool before touching any position.
type Pool struct {
	LastRewardBlock    uint32
	AccRewardPerShare  *big.Int
	TotalWeightedShare *big.Int
}

// Norm allocates nil big fields; mappings hand out zero-valued pools.
func (p *Pool) Norm() *Pool {
	if p.AccRewardPerShare == nil {
		p.AccRewardPerShare = new(big.Int)
	}
	if p.TotalWeightedShare == nil {
		p.TotalWeightedShare = new(big.Int)
	}
	return p
}

// Settle advances the pool to nowBlock. due returns the reward credited to
// the pool for the elapsed blocks; it is not invoked when no block elapsed.
// An empty pool only advances LastRewardBlock: reward for it is not emitted
// at all, there is no retroactive credit.
func (p *Pool) Settle(nowBlock uint32, due func(elapsed uint32) (*big.Int, error)) error {
	if nowBlock <= p.LastRewardBlock {
		return nil
	}
	if p.TotalWeightedShare.Sign() == 0 {
		p.LastRewardBlock = nowBlock
		return nil
	}
	reward, err := due(nowBlock - p.LastRewardBlock)
	if err != nil {
		return err
	}
	if reward.Sign() > 0 {
		p.AccRewardPerShare = Accrue(p.AccRewardPerShare, reward, p.TotalWeightedShare)
	}
	p.LastRewardBlock = nowBlock
	return nil
}

// PreviewAcc returns the accumulator as it would read after settling at
// nowBlock, without mutating the pool. due must be side-effect free.
func (p *Pool) PreviewAcc(nowBlock uint32, due func(elapsed uint32) (*big.Int, error)) (*big.Int, error) {
	if nowBlock <= p.LastRewardBlock || p.TotalWeightedShare.Sign() == 0 {
		return new(big.Int).Set(p.AccRewardPerShare), nil
	}
	reward, err := due(nowBlock - p.LastRewardBlock)
	if err != nil {
		return nil, err
	}
	return Accrue(p.AccRewardPerShare, reward, p.TotalWeightedShare), nil
}

// ShiftWeighted applies a position's weighted-share change to the pool
// denominator.
func (p *Pool) ShiftWeighted(oldShare, newShare *big.Int) {
	p.TotalWeightedShare = new(big.Int).Add(p.TotalWeightedShare, newShare)
	p.TotalWeightedShare.Sub(p.TotalWeightedShare, oldShare)
}
