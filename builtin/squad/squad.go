// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package squad implements the single-pool farming ledger. There is no token
// stake: a member's weighted share derives entirely from the squad of
// alpacas they field, as the square of their summed energy over the squad
// size. The whole emission goes to the pool, there is no dev or community
// cut.
package squad

import (
	"math/big"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/farming"
	"github.com/alpaworld/alpafi/builtin/reverts"
	"github.com/alpaworld/alpafi/log"
	"github.com/alpaworld/alpafi/state"
)

var logger = log.WithContext("pkg", "squad")

// Token is the reward-ledger capability the squad consumes.
type Token interface {
	Address() alpafi.Address
	BalanceOf(addr alpafi.Address) (*big.Int, error)
	Transfer(from, to alpafi.Address, amount *big.Int) error
	Mint(caller, to alpafi.Address, amount *big.Int) error
}

// TokenResolver returns the fungible ledger bound to an address.
type TokenResolver func(alpafi.Address) Token

// AlpacaRegistry is the breeding-subsystem capability the squad consumes.
type AlpacaRegistry interface {
	Address() alpafi.Address
	Stats(id uint64) (energy uint32, usable bool, err error)
	Transfer(operator, from, to alpafi.Address, id uint64) error
}

// Squad is the single-pool ledger bound to a contract address.
// Not goroutine safe; mutating calls are strictly sequential.
type Squad struct {
	addr    alpafi.Address
	state   *state.State
	storage *squadStorage

	tokens   TokenResolver
	registry AlpacaRegistry
	guard    farming.Guard
}

// New creates the ledger bound to the given address.
func New(addr alpafi.Address, st *state.State, tokens TokenResolver, registry AlpacaRegistry) *Squad {
	return &Squad{
		addr:     addr,
		state:    st,
		storage:  newSquadStorage(addr, st),
		tokens:   tokens,
		registry: registry,
	}
}

// Address returns the ledger's contract address.
func (s *Squad) Address() alpafi.Address {
	return s.addr
}

func (s *Squad) run(fn func() error) error {
	release, err := s.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	checkpoint := s.state.NewCheckpoint()
	if err := fn(); err != nil {
		s.state.RevertTo(checkpoint)
		return err
	}
	return nil
}

// Initialize writes the genesis parameters. It can run once.
func (s *Squad) Initialize(owner, rewardToken alpafi.Address, rewardPerBlock *big.Int) error {
	return s.run(func() error {
		cur, err := s.storage.getAddress(slotOwner)
		if err != nil {
			return err
		}
		if !cur.IsZero() {
			return reverts.NewRequireError("squad: already initialized")
		}
		if owner.IsZero() || rewardToken.IsZero() {
			return reverts.NewRequireError("squad: zero owner or reward token")
		}
		if rewardPerBlock.Sign() < 0 {
			return reverts.NewRequireError("squad: negative reward rate")
		}
		if err := s.storage.setAddress(slotOwner, owner); err != nil {
			return err
		}
		if err := s.storage.setAddress(slotRewardToken, rewardToken); err != nil {
			return err
		}
		s.storage.rewardPerBlock.Set(rewardPerBlock)
		return nil
	})
}

// Owner returns the admin address.
func (s *Squad) Owner() (alpafi.Address, error) {
	return s.storage.getAddress(slotOwner)
}

func (s *Squad) requireOwner(caller alpafi.Address) error {
	owner, err := s.storage.getAddress(slotOwner)
	if err != nil {
		return err
	}
	if owner.IsZero() || caller != owner {
		return reverts.NewRequireError("squad: not owner")
	}
	return nil
}

func (s *Squad) requireNotPaused() error {
	paused, err := s.storage.getPaused()
	if err != nil {
		return err
	}
	if paused {
		return reverts.NewRequireError("squad: paused")
	}
	return nil
}

func (s *Squad) rewardLedger() (Token, error) {
	addr, err := s.storage.getAddress(slotRewardToken)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, reverts.NewRequireError("squad: not initialized")
	}
	return s.tokens(addr), nil
}

// settlePool advances the pool, minting the full elapsed emission into the
// squad's custody.
func (s *Squad) settlePool(pool *farming.Pool, nowBlock uint32) error {
	rate, err := s.storage.rewardPerBlock.Get()
	if err != nil {
		return err
	}
	emission := farming.Emission{RatePerBlock: rate}
	return pool.Settle(nowBlock, func(elapsed uint32) (*big.Int, error) {
		due := emission.Due(elapsed)
		if due.Sign() == 0 {
			return due, nil
		}
		reward, err := s.rewardLedger()
		if err != nil {
			return nil, err
		}
		if err := reward.Mint(s.addr, s.addr, due); err != nil {
			return nil, err
		}
		farming.MeterSettlement("squad")
		logger.Debug("pool settled", "block", nowBlock, "emitted", due)
		return due, nil
	})
}

func (s *Squad) payReward(to alpafi.Address, amount *big.Int) error {
	reward, err := s.rewardLedger()
	if err != nil {
		return err
	}
	balance, err := reward.BalanceOf(s.addr)
	if err != nil {
		return err
	}
	if amount.Cmp(balance) > 0 {
		amount = balance
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := reward.Transfer(s.addr, to, amount); err != nil {
		return err
	}
	farming.MeterPayout("squad")
	return nil
}

func (s *Squad) settleAndPay(pool *farming.Pool, member *MemberInfo, to alpafi.Address, blockNum uint32) error {
	if err := s.settlePool(pool, blockNum); err != nil {
		return err
	}
	pending, err := farming.PendingReward(member.Share(), pool.AccRewardPerShare, member.RewardDebt)
	if err != nil {
		return err
	}
	if pending.Sign() > 0 {
		return s.payReward(to, pending)
	}
	return nil
}

// SetRewardPerBlock changes the emission rate. Owner only; the pool settles
// first so the old rate applies exactly up to this block.
func (s *Squad) SetRewardPerBlock(caller alpafi.Address, blockNum uint32, rate *big.Int) error {
	return s.run(func() error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		if rate.Sign() < 0 {
			return reverts.NewRequireError("squad: negative reward rate")
		}
		pool, err := s.storage.getPool()
		if err != nil {
			return err
		}
		if err := s.settlePool(pool, blockNum); err != nil {
			return err
		}
		if err := s.storage.setPool(pool); err != nil {
			return err
		}
		s.storage.rewardPerBlock.Set(rate)
		return nil
	})
}

// Pause blocks mutating member entry points. Owner only.
func (s *Squad) Pause(caller alpafi.Address) error {
	return s.run(func() error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		return s.storage.setPaused(true)
	})
}

// Unpause re-enables the ledger. Owner only.
func (s *Squad) Unpause(caller alpafi.Address) error {
	return s.run(func() error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		return s.storage.setPaused(false)
	})
}

// Settle advances the pool to the current block. Anyone may call.
func (s *Squad) Settle(blockNum uint32) error {
	return s.run(func() error {
		pool, err := s.storage.getPool()
		if err != nil {
			return err
		}
		if err := s.settlePool(pool, blockNum); err != nil {
			return err
		}
		return s.storage.setPool(pool)
	})
}

// Claim pays the caller's accrued reward without changing the squad.
func (s *Squad) Claim(caller alpafi.Address, blockNum uint32) error {
	return s.run(func() error {
		if err := s.requireNotPaused(); err != nil {
			return err
		}
		pool, err := s.storage.getPool()
		if err != nil {
			return err
		}
		member, err := s.storage.getMember(caller)
		if err != nil {
			return err
		}
		if err := s.settleAndPay(pool, member, caller, blockNum); err != nil {
			return err
		}
		member.RewardDebt = farming.RewardDebt(member.Share(), pool.AccRewardPerShare)
		if err := s.storage.setMember(caller, member); err != nil {
			return err
		}
		return s.storage.setPool(pool)
	})
}

// attach adds alpacas to owner's squad. Alpacas are pulled from owner when
// pull is set; otherwise they are expected to already sit in custody (the
// receive-hook path).
func (s *Squad) attach(owner alpafi.Address, blockNum uint32, ids []uint64, pull bool) error {
	if len(ids) == 0 {
		return reverts.NewRequireError("squad: no alpacas given")
	}
	pool, err := s.storage.getPool()
	if err != nil {
		return err
	}
	member, err := s.storage.getMember(owner)
	if err != nil {
		return err
	}
	maxSquadSize.Override(s.storage.context)
	if uint64(member.NumAlpacas)+uint64(len(ids)) > uint64(maxSquadSize.Get()) {
		return reverts.NewRequireError("squad: capacity exceeded")
	}
	if err := s.settleAndPay(pool, member, owner, blockNum); err != nil {
		return err
	}
	oldShare := member.Share()
	for _, id := range ids {
		attachment, err := s.storage.getAttachment(id)
		if err != nil {
			return err
		}
		if !attachment.IsEmpty() {
			return reverts.NewRequireError("squad: alpaca already attached")
		}
		energy, usable, err := s.registry.Stats(id)
		if err != nil {
			return err
		}
		if !usable || energy == 0 {
			return reverts.NewRequireError("squad: alpaca not usable")
		}
		if pull {
			if err := s.registry.Transfer(s.addr, owner, s.addr, id); err != nil {
				return err
			}
		}
		if err := s.storage.setAttachment(id, &Attachment{Owner: owner, Energy: energy}); err != nil {
			return err
		}
		member.NumAlpacas++
		member.SumEnergy += uint64(energy)
	}
	pool.ShiftWeighted(oldShare, member.Share())
	member.RewardDebt = farming.RewardDebt(member.Share(), pool.AccRewardPerShare)
	if err := s.storage.setMember(owner, member); err != nil {
		return err
	}
	logger.Debug("alpacas attached", "owner", owner, "count", len(ids), "share", member.Share())
	return s.storage.setPool(pool)
}

// AddAlpacas fields the given alpacas in the caller's squad, pulling them
// from the caller. The squad must be an approved operator of the caller.
func (s *Squad) AddAlpacas(caller alpafi.Address, blockNum uint32, ids []uint64) error {
	return s.run(func() error {
		if err := s.requireNotPaused(); err != nil {
			return err
		}
		return s.attach(caller, blockNum, ids, true)
	})
}

// OnAlpacaReceived is the registry's receive hook: alpacas safe-transferred
// to the squad join the sender's squad. Batch transfers are allowed.
func (s *Squad) OnAlpacaReceived(operator, from alpafi.Address, blockNum uint32, ids []uint64, data []byte) error {
	return s.run(func() error {
		if err := s.requireNotPaused(); err != nil {
			return err
		}
		return s.attach(from, blockNum, ids, false)
	})
}

// RemoveAlpacas returns the given alpacas to the caller, who must be their
// recorded attacher. Removing the whole squad zeroes the share.
func (s *Squad) RemoveAlpacas(caller alpafi.Address, blockNum uint32, ids []uint64) error {
	return s.run(func() error {
		if err := s.requireNotPaused(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return reverts.NewRequireError("squad: no alpacas given")
		}
		pool, err := s.storage.getPool()
		if err != nil {
			return err
		}
		member, err := s.storage.getMember(caller)
		if err != nil {
			return err
		}
		if err := s.settleAndPay(pool, member, caller, blockNum); err != nil {
			return err
		}
		oldShare := member.Share()
		for _, id := range ids {
			attachment, err := s.storage.getAttachment(id)
			if err != nil {
				return err
			}
			if attachment.IsEmpty() || attachment.Owner != caller {
				return reverts.NewRequireError("squad: original owner not found")
			}
			if err := s.registry.Transfer(s.addr, s.addr, caller, id); err != nil {
				return err
			}
			if err := s.storage.deleteAttachment(id); err != nil {
				return err
			}
			member.NumAlpacas--
			member.SumEnergy -= uint64(attachment.Energy)
		}
		pool.ShiftWeighted(oldShare, member.Share())
		member.RewardDebt = farming.RewardDebt(member.Share(), pool.AccRewardPerShare)
		if err := s.storage.setMember(caller, member); err != nil {
			return err
		}
		logger.Debug("alpacas removed", "owner", caller, "count", len(ids), "share", member.Share())
		return s.storage.setPool(pool)
	})
}

// OnEnergyChanged is the registry's notification that a fielded alpaca's
// energy changed. The member settles and is paid under the old aggregate,
// then the cached energy shifts to the new value. Only the registry may call.
func (s *Squad) OnEnergyChanged(caller alpafi.Address, blockNum uint32, id uint64, oldEnergy, newEnergy uint32) error {
	return s.run(func() error {
		if caller != s.registry.Address() {
			return reverts.NewRequireError("squad: not breeding registry")
		}
		attachment, err := s.storage.getAttachment(id)
		if err != nil {
			return err
		}
		if attachment.IsEmpty() {
			return reverts.NewRequireError("squad: original owner not found")
		}
		pool, err := s.storage.getPool()
		if err != nil {
			return err
		}
		member, err := s.storage.getMember(attachment.Owner)
		if err != nil {
			return err
		}
		if err := s.settleAndPay(pool, member, attachment.Owner, blockNum); err != nil {
			return err
		}
		oldShare := member.Share()
		member.SumEnergy -= uint64(attachment.Energy)
		member.SumEnergy += uint64(newEnergy)
		attachment.Energy = newEnergy
		pool.ShiftWeighted(oldShare, member.Share())
		member.RewardDebt = farming.RewardDebt(member.Share(), pool.AccRewardPerShare)

		if err := s.storage.setAttachment(id, attachment); err != nil {
			return err
		}
		if err := s.storage.setMember(attachment.Owner, member); err != nil {
			return err
		}
		logger.Debug("energy change applied", "id", id, "old", oldEnergy, "new", newEnergy)
		return s.storage.setPool(pool)
	})
}

// PendingReward previews the reward a member would receive by claiming at
// blockNum, without mutating any state.
func (s *Squad) PendingReward(blockNum uint32, addr alpafi.Address) (*big.Int, error) {
	pool, err := s.storage.getPool()
	if err != nil {
		return nil, err
	}
	member, err := s.storage.getMember(addr)
	if err != nil {
		return nil, err
	}
	rate, err := s.storage.rewardPerBlock.Get()
	if err != nil {
		return nil, err
	}
	emission := farming.Emission{RatePerBlock: rate}
	acc, err := pool.PreviewAcc(blockNum, func(elapsed uint32) (*big.Int, error) {
		return emission.Due(elapsed), nil
	})
	if err != nil {
		return nil, err
	}
	return farming.PendingReward(member.Share(), acc, member.RewardDebt)
}

// GetMember returns a member's squad aggregate. Unknown members read as a
// zero-valued record.
func (s *Squad) GetMember(addr alpafi.Address) (*MemberInfo, error) {
	return s.storage.getMember(addr)
}

// AlpacaOwnerOf returns the address that fielded an alpaca in the squad.
func (s *Squad) AlpacaOwnerOf(id uint64) (alpafi.Address, error) {
	attachment, err := s.storage.getAttachment(id)
	if err != nil {
		return alpafi.Address{}, err
	}
	if attachment.IsEmpty() {
		return alpafi.Address{}, reverts.NewRequireError("squad: original owner not found")
	}
	return attachment.Owner, nil
}

// TotalWeightedShare returns the pool denominator.
func (s *Squad) TotalWeightedShare() (*big.Int, error) {
	pool, err := s.storage.getPool()
	if err != nil {
		return nil, err
	}
	return pool.TotalWeightedShare, nil
}
