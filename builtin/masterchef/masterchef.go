// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package masterchef implements the multi-pool farming ledger. Users stake
// fungible tokens into pools sharing one per-block ALPA emission split by
// allocation points, and may attach a single alpaca per pool to multiply
// their weighted share by the alpaca's energy.
package masterchef

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/farming"
	"github.com/alpaworld/alpafi/builtin/reverts"
	"github.com/alpaworld/alpafi/log"
	"github.com/alpaworld/alpafi/state"
)

var logger = log.WithContext("pkg", "masterchef")

// Token is the fungible-ledger capability the chef consumes, for both the
// reward token and every staked token.
type Token interface {
	Address() alpafi.Address
	BalanceOf(addr alpafi.Address) (*big.Int, error)
	Transfer(from, to alpafi.Address, amount *big.Int) error
	TransferFrom(spender, from, to alpafi.Address, amount *big.Int) error
	Mint(caller, to alpafi.Address, amount *big.Int) error
}

// TokenResolver returns the fungible ledger bound to an address.
type TokenResolver func(alpafi.Address) Token

// AlpacaRegistry is the breeding-subsystem capability the chef consumes.
type AlpacaRegistry interface {
	Address() alpafi.Address
	Stats(id uint64) (energy uint32, usable bool, err error)
	OwnerOf(id uint64) (alpafi.Address, error)
	Transfer(operator, from, to alpafi.Address, id uint64) error
}

// MasterChef is the multi-pool ledger bound to a contract address.
// Not goroutine safe; mutating calls are strictly sequential.
type MasterChef struct {
	addr    alpafi.Address
	state   *state.State
	storage *chefStorage

	tokens   TokenResolver
	registry AlpacaRegistry
	guard    farming.Guard
}

// New creates the ledger bound to the given address.
func New(addr alpafi.Address, st *state.State, tokens TokenResolver, registry AlpacaRegistry) *MasterChef {
	return &MasterChef{
		addr:     addr,
		state:    st,
		storage:  newChefStorage(addr, st),
		tokens:   tokens,
		registry: registry,
	}
}

// Address returns the ledger's contract address.
func (m *MasterChef) Address() alpafi.Address {
	return m.addr
}

// run executes a mutating entry point under the re-entrancy guard, reverting
// every effect on error.
func (m *MasterChef) run(fn func() error) error {
	release, err := m.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	checkpoint := m.state.NewCheckpoint()
	if err := fn(); err != nil {
		m.state.RevertTo(checkpoint)
		return err
	}
	return nil
}

// Initialize writes the genesis parameters. It can run once.
func (m *MasterChef) Initialize(owner, rewardToken, devAddr, communityAddr alpafi.Address, rewardPerBlock *big.Int) error {
	return m.run(func() error {
		cur, err := m.storage.getAddress(slotOwner)
		if err != nil {
			return err
		}
		if !cur.IsZero() {
			return reverts.NewRequireError("masterchef: already initialized")
		}
		if owner.IsZero() || rewardToken.IsZero() {
			return reverts.NewRequireError("masterchef: zero owner or reward token")
		}
		if rewardPerBlock.Sign() < 0 {
			return reverts.NewRequireError("masterchef: negative reward rate")
		}
		if err := m.storage.setAddress(slotOwner, owner); err != nil {
			return err
		}
		if err := m.storage.setAddress(slotRewardToken, rewardToken); err != nil {
			return err
		}
		if err := m.storage.setAddress(slotDevAddress, devAddr); err != nil {
			return err
		}
		if err := m.storage.setAddress(slotCommunityAddress, communityAddr); err != nil {
			return err
		}
		m.storage.rewardPerBlock.Set(rewardPerBlock)
		return nil
	})
}

// Owner returns the admin address.
func (m *MasterChef) Owner() (alpafi.Address, error) {
	return m.storage.getAddress(slotOwner)
}

func (m *MasterChef) requireOwner(caller alpafi.Address) error {
	owner, err := m.storage.getAddress(slotOwner)
	if err != nil {
		return err
	}
	if owner.IsZero() || caller != owner {
		return reverts.NewRequireError("masterchef: not owner")
	}
	return nil
}

func (m *MasterChef) requireNotPaused() error {
	paused, err := m.storage.getPaused()
	if err != nil {
		return err
	}
	if paused {
		return reverts.NewRequireError("masterchef: paused")
	}
	return nil
}

func (m *MasterChef) rewardLedger() (Token, error) {
	addr, err := m.storage.getAddress(slotRewardToken)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, reverts.NewRequireError("masterchef: not initialized")
	}
	return m.tokens(addr), nil
}

// settlePool advances one pool's accumulator, minting the elapsed emission
// split between dev, community and the pool's custody.
func (m *MasterChef) settlePool(pool *PoolInfo, nowBlock uint32) error {
	rate, err := m.storage.rewardPerBlock.Get()
	if err != nil {
		return err
	}
	totalAlloc, err := m.storage.totalAllocPoint.Get()
	if err != nil {
		return err
	}
	emission := farming.Emission{RatePerBlock: rate}
	return pool.Pool.Settle(nowBlock, func(elapsed uint32) (*big.Int, error) {
		due := emission.PoolShare(elapsed, pool.AllocPoint, totalAlloc)
		if due.Sign() == 0 {
			return due, nil
		}
		dev, community, share := farming.Split(due, alpafi.DevRewardPercent, alpafi.CommunityRewardPercent)
		reward, err := m.rewardLedger()
		if err != nil {
			return nil, err
		}
		devAddr, err := m.storage.getAddress(slotDevAddress)
		if err != nil {
			return nil, err
		}
		communityAddr, err := m.storage.getAddress(slotCommunityAddress)
		if err != nil {
			return nil, err
		}
		if dev.Sign() > 0 && !devAddr.IsZero() {
			if err := reward.Mint(m.addr, devAddr, dev); err != nil {
				return nil, err
			}
		}
		if community.Sign() > 0 && !communityAddr.IsZero() {
			if err := reward.Mint(m.addr, communityAddr, community); err != nil {
				return nil, err
			}
		}
		if err := reward.Mint(m.addr, m.addr, share); err != nil {
			return nil, err
		}
		farming.MeterSettlement("masterchef")
		logger.Debug("pool settled", "block", nowBlock, "emitted", due)
		return share, nil
	})
}

func (m *MasterChef) massSettle(nowBlock uint32) error {
	count, err := m.storage.getPoolCount()
	if err != nil {
		return err
	}
	for pid := uint64(0); pid < count; pid++ {
		pool, err := m.storage.getPool(pid)
		if err != nil {
			return err
		}
		if err := m.settlePool(pool, nowBlock); err != nil {
			return err
		}
		if err := m.storage.setPool(pid, pool); err != nil {
			return err
		}
	}
	return nil
}

// AddPool registers a new staking pool. Owner only. Every pool is settled
// first so the new allocation split only applies from this block on.
func (m *MasterChef) AddPool(caller alpafi.Address, blockNum uint32, allocPoint uint64, stakedToken alpafi.Address) (pid uint64, err error) {
	err = m.run(func() error {
		if err := m.requireOwner(caller); err != nil {
			return err
		}
		if stakedToken.IsZero() {
			return reverts.NewRequireError("masterchef: zero staked token")
		}
		if err := m.massSettle(blockNum); err != nil {
			return err
		}
		pid, err = m.storage.getPoolCount()
		if err != nil {
			return err
		}
		pool := (&PoolInfo{StakedToken: stakedToken, AllocPoint: allocPoint}).norm()
		pool.Pool.LastRewardBlock = blockNum
		if err := m.storage.setPool(pid, pool); err != nil {
			return err
		}
		m.storage.setPoolCount(pid + 1)
		return m.storage.totalAllocPoint.Add(new(big.Int).SetUint64(allocPoint))
	})
	return
}

// SetPool changes a pool's allocation points. Owner only; mass-settles first
// so the old split applies exactly up to this block.
func (m *MasterChef) SetPool(caller alpafi.Address, blockNum uint32, pid uint64, allocPoint uint64) error {
	return m.run(func() error {
		if err := m.requireOwner(caller); err != nil {
			return err
		}
		pool, err := m.getExistingPool(pid)
		if err != nil {
			return err
		}
		if err := m.massSettle(blockNum); err != nil {
			return err
		}
		if err := m.storage.totalAllocPoint.Sub(new(big.Int).SetUint64(pool.AllocPoint)); err != nil {
			return err
		}
		if err := m.storage.totalAllocPoint.Add(new(big.Int).SetUint64(allocPoint)); err != nil {
			return err
		}
		pool.AllocPoint = allocPoint
		return m.storage.setPool(pid, pool)
	})
}

// SetRewardPerBlock changes the global emission rate. Owner only.
func (m *MasterChef) SetRewardPerBlock(caller alpafi.Address, blockNum uint32, rate *big.Int) error {
	return m.run(func() error {
		if err := m.requireOwner(caller); err != nil {
			return err
		}
		if rate.Sign() < 0 {
			return reverts.NewRequireError("masterchef: negative reward rate")
		}
		if err := m.massSettle(blockNum); err != nil {
			return err
		}
		m.storage.rewardPerBlock.Set(rate)
		return nil
	})
}

// SetDevAddress changes the dev-share recipient. Owner only.
func (m *MasterChef) SetDevAddress(caller, addr alpafi.Address) error {
	return m.run(func() error {
		if err := m.requireOwner(caller); err != nil {
			return err
		}
		return m.storage.setAddress(slotDevAddress, addr)
	})
}

// SetCommunityAddress changes the community-share recipient. Owner only.
func (m *MasterChef) SetCommunityAddress(caller, addr alpafi.Address) error {
	return m.run(func() error {
		if err := m.requireOwner(caller); err != nil {
			return err
		}
		return m.storage.setAddress(slotCommunityAddress, addr)
	})
}

// Pause blocks mutating user entry points except EmergencyWithdraw. Owner only.
func (m *MasterChef) Pause(caller alpafi.Address) error {
	return m.run(func() error {
		if err := m.requireOwner(caller); err != nil {
			return err
		}
		return m.storage.setPaused(true)
	})
}

// Unpause re-enables the ledger. Owner only.
func (m *MasterChef) Unpause(caller alpafi.Address) error {
	return m.run(func() error {
		if err := m.requireOwner(caller); err != nil {
			return err
		}
		return m.storage.setPaused(false)
	})
}

// SettlePool advances one pool to the current block. Anyone may call.
func (m *MasterChef) SettlePool(blockNum uint32, pid uint64) error {
	return m.run(func() error {
		pool, err := m.getExistingPool(pid)
		if err != nil {
			return err
		}
		if err := m.settlePool(pool, blockNum); err != nil {
			return err
		}
		return m.storage.setPool(pid, pool)
	})
}

// MassSettle advances every pool to the current block. Anyone may call.
func (m *MasterChef) MassSettle(blockNum uint32) error {
	return m.run(func() error {
		return m.massSettle(blockNum)
	})
}

func (m *MasterChef) getExistingPool(pid uint64) (*PoolInfo, error) {
	pool, err := m.storage.getPool(pid)
	if err != nil {
		return nil, err
	}
	if pool.IsEmpty() {
		return nil, reverts.NewRequireError("masterchef: unknown pool")
	}
	return pool, nil
}

// payReward transfers pending reward out of the chef's custody, capped to
// the custody balance. A rounding shortfall is forfeited, never a revert.
func (m *MasterChef) payReward(to alpafi.Address, amount *big.Int) error {
	reward, err := m.rewardLedger()
	if err != nil {
		return err
	}
	balance, err := reward.BalanceOf(m.addr)
	if err != nil {
		return err
	}
	if amount.Cmp(balance) > 0 {
		amount = balance
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := reward.Transfer(m.addr, to, amount); err != nil {
		return err
	}
	farming.MeterPayout("masterchef")
	return nil
}

// settleAndPay runs steps 1-3 of the position update protocol: settle the
// pool, compute the user's pending reward under the current weight, pay it.
func (m *MasterChef) settleAndPay(pool *PoolInfo, user *UserInfo, to alpafi.Address, blockNum uint32) error {
	if err := m.settlePool(pool, blockNum); err != nil {
		return err
	}
	pending, err := farming.PendingReward(user.WeightedShare(), pool.Pool.AccRewardPerShare, user.RewardDebt)
	if err != nil {
		return err
	}
	if pending.Sign() > 0 {
		return m.payReward(to, pending)
	}
	return nil
}

// Deposit stakes amount of the pool's token. A zero amount is the claim
// idiom: accrued reward is paid and nothing else changes.
func (m *MasterChef) Deposit(caller alpafi.Address, blockNum uint32, pid uint64, amount *big.Int) error {
	return m.run(func() error {
		if err := m.requireNotPaused(); err != nil {
			return err
		}
		if amount.Sign() < 0 {
			return reverts.NewRequireError("masterchef: negative amount")
		}
		pool, err := m.getExistingPool(pid)
		if err != nil {
			return err
		}
		user, err := m.storage.getUser(pid, caller)
		if err != nil {
			return err
		}
		if err := m.settleAndPay(pool, user, caller, blockNum); err != nil {
			return err
		}
		if amount.Sign() > 0 {
			staked := m.tokens(pool.StakedToken)
			if err := staked.TransferFrom(m.addr, caller, m.addr, amount); err != nil {
				return err
			}
			oldShare := user.WeightedShare()
			user.Amount = new(big.Int).Add(user.Amount, amount)
			pool.Pool.ShiftWeighted(oldShare, user.WeightedShare())
		}
		user.RewardDebt = farming.RewardDebt(user.WeightedShare(), pool.Pool.AccRewardPerShare)
		if err := m.storage.setUser(pid, caller, user); err != nil {
			return err
		}
		return m.storage.setPool(pid, pool)
	})
}

// Withdraw unstakes amount of the pool's token, paying accrued reward first.
func (m *MasterChef) Withdraw(caller alpafi.Address, blockNum uint32, pid uint64, amount *big.Int) error {
	return m.run(func() error {
		if err := m.requireNotPaused(); err != nil {
			return err
		}
		if amount.Sign() < 0 {
			return reverts.NewRequireError("masterchef: negative amount")
		}
		pool, err := m.getExistingPool(pid)
		if err != nil {
			return err
		}
		user, err := m.storage.getUser(pid, caller)
		if err != nil {
			return err
		}
		if user.Amount.Cmp(amount) < 0 {
			return reverts.NewRequireError("masterchef: insufficient stake")
		}
		if err := m.settleAndPay(pool, user, caller, blockNum); err != nil {
			return err
		}
		if amount.Sign() > 0 {
			oldShare := user.WeightedShare()
			user.Amount = new(big.Int).Sub(user.Amount, amount)
			pool.Pool.ShiftWeighted(oldShare, user.WeightedShare())
			staked := m.tokens(pool.StakedToken)
			if err := staked.Transfer(m.addr, caller, amount); err != nil {
				return err
			}
		}
		user.RewardDebt = farming.RewardDebt(user.WeightedShare(), pool.Pool.AccRewardPerShare)
		if err := m.storage.setUser(pid, caller, user); err != nil {
			return err
		}
		return m.storage.setPool(pid, pool)
	})
}

// EmergencyWithdraw returns the full stake and any attached alpaca without
// settling; accrued reward is forfeited. Works while paused.
func (m *MasterChef) EmergencyWithdraw(caller alpafi.Address, blockNum uint32, pid uint64) error {
	return m.run(func() error {
		pool, err := m.getExistingPool(pid)
		if err != nil {
			return err
		}
		user, err := m.storage.getUser(pid, caller)
		if err != nil {
			return err
		}
		oldShare := user.WeightedShare()
		amount := user.Amount
		alpacaID := user.AlpacaID

		user.Amount = new(big.Int)
		user.AlpacaID = 0
		user.Energy = 0
		user.RewardDebt = new(big.Int)
		pool.Pool.ShiftWeighted(oldShare, new(big.Int))

		if amount.Sign() > 0 {
			staked := m.tokens(pool.StakedToken)
			if err := staked.Transfer(m.addr, caller, amount); err != nil {
				return err
			}
		}
		if alpacaID != 0 {
			if err := m.returnAlpaca(alpacaID, caller); err != nil {
				return err
			}
		}
		if err := m.storage.setUser(pid, caller, user); err != nil {
			return err
		}
		logger.Debug("emergency withdraw", "pid", pid, "user", caller, "amount", amount, "block", blockNum)
		return m.storage.setPool(pid, pool)
	})
}

// returnAlpaca sends an attached alpaca back to its recorded attacher and
// clears the attachment.
func (m *MasterChef) returnAlpaca(id uint64, expectOwner alpafi.Address) error {
	attachment, err := m.storage.getAttachment(id)
	if err != nil {
		return err
	}
	if attachment.IsEmpty() || attachment.Owner != expectOwner {
		return reverts.NewRequireError("masterchef: original owner not found")
	}
	if err := m.registry.Transfer(m.addr, m.addr, attachment.Owner, id); err != nil {
		return err
	}
	return m.storage.deleteAttachment(id)
}

// RetrieveAlpaca detaches the caller's alpaca from a pool: reward is settled
// and paid under the old weight, the weight drops back to 1 and the alpaca
// goes back to the caller.
func (m *MasterChef) RetrieveAlpaca(caller alpafi.Address, blockNum uint32, pid uint64) error {
	return m.run(func() error {
		if err := m.requireNotPaused(); err != nil {
			return err
		}
		pool, err := m.getExistingPool(pid)
		if err != nil {
			return err
		}
		user, err := m.storage.getUser(pid, caller)
		if err != nil {
			return err
		}
		if user.AlpacaID == 0 {
			return reverts.NewRequireError("masterchef: no alpaca attached")
		}
		if err := m.settleAndPay(pool, user, caller, blockNum); err != nil {
			return err
		}
		oldShare := user.WeightedShare()
		id := user.AlpacaID
		user.AlpacaID = 0
		user.Energy = 0
		pool.Pool.ShiftWeighted(oldShare, user.WeightedShare())
		user.RewardDebt = farming.RewardDebt(user.WeightedShare(), pool.Pool.AccRewardPerShare)

		if err := m.returnAlpaca(id, caller); err != nil {
			return err
		}
		if err := m.storage.setUser(pid, caller, user); err != nil {
			return err
		}
		return m.storage.setPool(pid, pool)
	})
}

// OnAlpacaReceived is the registry's receive hook: attaching an alpaca to a
// pool. Exactly one alpaca per transfer; data carries the rlp-encoded pool
// id. If the user already has one attached, the position is settled and paid
// under the old weight and the old alpaca goes back to its attacher.
func (m *MasterChef) OnAlpacaReceived(operator, from alpafi.Address, blockNum uint32, ids []uint64, data []byte) error {
	return m.run(func() error {
		if err := m.requireNotPaused(); err != nil {
			return err
		}
		if len(ids) != 1 {
			return reverts.NewRequireError("masterchef: batch attach not supported")
		}
		id := ids[0]
		var pid uint64
		if err := rlp.DecodeBytes(data, &pid); err != nil {
			return reverts.NewRequireError("masterchef: malformed attach data")
		}
		energy, usable, err := m.registry.Stats(id)
		if err != nil {
			return err
		}
		if !usable || energy == 0 {
			return reverts.NewRequireError("masterchef: alpaca not usable")
		}
		pool, err := m.getExistingPool(pid)
		if err != nil {
			return err
		}
		user, err := m.storage.getUser(pid, from)
		if err != nil {
			return err
		}
		if err := m.settleAndPay(pool, user, from, blockNum); err != nil {
			return err
		}
		oldShare := user.WeightedShare()
		if user.AlpacaID != 0 {
			if err := m.returnAlpaca(user.AlpacaID, from); err != nil {
				return err
			}
		}
		user.AlpacaID = id
		user.Energy = energy
		pool.Pool.ShiftWeighted(oldShare, user.WeightedShare())
		user.RewardDebt = farming.RewardDebt(user.WeightedShare(), pool.Pool.AccRewardPerShare)

		if err := m.storage.setAttachment(id, &Attachment{Owner: from, Pid: pid}); err != nil {
			return err
		}
		if err := m.storage.setUser(pid, from, user); err != nil {
			return err
		}
		logger.Debug("alpaca attached", "pid", pid, "id", id, "energy", energy, "operator", operator)
		return m.storage.setPool(pid, pool)
	})
}

// OnEnergyChanged is the registry's notification that an attached alpaca's
// energy changed. The position settles and pays under the old weight, then
// re-prices at the new one. Only the registry may call.
func (m *MasterChef) OnEnergyChanged(caller alpafi.Address, blockNum uint32, id uint64, oldEnergy, newEnergy uint32) error {
	return m.run(func() error {
		if caller != m.registry.Address() {
			return reverts.NewRequireError("masterchef: not breeding registry")
		}
		attachment, err := m.storage.getAttachment(id)
		if err != nil {
			return err
		}
		if attachment.IsEmpty() {
			return reverts.NewRequireError("masterchef: original owner not found")
		}
		pool, err := m.getExistingPool(attachment.Pid)
		if err != nil {
			return err
		}
		user, err := m.storage.getUser(attachment.Pid, attachment.Owner)
		if err != nil {
			return err
		}
		if user.AlpacaID != id {
			return reverts.NewRequireError("masterchef: original owner not found")
		}
		if err := m.settleAndPay(pool, user, attachment.Owner, blockNum); err != nil {
			return err
		}
		oldShare := user.WeightedShare()
		user.Energy = newEnergy
		pool.Pool.ShiftWeighted(oldShare, user.WeightedShare())
		user.RewardDebt = farming.RewardDebt(user.WeightedShare(), pool.Pool.AccRewardPerShare)

		if err := m.storage.setUser(attachment.Pid, attachment.Owner, user); err != nil {
			return err
		}
		logger.Debug("energy change applied", "pid", attachment.Pid, "id", id, "old", oldEnergy, "new", newEnergy)
		return m.storage.setPool(attachment.Pid, pool)
	})
}

// PendingReward previews the reward a user would receive by claiming at
// blockNum, without mutating any state.
func (m *MasterChef) PendingReward(blockNum uint32, pid uint64, addr alpafi.Address) (*big.Int, error) {
	pool, err := m.getExistingPool(pid)
	if err != nil {
		return nil, err
	}
	user, err := m.storage.getUser(pid, addr)
	if err != nil {
		return nil, err
	}
	rate, err := m.storage.rewardPerBlock.Get()
	if err != nil {
		return nil, err
	}
	totalAlloc, err := m.storage.totalAllocPoint.Get()
	if err != nil {
		return nil, err
	}
	emission := farming.Emission{RatePerBlock: rate}
	acc, err := pool.Pool.PreviewAcc(blockNum, func(elapsed uint32) (*big.Int, error) {
		due := emission.PoolShare(elapsed, pool.AllocPoint, totalAlloc)
		_, _, share := farming.Split(due, alpafi.DevRewardPercent, alpafi.CommunityRewardPercent)
		return share, nil
	})
	if err != nil {
		return nil, err
	}
	return farming.PendingReward(user.WeightedShare(), acc, user.RewardDebt)
}

// PoolLength returns the number of registered pools.
func (m *MasterChef) PoolLength() (uint64, error) {
	return m.storage.getPoolCount()
}

// GetPool returns a pool record.
func (m *MasterChef) GetPool(pid uint64) (*PoolInfo, error) {
	return m.getExistingPool(pid)
}

// GetUser returns a user's position in a pool. Unknown users read as a
// zero-valued position.
func (m *MasterChef) GetUser(pid uint64, addr alpafi.Address) (*UserInfo, error) {
	return m.storage.getUser(pid, addr)
}

// AlpacaOwnerOf returns the address that attached an alpaca to the chef.
func (m *MasterChef) AlpacaOwnerOf(id uint64) (alpafi.Address, error) {
	attachment, err := m.storage.getAttachment(id)
	if err != nil {
		return alpafi.Address{}, err
	}
	if attachment.IsEmpty() {
		return alpafi.Address{}, reverts.NewRequireError("masterchef: original owner not found")
	}
	return attachment.Owner, nil
}
