// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package masterchef

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/alpacas"
	"github.com/alpaworld/alpafi/builtin/reverts"
	"github.com/alpaworld/alpafi/builtin/token"
	"github.com/alpaworld/alpafi/lvldb"
	"github.com/alpaworld/alpafi/state"
)

var (
	owner     = alpafi.BytesToAddress([]byte("owner"))
	devFund   = alpafi.BytesToAddress([]byte("dev"))
	community = alpafi.BytesToAddress([]byte("community"))
	breeder   = alpafi.BytesToAddress([]byte("breeder"))
	userA     = alpafi.BytesToAddress([]byte("user-a"))
	userB     = alpafi.BytesToAddress([]byte("user-b"))
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type chefEnv struct {
	st   *state.State
	chef *MasterChef
	alpa *token.Token
	lp   *token.Token
	reg  *alpacas.Alpacas
}

// newChefEnv wires a chef with one LP pool at 100 alloc points and a
// 100e18/block emission, and funds both users with LP.
func newChefEnv(t *testing.T) *chefEnv {
	kv, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(kv)

	alpaAddr := alpafi.BytesToAddress([]byte("alpa"))
	lpAddr := alpafi.BytesToAddress([]byte("lp"))
	chefAddr := alpafi.BytesToAddress([]byte("chef"))

	reg := alpacas.New(alpafi.BytesToAddress([]byte("alpacas")), st)
	require.NoError(t, reg.SetMaster(alpafi.Address{}, breeder))

	chef := New(chefAddr, st, func(addr alpafi.Address) Token { return token.New(addr, st) }, reg)
	reg.SubscribeReceiver(chefAddr, chef)
	reg.SubscribeEnergy(chefAddr, chef)

	alpa := token.New(alpaAddr, st)
	require.NoError(t, alpa.SetMaster(alpafi.Address{}, chefAddr))

	lp := token.New(lpAddr, st)
	require.NoError(t, lp.SetMaster(alpafi.Address{}, owner))
	for _, user := range []alpafi.Address{userA, userB} {
		require.NoError(t, lp.Mint(owner, user, e18(1)))
		require.NoError(t, lp.Approve(user, chefAddr, e18(1)))
	}

	require.NoError(t, chef.Initialize(owner, alpaAddr, devFund, community, e18(100)))
	pid, err := chef.AddPool(owner, 0, 100, lpAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pid)

	return &chefEnv{st: st, chef: chef, alpa: alpa, lp: lp, reg: reg}
}

func (env *chefEnv) mintAlpaca(t *testing.T, to alpafi.Address, id uint64, energy uint32) {
	require.NoError(t, env.reg.Mint(breeder, to, id, energy, alpacas.Usable))
}

func (env *chefEnv) attach(t *testing.T, user alpafi.Address, blockNum uint32, id uint64, pid uint64) {
	data, err := rlp.EncodeToBytes(pid)
	require.NoError(t, err)
	require.NoError(t, env.reg.SafeTransferFrom(user, user, env.chef.Address(), blockNum, []uint64{id}, data))
}

func TestSingleUserClaim(t *testing.T) {
	env := newChefEnv(t)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))

	// deposit zero is the claim idiom
	require.NoError(t, env.chef.Deposit(userA, 1, 0, new(big.Int)))

	bal, err := env.alpa.BalanceOf(userA)
	require.NoError(t, err)
	assert.Equal(t, e18(80), bal)

	devBal, _ := env.alpa.BalanceOf(devFund)
	communityBal, _ := env.alpa.BalanceOf(community)
	assert.Equal(t, e18(10), devBal)
	assert.Equal(t, e18(10), communityBal)

	pool, err := env.chef.GetPool(0)
	require.NoError(t, err)
	expectedAcc := new(big.Int).Mul(e18(80), alpafi.RewardScale)
	expectedAcc.Div(expectedAcc, big.NewInt(10000))
	assert.Equal(t, expectedAcc, pool.Pool.AccRewardPerShare)
	assert.Equal(t, uint32(1), pool.Pool.LastRewardBlock)

	// claiming again in the same block pays nothing more
	require.NoError(t, env.chef.Deposit(userA, 1, 0, new(big.Int)))
	bal, _ = env.alpa.BalanceOf(userA)
	assert.Equal(t, e18(80), bal)
}

func TestTwoUserSplit(t *testing.T) {
	env := newChefEnv(t)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	require.NoError(t, env.chef.Deposit(userB, 1, 0, big.NewInt(10000)))

	require.NoError(t, env.chef.Deposit(userA, 2, 0, new(big.Int)))
	require.NoError(t, env.chef.Deposit(userB, 2, 0, new(big.Int)))

	balA, _ := env.alpa.BalanceOf(userA)
	balB, _ := env.alpa.BalanceOf(userB)
	assert.Equal(t, e18(120), balA) // block 1 in full, block 2 split
	assert.Equal(t, e18(40), balB)
}

func TestPendingRewardView(t *testing.T) {
	env := newChefEnv(t)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))

	pending, err := env.chef.PendingReward(1, 0, userA)
	require.NoError(t, err)
	assert.Equal(t, e18(80), pending)

	// the view must not advance the pool
	pool, _ := env.chef.GetPool(0)
	assert.Equal(t, uint32(0), pool.Pool.LastRewardBlock)
}

func TestAttachAlpaca(t *testing.T) {
	env := newChefEnv(t)
	env.mintAlpaca(t, userA, 7, 500)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	env.attach(t, userA, 1, 7, 0)

	// attaching settled and paid the block under weight 1
	bal, _ := env.alpa.BalanceOf(userA)
	assert.Equal(t, e18(80), bal)

	user, err := env.chef.GetUser(0, userA)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), user.AlpacaID)
	assert.Equal(t, uint32(500), user.Energy)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(10000), big.NewInt(500)), user.WeightedShare())

	pool, _ := env.chef.GetPool(0)
	assert.Equal(t, user.WeightedShare(), pool.Pool.TotalWeightedShare)

	holder, _ := env.reg.OwnerOf(7)
	assert.Equal(t, env.chef.Address(), holder)
	attacher, err := env.chef.AlpacaOwnerOf(7)
	require.NoError(t, err)
	assert.Equal(t, userA, attacher)

	// sole staker still earns the whole pool share afterwards
	require.NoError(t, env.chef.Deposit(userA, 2, 0, new(big.Int)))
	bal, _ = env.alpa.BalanceOf(userA)
	assert.Equal(t, e18(160), bal)
}

func TestBatchAttachRejected(t *testing.T) {
	env := newChefEnv(t)
	env.mintAlpaca(t, userA, 1, 100)
	env.mintAlpaca(t, userA, 2, 100)

	data, _ := rlp.EncodeToBytes(uint64(0))
	err := env.reg.SafeTransferFrom(userA, userA, env.chef.Address(), 1, []uint64{1, 2}, data)
	assert.True(t, reverts.IsRevertErr(err))

	// the whole safe transfer rolled back
	holder, _ := env.reg.OwnerOf(1)
	assert.Equal(t, userA, holder)
}

func TestAttachSwapsExisting(t *testing.T) {
	env := newChefEnv(t)
	env.mintAlpaca(t, userA, 1, 100)
	env.mintAlpaca(t, userA, 2, 300)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	env.attach(t, userA, 1, 1, 0)
	env.attach(t, userA, 2, 2, 0)

	// the first alpaca went back to its attacher
	holder, _ := env.reg.OwnerOf(1)
	assert.Equal(t, userA, holder)
	_, err := env.chef.AlpacaOwnerOf(1)
	assert.True(t, reverts.IsRevertErr(err))

	user, _ := env.chef.GetUser(0, userA)
	assert.Equal(t, uint64(2), user.AlpacaID)
	assert.Equal(t, uint32(300), user.Energy)
}

func TestRetrieveAlpaca(t *testing.T) {
	env := newChefEnv(t)
	env.mintAlpaca(t, userA, 1, 500)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	env.attach(t, userA, 0, 1, 0)

	require.NoError(t, env.chef.RetrieveAlpaca(userA, 1, 0))

	// settled and paid under the attached weight before detaching
	bal, _ := env.alpa.BalanceOf(userA)
	assert.Equal(t, e18(80), bal)

	holder, _ := env.reg.OwnerOf(1)
	assert.Equal(t, userA, holder)

	user, _ := env.chef.GetUser(0, userA)
	assert.Equal(t, uint64(0), user.AlpacaID)
	assert.Equal(t, big.NewInt(10000), user.WeightedShare())

	pool, _ := env.chef.GetPool(0)
	assert.Equal(t, big.NewInt(10000), pool.Pool.TotalWeightedShare)
}

func TestEnergyChange(t *testing.T) {
	env := newChefEnv(t)
	env.mintAlpaca(t, userA, 1, 500)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	env.attach(t, userA, 0, 1, 0)

	// breeding raises the energy one block later; the block settles and pays
	// under the old weight first
	require.NoError(t, env.reg.SetEnergy(breeder, 1, 1, 800))

	bal, _ := env.alpa.BalanceOf(userA)
	assert.Equal(t, e18(80), bal)

	user, _ := env.chef.GetUser(0, userA)
	assert.Equal(t, uint32(800), user.Energy)
	pool, _ := env.chef.GetPool(0)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(10000), big.NewInt(800)), pool.Pool.TotalWeightedShare)

	// pending does not retroactively change
	pending, err := env.chef.PendingReward(1, 0, userA)
	require.NoError(t, err)
	assert.Equal(t, 0, pending.Sign())
}

func TestEnergyChangeAuth(t *testing.T) {
	env := newChefEnv(t)

	err := env.chef.OnEnergyChanged(userA, 1, 1, 100, 200)
	assert.True(t, reverts.IsRevertErr(err))

	// unattached alpaca rejects with the original-owner error
	err = env.chef.OnEnergyChanged(env.reg.Address(), 1, 99, 100, 200)
	assert.True(t, reverts.IsRevertErr(err))
	assert.Contains(t, err.Error(), "original owner not found")
}

func TestWithdraw(t *testing.T) {
	env := newChefEnv(t)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))

	err := env.chef.Withdraw(userA, 1, 0, big.NewInt(20000))
	assert.True(t, reverts.IsRevertErr(err))

	require.NoError(t, env.chef.Withdraw(userA, 1, 0, big.NewInt(10000)))

	bal, _ := env.alpa.BalanceOf(userA)
	assert.Equal(t, e18(80), bal)

	lpBal, _ := env.lp.BalanceOf(userA)
	assert.Equal(t, e18(1), lpBal)

	pool, _ := env.chef.GetPool(0)
	assert.Equal(t, 0, pool.Pool.TotalWeightedShare.Sign())
}

func TestEmergencyWithdraw(t *testing.T) {
	env := newChefEnv(t)
	env.mintAlpaca(t, userA, 1, 500)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	env.attach(t, userA, 0, 1, 0)

	require.NoError(t, env.chef.Pause(owner))
	err := env.chef.Deposit(userA, 1, 0, new(big.Int))
	assert.True(t, reverts.IsRevertErr(err))

	require.NoError(t, env.chef.EmergencyWithdraw(userA, 1, 0))

	// stake and alpaca returned, reward forfeited
	lpBal, _ := env.lp.BalanceOf(userA)
	assert.Equal(t, e18(1), lpBal)
	holder, _ := env.reg.OwnerOf(1)
	assert.Equal(t, userA, holder)
	bal, _ := env.alpa.BalanceOf(userA)
	assert.Equal(t, 0, bal.Sign())

	user, _ := env.chef.GetUser(0, userA)
	assert.Equal(t, 0, user.Amount.Sign())
	assert.Equal(t, uint64(0), user.AlpacaID)
	pool, _ := env.chef.GetPool(0)
	assert.Equal(t, 0, pool.Pool.TotalWeightedShare.Sign())
}

func TestMultiPoolProportionality(t *testing.T) {
	env := newChefEnv(t)

	lp2Addr := alpafi.BytesToAddress([]byte("lp2"))
	lp2 := token.New(lp2Addr, env.st)
	require.NoError(t, lp2.SetMaster(alpafi.Address{}, owner))
	require.NoError(t, lp2.Mint(owner, userB, e18(1)))
	require.NoError(t, lp2.Approve(userB, env.chef.Address(), e18(1)))

	// pool 0 already has 100 points; pool 1 gets 300, a 1:3 split
	pid, err := env.chef.AddPool(owner, 0, 300, lp2Addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pid)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	require.NoError(t, env.chef.Deposit(userB, 0, 1, big.NewInt(10000)))

	pendingA, err := env.chef.PendingReward(4, 0, userA)
	require.NoError(t, err)
	pendingB, err := env.chef.PendingReward(4, 1, userB)
	require.NoError(t, err)

	// 4 blocks at 100e18, 80% to pools, split 25/75
	assert.Equal(t, e18(80), pendingA)
	assert.Equal(t, e18(240), pendingB)
}

func TestSetPoolMassSettles(t *testing.T) {
	env := newChefEnv(t)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))

	// halving the emission rate at block 2 keeps blocks 1-2 at the old rate
	require.NoError(t, env.chef.SetRewardPerBlock(owner, 2, e18(50)))
	require.NoError(t, env.chef.Deposit(userA, 3, 0, new(big.Int)))

	bal, _ := env.alpa.BalanceOf(userA)
	assert.Equal(t, e18(80+80+40), bal)
}

func TestAdminAuth(t *testing.T) {
	env := newChefEnv(t)

	_, err := env.chef.AddPool(userA, 0, 10, alpafi.BytesToAddress([]byte("x")))
	assert.True(t, reverts.IsRevertErr(err))
	assert.True(t, reverts.IsRevertErr(env.chef.SetPool(userA, 0, 0, 10)))
	assert.True(t, reverts.IsRevertErr(env.chef.SetRewardPerBlock(userA, 0, e18(1))))
	assert.True(t, reverts.IsRevertErr(env.chef.Pause(userA)))
	assert.True(t, reverts.IsRevertErr(env.chef.SetDevAddress(userA, userA)))

	err = env.chef.Initialize(owner, alpafi.BytesToAddress([]byte("alpa")), devFund, community, e18(1))
	assert.True(t, reverts.IsRevertErr(err))
}

func TestUnknownPool(t *testing.T) {
	env := newChefEnv(t)

	err := env.chef.Deposit(userA, 0, 9, big.NewInt(1))
	assert.True(t, reverts.IsRevertErr(err))
	_, err = env.chef.GetPool(9)
	assert.True(t, reverts.IsRevertErr(err))
}

func TestConservation(t *testing.T) {
	env := newChefEnv(t)
	env.mintAlpaca(t, userA, 1, 500)

	require.NoError(t, env.chef.Deposit(userA, 0, 0, big.NewInt(10000)))
	require.NoError(t, env.chef.Deposit(userB, 1, 0, big.NewInt(4000)))
	env.attach(t, userA, 2, 1, 0)
	require.NoError(t, env.chef.Withdraw(userB, 3, 0, big.NewInt(1500)))

	userAInfo, _ := env.chef.GetUser(0, userA)
	userBInfo, _ := env.chef.GetUser(0, userB)
	pool, _ := env.chef.GetPool(0)

	sum := new(big.Int).Add(userAInfo.WeightedShare(), userBInfo.WeightedShare())
	assert.Equal(t, sum, pool.Pool.TotalWeightedShare)

	// every position re-prices cleanly
	for _, user := range []alpafi.Address{userA, userB} {
		pending, err := env.chef.PendingReward(3, 0, user)
		require.NoError(t, err)
		assert.True(t, pending.Sign() >= 0)
	}
}
