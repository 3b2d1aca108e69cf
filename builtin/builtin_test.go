// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin"
	"github.com/alpaworld/alpafi/builtin/alpacas"
	"github.com/alpaworld/alpafi/lvldb"
	"github.com/alpaworld/alpafi/state"
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestSystemWiring(t *testing.T) {
	kv, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(kv)
	sys := builtin.WithState(st)

	deployer := alpafi.BytesToAddress([]byte("deployer"))
	breeder := alpafi.BytesToAddress([]byte("breeder"))
	user := alpafi.BytesToAddress([]byte("user"))
	lpAddr := alpafi.BytesToAddress([]byte("lp"))

	// genesis wiring: the ledgers mint ALPA, the breeder mints alpacas
	require.NoError(t, sys.Alpa.SetMaster(alpafi.Address{}, deployer))
	require.NoError(t, sys.Alpa.SetMinter(deployer, builtin.MasterChefAddress, true))
	require.NoError(t, sys.Alpa.SetMinter(deployer, builtin.AlpacaSquadAddress, true))
	require.NoError(t, sys.Alpacas.SetMaster(alpafi.Address{}, breeder))

	require.NoError(t, sys.MasterChef.Initialize(deployer, builtin.AlpaAddress,
		alpafi.BytesToAddress([]byte("dev")), alpafi.BytesToAddress([]byte("community")), e18(100)))
	require.NoError(t, sys.Squad.Initialize(deployer, builtin.AlpaAddress, e18(100)))
	require.NoError(t, sys.AlpaReward.Initialize(builtin.AlpaAddress))

	// chef flow with an attached alpaca
	lp := sys.Token(lpAddr)
	require.NoError(t, lp.SetMaster(alpafi.Address{}, deployer))
	require.NoError(t, lp.Mint(deployer, user, e18(1)))
	require.NoError(t, lp.Approve(user, builtin.MasterChefAddress, e18(1)))

	pid, err := sys.MasterChef.AddPool(deployer, 0, 100, lpAddr)
	require.NoError(t, err)
	require.NoError(t, sys.MasterChef.Deposit(user, 0, pid, big.NewInt(10000)))

	require.NoError(t, sys.Alpacas.Mint(breeder, user, 1, 500, alpacas.Usable))
	data, _ := rlp.EncodeToBytes(pid)
	require.NoError(t, sys.Alpacas.SafeTransferFrom(user, user, builtin.MasterChefAddress, 0, []uint64{1}, data))

	info, err := sys.MasterChef.GetUser(pid, user)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.AlpacaID)

	// energy change reaches the chef through the registry
	require.NoError(t, sys.Alpacas.SetEnergy(breeder, 1, 1, 800))
	info, _ = sys.MasterChef.GetUser(pid, user)
	assert.Equal(t, uint32(800), info.Energy)
	bal, _ := sys.Alpa.BalanceOf(user)
	assert.Equal(t, e18(80), bal)

	// squad flow
	require.NoError(t, sys.Alpacas.Mint(breeder, user, 2, 300, alpacas.Usable))
	require.NoError(t, sys.Alpacas.SafeTransferFrom(user, user, builtin.AlpacaSquadAddress, 1, []uint64{2}, nil))
	require.NoError(t, sys.Squad.Claim(user, 2))
	bal, _ = sys.Alpa.BalanceOf(user)
	assert.Equal(t, e18(180), bal)

	// vault flow on the claimed ALPA
	require.NoError(t, sys.Alpa.Approve(user, builtin.AlpaRewardAddress, e18(10)))
	require.NoError(t, sys.AlpaReward.Enter(user, 2, e18(10)))
	shares, err := sys.AlpaReward.SharesOf(user)
	require.NoError(t, err)
	assert.Equal(t, e18(10), shares)

	// the whole system survives a commit/reload cycle
	require.NoError(t, st.Commit())
	sys2 := builtin.WithState(state.New(kv))
	info, err = sys2.MasterChef.GetUser(pid, user)
	require.NoError(t, err)
	assert.Equal(t, uint32(800), info.Energy)
	shares, err = sys2.AlpaReward.SharesOf(user)
	require.NoError(t, err)
	assert.Equal(t, e18(10), shares)
}

func TestNamedAddressesDistinct(t *testing.T) {
	addrs := []alpafi.Address{
		builtin.AlpaAddress,
		builtin.AlpacasAddress,
		builtin.MasterChefAddress,
		builtin.AlpacaSquadAddress,
		builtin.AlpaRewardAddress,
	}
	seen := make(map[alpafi.Address]bool)
	for _, addr := range addrs {
		assert.False(t, addr.IsZero())
		assert.False(t, seen[addr])
		seen[addr] = true
	}
}
