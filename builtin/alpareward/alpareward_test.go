// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package alpareward

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/reverts"
	"github.com/alpaworld/alpafi/builtin/token"
	"github.com/alpaworld/alpafi/lvldb"
	"github.com/alpaworld/alpafi/state"
)

var (
	master = alpafi.BytesToAddress([]byte("master"))
	userA  = alpafi.BytesToAddress([]byte("user-a"))
	userB  = alpafi.BytesToAddress([]byte("user-b"))
)

func newTestVault(t *testing.T) (*Vault, *token.Token) {
	kv, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(kv)

	alpaAddr := alpafi.BytesToAddress([]byte("alpa"))
	vaultAddr := alpafi.BytesToAddress([]byte("vault"))

	alpa := token.New(alpaAddr, st)
	require.NoError(t, alpa.SetMaster(alpafi.Address{}, master))

	vault := New(vaultAddr, st, func(addr alpafi.Address) Token { return token.New(addr, st) })
	require.NoError(t, vault.Initialize(alpaAddr))

	for _, user := range []alpafi.Address{userA, userB} {
		require.NoError(t, alpa.Mint(master, user, big.NewInt(1000)))
		require.NoError(t, alpa.Approve(user, vaultAddr, big.NewInt(1000)))
	}
	return vault, alpa
}

func TestRoundTrip(t *testing.T) {
	vault, alpa := newTestVault(t)

	require.NoError(t, vault.Enter(userA, 0, big.NewInt(100)))

	shares, err := vault.SharesOf(userA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), shares)

	require.NoError(t, vault.Leave(userA, 1, big.NewInt(100)))

	bal, _ := alpa.BalanceOf(userA)
	assert.Equal(t, big.NewInt(1000), bal)
	total, _ := vault.TotalShares()
	assert.Equal(t, 0, total.Sign())
}

func TestFeeInjectionRaisesPrice(t *testing.T) {
	vault, alpa := newTestVault(t)

	require.NoError(t, vault.Enter(userA, 0, big.NewInt(100)))

	// fees land in the vault without minting shares
	require.NoError(t, alpa.Mint(master, vault.Address(), big.NewInt(50)))

	price, err := vault.PricePerShare()
	require.NoError(t, err)
	expected := new(big.Int).Mul(big.NewInt(150), alpafi.RewardScale)
	expected.Div(expected, big.NewInt(100))
	assert.Equal(t, expected, price)

	// a later depositor mints at the higher ratio
	require.NoError(t, vault.Enter(userB, 1, big.NewInt(150)))
	sharesB, _ := vault.SharesOf(userB)
	assert.Equal(t, big.NewInt(100), sharesB)

	// the early depositor redeems the fee slice
	require.NoError(t, vault.Leave(userA, 2, big.NewInt(100)))
	bal, _ := alpa.BalanceOf(userA)
	assert.Equal(t, big.NewInt(1050), bal)
}

func TestLeaveChecks(t *testing.T) {
	vault, _ := newTestVault(t)

	require.NoError(t, vault.Enter(userA, 0, big.NewInt(100)))

	err := vault.Leave(userA, 1, big.NewInt(200))
	assert.True(t, reverts.IsRevertErr(err))
	err = vault.Leave(userA, 1, new(big.Int))
	assert.True(t, reverts.IsRevertErr(err))
	err = vault.Enter(userA, 1, new(big.Int))
	assert.True(t, reverts.IsRevertErr(err))
}

func TestInitializeOnce(t *testing.T) {
	vault, _ := newTestVault(t)
	err := vault.Initialize(alpafi.BytesToAddress([]byte("other")))
	assert.True(t, reverts.IsRevertErr(err))
}
