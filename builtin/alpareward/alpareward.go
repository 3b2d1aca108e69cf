// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package alpareward implements the reward-sharing vault. Depositors mint
// shares against ALPA at the current underlying-per-share ratio; fees
// injected into the vault's balance raise the redemption value of existing
// shares without minting new ones. No accumulator, no emission schedule:
// pricing divides by the live custody balance.
package alpareward

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/reverts"
	"github.com/alpaworld/alpafi/builtin/solidity"
	"github.com/alpaworld/alpafi/log"
	"github.com/alpaworld/alpafi/state"
)

var logger = log.WithContext("pkg", "alpareward")

var (
	slotUnderlying  = alpafi.BytesToBytes32([]byte("underlying"))
	slotTotalShares = alpafi.BytesToBytes32([]byte("total-shares"))
	slotShares      = alpafi.BytesToBytes32([]byte("shares"))
)

// Token is the underlying-ledger capability the vault consumes.
type Token interface {
	Address() alpafi.Address
	BalanceOf(addr alpafi.Address) (*big.Int, error)
	Transfer(from, to alpafi.Address, amount *big.Int) error
	TransferFrom(spender, from, to alpafi.Address, amount *big.Int) error
}

// TokenResolver returns the fungible ledger bound to an address.
type TokenResolver func(alpafi.Address) Token

type addressKey alpafi.Address

func (k addressKey) Bytes() []byte {
	return alpafi.Address(k).Bytes()
}

// Vault is the share vault bound to a contract address.
// Not goroutine safe; mutating calls are strictly sequential.
type Vault struct {
	addr  alpafi.Address
	state *state.State

	shares      *solidity.Mapping[addressKey, *big.Int]
	totalShares *solidity.Uint256
	tokens      TokenResolver
}

// New creates the vault bound to the given address.
func New(addr alpafi.Address, st *state.State, tokens TokenResolver) *Vault {
	context := solidity.NewContext(addr, st)
	return &Vault{
		addr:        addr,
		state:       st,
		shares:      solidity.NewMapping[addressKey, *big.Int](context, slotShares),
		totalShares: solidity.NewUint256(addr, st, slotTotalShares),
		tokens:      tokens,
	}
}

// Address returns the vault's contract address.
func (v *Vault) Address() alpafi.Address {
	return v.addr
}

func (v *Vault) run(fn func() error) error {
	checkpoint := v.state.NewCheckpoint()
	if err := fn(); err != nil {
		v.state.RevertTo(checkpoint)
		return err
	}
	return nil
}

// Initialize records the underlying token. It can run once.
func (v *Vault) Initialize(underlying alpafi.Address) error {
	return v.run(func() error {
		cur, err := v.underlyingAddress()
		if err != nil {
			return err
		}
		if !cur.IsZero() {
			return reverts.NewRequireError("alpareward: already initialized")
		}
		if underlying.IsZero() {
			return reverts.NewRequireError("alpareward: zero underlying")
		}
		return v.state.SetStructuredStorage(v.addr, slotUnderlying, underlying)
	})
}

func (v *Vault) underlyingAddress() (alpafi.Address, error) {
	var addr alpafi.Address
	if err := v.state.GetStructuredStorage(v.addr, slotUnderlying, &addr); err != nil {
		return alpafi.Address{}, errors.Wrap(err, "failed to get underlying")
	}
	return addr, nil
}

func (v *Vault) underlying() (Token, error) {
	addr, err := v.underlyingAddress()
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, reverts.NewRequireError("alpareward: not initialized")
	}
	return v.tokens(addr), nil
}

// Enter deposits amount of the underlying and mints shares at the current
// ratio. The first depositor (or a drained vault) gets shares 1:1.
func (v *Vault) Enter(caller alpafi.Address, blockNum uint32, amount *big.Int) error {
	return v.run(func() error {
		if amount.Sign() <= 0 {
			return reverts.NewRequireError("alpareward: non-positive amount")
		}
		token, err := v.underlying()
		if err != nil {
			return err
		}
		balance, err := token.BalanceOf(v.addr)
		if err != nil {
			return err
		}
		total, err := v.totalShares.Get()
		if err != nil {
			return err
		}
		minted := new(big.Int).Set(amount)
		if total.Sign() > 0 && balance.Sign() > 0 {
			minted.Mul(minted, total)
			minted.Div(minted, balance)
		}
		if err := token.TransferFrom(v.addr, caller, v.addr, amount); err != nil {
			return err
		}
		held, err := v.shares.Get(addressKey(caller))
		if err != nil {
			return err
		}
		if err := v.shares.Set(addressKey(caller), held.Add(held, minted)); err != nil {
			return err
		}
		if err := v.totalShares.Add(minted); err != nil {
			return err
		}
		logger.Debug("entered", "depositor", caller, "amount", amount, "shares", minted, "block", blockNum)
		return nil
	})
}

// Leave burns shareAmount shares and pays out the matching slice of the
// vault's underlying balance.
func (v *Vault) Leave(caller alpafi.Address, blockNum uint32, shareAmount *big.Int) error {
	return v.run(func() error {
		if shareAmount.Sign() <= 0 {
			return reverts.NewRequireError("alpareward: non-positive amount")
		}
		held, err := v.shares.Get(addressKey(caller))
		if err != nil {
			return err
		}
		if held.Cmp(shareAmount) < 0 {
			return reverts.NewRequireError("alpareward: insufficient shares")
		}
		token, err := v.underlying()
		if err != nil {
			return err
		}
		balance, err := token.BalanceOf(v.addr)
		if err != nil {
			return err
		}
		total, err := v.totalShares.Get()
		if err != nil {
			return err
		}
		payout := new(big.Int).Mul(shareAmount, balance)
		payout.Div(payout, total)

		if err := v.shares.Set(addressKey(caller), held.Sub(held, shareAmount)); err != nil {
			return err
		}
		if err := v.totalShares.Sub(shareAmount); err != nil {
			return err
		}
		if err := token.Transfer(v.addr, caller, payout); err != nil {
			return err
		}
		logger.Debug("left", "depositor", caller, "shares", shareAmount, "payout", payout, "block", blockNum)
		return nil
	})
}

// SharesOf returns the share balance of a depositor.
func (v *Vault) SharesOf(addr alpafi.Address) (*big.Int, error) {
	return v.shares.Get(addressKey(addr))
}

// TotalShares returns the total minted shares.
func (v *Vault) TotalShares() (*big.Int, error) {
	return v.totalShares.Get()
}

// PricePerShare returns the underlying value of one share, fixed-point
// scaled by the reward scale. Zero when no shares exist.
func (v *Vault) PricePerShare() (*big.Int, error) {
	total, err := v.totalShares.Get()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return new(big.Int), nil
	}
	token, err := v.underlying()
	if err != nil {
		return nil, err
	}
	balance, err := token.BalanceOf(v.addr)
	if err != nil {
		return nil, err
	}
	price := new(big.Int).Mul(balance, alpafi.RewardScale)
	return price.Div(price, total), nil
}
