// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/reverts"
	"github.com/alpaworld/alpafi/state"
)

var (
	totalSupplyKey = alpafi.Bytes32(crypto.Keccak256Hash([]byte("total-supply")))
	masterKey      = alpafi.Bytes32(crypto.Keccak256Hash([]byte("master")))
)

func accountKey(addr alpafi.Address) alpafi.Bytes32 {
	return alpafi.BytesToBytes32(append([]byte("a"), addr.Bytes()...))
}

func allowanceKey(owner, spender alpafi.Address) alpafi.Bytes32 {
	return alpafi.Bytes32(crypto.Keccak256Hash(owner.Bytes(), spender.Bytes()))
}

func minterKey(addr alpafi.Address) alpafi.Bytes32 {
	return alpafi.BytesToBytes32(append([]byte("m"), addr.Bytes()...))
}

// Token is a fungible ledger bound to a contract address. The ALPA reward
// token and every staked LP token is an instance of it.
type Token struct {
	addr  alpafi.Address
	state *state.State
}

// New creates a token ledger at the given address.
func New(addr alpafi.Address, state *state.State) *Token {
	return &Token{addr, state}
}

// Address returns the ledger's contract address.
func (t *Token) Address() alpafi.Address {
	return t.addr
}

func (t *Token) getStorage(key alpafi.Bytes32, val any) error {
	return t.state.GetStructuredStorage(t.addr, key, val)
}

func (t *Token) setStorage(key alpafi.Bytes32, val any) error {
	return t.state.SetStructuredStorage(t.addr, key, val)
}

// Master returns the address allowed to mint and burn.
func (t *Token) Master() (alpafi.Address, error) {
	var master alpafi.Address
	if err := t.getStorage(masterKey, &master); err != nil {
		return alpafi.Address{}, err
	}
	return master, nil
}

// SetMaster hands mint/burn authority to master. The first assignment is
// open (genesis wiring); afterwards only the current master may reassign.
func (t *Token) SetMaster(caller, master alpafi.Address) error {
	cur, err := t.Master()
	if err != nil {
		return err
	}
	if !cur.IsZero() && caller != cur {
		return reverts.NewRequireError("token: not master")
	}
	return t.setStorage(masterKey, master)
}

// SetMinter grants or revokes mint authority of an address alongside the
// master. Only the master may call.
func (t *Token) SetMinter(caller, minter alpafi.Address, allowed bool) error {
	master, err := t.Master()
	if err != nil {
		return err
	}
	if caller != master {
		return reverts.NewRequireError("token: not master")
	}
	return t.setStorage(minterKey(minter), allowed)
}

// IsMinter reports whether an address may mint besides the master.
func (t *Token) IsMinter(addr alpafi.Address) (bool, error) {
	var allowed bool
	if err := t.getStorage(minterKey(addr), &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// TotalSupply returns the total minted supply.
func (t *Token) TotalSupply() (*big.Int, error) {
	supply := new(big.Int)
	if err := t.getStorage(totalSupplyKey, supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// BalanceOf returns the balance of an account.
func (t *Token) BalanceOf(addr alpafi.Address) (*big.Int, error) {
	acc, err := t.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

func (t *Token) getAccount(addr alpafi.Address) (*account, error) {
	var acc account
	if err := t.getStorage(accountKey(addr), &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (t *Token) getAndSetAccount(addr alpafi.Address, cb func(*account) error) error {
	key := accountKey(addr)
	var acc account
	if err := t.getStorage(key, &acc); err != nil {
		return err
	}
	if err := cb(&acc); err != nil {
		return err
	}
	return t.setStorage(key, &acc)
}

// Mint creates amount tokens on the balance of to. Only the master and
// granted minters may mint.
func (t *Token) Mint(caller, to alpafi.Address, amount *big.Int) error {
	master, err := t.Master()
	if err != nil {
		return err
	}
	if caller != master {
		allowed, err := t.IsMinter(caller)
		if err != nil {
			return err
		}
		if !allowed {
			return reverts.NewRequireError("token: not a minter")
		}
	}
	if amount.Sign() < 0 {
		return reverts.NewRequireError("token: negative amount")
	}
	if err := t.getAndSetAccount(to, func(acc *account) error {
		acc.Balance = new(big.Int).Add(acc.Balance, amount)
		return nil
	}); err != nil {
		return err
	}
	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	return t.setStorage(totalSupplyKey, supply.Add(supply, amount))
}

// Burn destroys amount tokens from the balance of from. The master or the
// holder itself may burn.
func (t *Token) Burn(caller, from alpafi.Address, amount *big.Int) error {
	master, err := t.Master()
	if err != nil {
		return err
	}
	if caller != master && caller != from {
		return reverts.NewRequireError("token: not authorized to burn")
	}
	if amount.Sign() < 0 {
		return reverts.NewRequireError("token: negative amount")
	}
	if err := t.sub(from, amount); err != nil {
		return err
	}
	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	return t.setStorage(totalSupplyKey, supply.Sub(supply, amount))
}

func (t *Token) add(addr alpafi.Address, amount *big.Int) error {
	return t.getAndSetAccount(addr, func(acc *account) error {
		acc.Balance = new(big.Int).Add(acc.Balance, amount)
		return nil
	})
}

func (t *Token) sub(addr alpafi.Address, amount *big.Int) error {
	return t.getAndSetAccount(addr, func(acc *account) error {
		if acc.Balance.Cmp(amount) < 0 {
			return reverts.NewRequireError("token: insufficient balance")
		}
		acc.Balance = new(big.Int).Sub(acc.Balance, amount)
		return nil
	})
}

// Transfer moves amount from from to to.
// Authorization of from is the caller's duty; ledgers pass their own custody
// address, the execution layer passes the transaction origin.
func (t *Token) Transfer(from, to alpafi.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.NewRequireError("token: negative amount")
	}
	if err := t.sub(from, amount); err != nil {
		return err
	}
	return t.add(to, amount)
}

// Approve lets spender move up to amount from owner's balance via TransferFrom.
func (t *Token) Approve(owner, spender alpafi.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.NewRequireError("token: negative amount")
	}
	return t.setStorage(allowanceKey(owner, spender), amount)
}

// Allowance returns the remaining allowance from owner to spender.
func (t *Token) Allowance(owner, spender alpafi.Address) (*big.Int, error) {
	allowance := new(big.Int)
	if err := t.getStorage(allowanceKey(owner, spender), allowance); err != nil {
		return nil, err
	}
	return allowance, nil
}

// TransferFrom moves amount from from to to on behalf of spender,
// consuming allowance unless spender is the holder itself.
func (t *Token) TransferFrom(spender, from, to alpafi.Address, amount *big.Int) error {
	if spender != from {
		allowance, err := t.Allowance(from, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return reverts.NewRequireError("token: insufficient allowance")
		}
		if err := t.setStorage(allowanceKey(from, spender), allowance.Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return t.Transfer(from, to, amount)
}
