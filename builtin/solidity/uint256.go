// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/state"
)

// Uint256 is a wrapper for storage and retrieval of an uint256, similar to
// storing an uint256 in a smart contract. Values exceeding 256 bits are
// truncated to fit into alpafi.Bytes32.
type Uint256 struct {
	addr  alpafi.Address
	pos   alpafi.Bytes32
	state *state.State
}

func NewUint256(addr alpafi.Address, state *state.State, slot alpafi.Bytes32) *Uint256 {
	return &Uint256{addr: addr, state: state, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.state.GetStorage(u.addr, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	storage := alpafi.BytesToBytes32(value.Bytes())
	u.state.SetStorage(u.addr, u.pos, storage)
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Add(storage, value)
	u.Set(storage)
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Sub(storage, value)
	u.Set(storage)
	return nil
}
