// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/state"
)

// Context binds a contract address to a state, scoping every storage access
// of the contract.
type Context struct {
	address alpafi.Address
	state   *state.State
}

func NewContext(address alpafi.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() alpafi.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}
