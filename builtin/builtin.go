// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin wires the system contracts of the AlpaFi protocol: the
// well-known addresses and a per-state System binding every contract to
// those addresses, including the alpaca receive-hook and energy-change
// fan-out between the registry and the two ledgers.
package builtin

import (
	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/alpacas"
	"github.com/alpaworld/alpafi/builtin/alpareward"
	"github.com/alpaworld/alpafi/builtin/masterchef"
	"github.com/alpaworld/alpafi/builtin/squad"
	"github.com/alpaworld/alpafi/builtin/token"
	"github.com/alpaworld/alpafi/state"
)

// Well-known addresses of the system contracts.
var (
	AlpaAddress        = alpafi.NamedAddress("alpa-token")
	AlpacasAddress     = alpafi.NamedAddress("alpacas")
	MasterChefAddress  = alpafi.NamedAddress("masterchef")
	AlpacaSquadAddress = alpafi.NamedAddress("alpaca-squad")
	AlpaRewardAddress  = alpafi.NamedAddress("alpa-reward")
)

// System holds every system contract bound to one state. Hooks between the
// registry and the ledgers are subscribed at construction, so an alpaca
// safe-transferred to a ledger attaches and an energy change notifies the
// holding ledger.
type System struct {
	Alpa       *token.Token
	Alpacas    *alpacas.Alpacas
	MasterChef *masterchef.MasterChef
	Squad      *squad.Squad
	AlpaReward *alpareward.Vault

	state *state.State
}

// WithState binds the system contracts to a state.
func WithState(st *state.State) *System {
	sys := &System{
		Alpa:    token.New(AlpaAddress, st),
		Alpacas: alpacas.New(AlpacasAddress, st),
		state:   st,
	}
	sys.MasterChef = masterchef.New(MasterChefAddress, st,
		func(addr alpafi.Address) masterchef.Token { return token.New(addr, st) },
		sys.Alpacas)
	sys.Squad = squad.New(AlpacaSquadAddress, st,
		func(addr alpafi.Address) squad.Token { return token.New(addr, st) },
		sys.Alpacas)
	sys.AlpaReward = alpareward.New(AlpaRewardAddress, st,
		func(addr alpafi.Address) alpareward.Token { return token.New(addr, st) })

	sys.Alpacas.SubscribeReceiver(MasterChefAddress, sys.MasterChef)
	sys.Alpacas.SubscribeReceiver(AlpacaSquadAddress, sys.Squad)
	sys.Alpacas.SubscribeEnergy(MasterChefAddress, sys.MasterChef)
	sys.Alpacas.SubscribeEnergy(AlpacaSquadAddress, sys.Squad)
	return sys
}

// Token returns the fungible ledger bound to an address, for staked tokens
// beyond ALPA.
func (s *System) Token(addr alpafi.Address) *token.Token {
	return token.New(addr, s.state)
}
