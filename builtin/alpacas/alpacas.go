// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package alpacas

import (
	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/reverts"
	"github.com/alpaworld/alpafi/builtin/solidity"
	"github.com/alpaworld/alpafi/log"
	"github.com/alpaworld/alpafi/state"
)

var logger = log.WithContext("pkg", "alpacas")

var (
	slotAlpacas   = alpafi.BytesToBytes32([]byte("alpacas"))
	slotApprovals = alpafi.BytesToBytes32([]byte("approvals"))
	slotMaster    = alpafi.BytesToBytes32([]byte("master"))
)

// Receiver is implemented by contracts willing to take custody of alpacas
// through SafeTransferFrom.
type Receiver interface {
	OnAlpacaReceived(operator, from alpafi.Address, blockNum uint32, ids []uint64, data []byte) error
}

// EnergyListener is notified when the energy of an alpaca held by the
// listener's contract changes.
type EnergyListener interface {
	OnEnergyChanged(caller alpafi.Address, blockNum uint32, id uint64, oldEnergy, newEnergy uint32) error
}

// Alpacas is the registry of breedable assets. It owns per-id records and
// dispatches receive hooks and energy-change notifications to subscribed
// contracts.
type Alpacas struct {
	addr    alpafi.Address
	state   *state.State
	context *solidity.Context

	alpacas   *solidity.Mapping[solidity.Uint64Key, *Alpaca]
	approvals *solidity.Mapping[approvalKey, bool]

	receivers map[alpafi.Address]Receiver
	listeners map[alpafi.Address]EnergyListener
}

// New creates the registry bound to the given address.
func New(addr alpafi.Address, st *state.State) *Alpacas {
	context := solidity.NewContext(addr, st)
	return &Alpacas{
		addr:      addr,
		state:     st,
		context:   context,
		alpacas:   solidity.NewMapping[solidity.Uint64Key, *Alpaca](context, slotAlpacas),
		approvals: solidity.NewMapping[approvalKey, bool](context, slotApprovals),
		receivers: make(map[alpafi.Address]Receiver),
		listeners: make(map[alpafi.Address]EnergyListener),
	}
}

// Address returns the registry's contract address.
func (a *Alpacas) Address() alpafi.Address {
	return a.addr
}

// SubscribeReceiver registers the receive hook of a contract address.
func (a *Alpacas) SubscribeReceiver(addr alpafi.Address, r Receiver) {
	a.receivers[addr] = r
}

// SubscribeEnergy registers the energy-change hook of a contract address.
func (a *Alpacas) SubscribeEnergy(addr alpafi.Address, l EnergyListener) {
	a.listeners[addr] = l
}

// Master returns the breeding-subsystem address allowed to mint alpacas and
// mutate energy.
func (a *Alpacas) Master() (alpafi.Address, error) {
	var master alpafi.Address
	if err := a.state.GetStructuredStorage(a.addr, slotMaster, &master); err != nil {
		return alpafi.Address{}, err
	}
	return master, nil
}

// SetMaster assigns the breeding-subsystem address. First assignment is open.
func (a *Alpacas) SetMaster(caller, master alpafi.Address) error {
	cur, err := a.Master()
	if err != nil {
		return err
	}
	if !cur.IsZero() && caller != cur {
		return reverts.NewRequireError("alpacas: not master")
	}
	return a.state.SetStructuredStorage(a.addr, slotMaster, master)
}

// Mint records a newly hatched alpaca. Only the master may mint.
func (a *Alpacas) Mint(caller, owner alpafi.Address, id uint64, energy uint32, growth Growth) error {
	master, err := a.Master()
	if err != nil {
		return err
	}
	if caller != master {
		return reverts.NewRequireError("alpacas: not master")
	}
	if id == 0 {
		return reverts.NewRequireError("alpacas: zero id")
	}
	if owner.IsZero() {
		return reverts.NewRequireError("alpacas: zero owner")
	}
	existing, err := a.alpacas.Get(solidity.Uint64Key(id))
	if err != nil {
		return err
	}
	if !existing.IsEmpty() {
		return reverts.NewRequireError("alpacas: id taken")
	}
	return a.alpacas.Set(solidity.Uint64Key(id), &Alpaca{Owner: owner, Energy: energy, Growth: growth})
}

// Get returns the record of an alpaca.
func (a *Alpacas) Get(id uint64) (*Alpaca, error) {
	alpaca, err := a.alpacas.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, err
	}
	if alpaca.IsEmpty() {
		return nil, reverts.NewRequireError("alpacas: unknown id")
	}
	return alpaca, nil
}

// Stats returns the farm-relevant attributes of an alpaca.
func (a *Alpacas) Stats(id uint64) (energy uint32, usable bool, err error) {
	alpaca, err := a.Get(id)
	if err != nil {
		return 0, false, err
	}
	return alpaca.Energy, alpaca.IsUsable(), nil
}

// OwnerOf returns the current holder of an alpaca.
func (a *Alpacas) OwnerOf(id uint64) (alpafi.Address, error) {
	alpaca, err := a.Get(id)
	if err != nil {
		return alpafi.Address{}, err
	}
	return alpaca.Owner, nil
}

// SetApproval lets operator transfer alpacas held by owner.
func (a *Alpacas) SetApproval(owner, operator alpafi.Address, approved bool) error {
	if approved {
		return a.approvals.Set(approvalKey{owner, operator}, true)
	}
	return a.approvals.Delete(approvalKey{owner, operator})
}

// IsApproved reports whether operator may transfer alpacas held by owner.
func (a *Alpacas) IsApproved(owner, operator alpafi.Address) (bool, error) {
	return a.approvals.Get(approvalKey{owner, operator})
}

// Transfer moves an alpaca from from to to without dispatching any hook.
func (a *Alpacas) Transfer(operator, from, to alpafi.Address, id uint64) error {
	alpaca, err := a.Get(id)
	if err != nil {
		return err
	}
	if alpaca.Owner != from {
		return reverts.NewRequireError("alpacas: not the holder")
	}
	if operator != from {
		approved, err := a.IsApproved(from, operator)
		if err != nil {
			return err
		}
		if !approved {
			return reverts.NewRequireError("alpacas: operator not approved")
		}
	}
	if to.IsZero() {
		return reverts.NewRequireError("alpacas: zero recipient")
	}
	alpaca.Owner = to
	return a.alpacas.Set(solidity.Uint64Key(id), alpaca)
}

// SafeTransferFrom moves the given alpacas and dispatches the recipient's
// receive hook if one is subscribed. The whole call is atomic: a failing
// hook reverts the transfers.
func (a *Alpacas) SafeTransferFrom(operator, from, to alpafi.Address, blockNum uint32, ids []uint64, data []byte) error {
	if len(ids) == 0 {
		return reverts.NewRequireError("alpacas: empty transfer")
	}
	checkpoint := a.state.NewCheckpoint()
	for _, id := range ids {
		if err := a.Transfer(operator, from, to, id); err != nil {
			a.state.RevertTo(checkpoint)
			return err
		}
	}
	if receiver, ok := a.receivers[to]; ok {
		if err := receiver.OnAlpacaReceived(operator, from, blockNum, ids, data); err != nil {
			a.state.RevertTo(checkpoint)
			return err
		}
	}
	return nil
}

// SetEnergy is the breeding-side mutation of an alpaca's energy. If the
// alpaca is currently held by a subscribed contract, that contract is
// notified so it can settle under the old weight first.
func (a *Alpacas) SetEnergy(caller alpafi.Address, blockNum uint32, id uint64, energy uint32) error {
	master, err := a.Master()
	if err != nil {
		return err
	}
	if caller != master {
		return reverts.NewRequireError("alpacas: not master")
	}
	alpaca, err := a.Get(id)
	if err != nil {
		return err
	}
	old := alpaca.Energy
	if old == energy {
		return nil
	}
	checkpoint := a.state.NewCheckpoint()
	alpaca.Energy = energy
	if err := a.alpacas.Set(solidity.Uint64Key(id), alpaca); err != nil {
		return err
	}
	if listener, ok := a.listeners[alpaca.Owner]; ok {
		if err := listener.OnEnergyChanged(a.addr, blockNum, id, old, energy); err != nil {
			a.state.RevertTo(checkpoint)
			return err
		}
	}
	logger.Debug("energy changed", "id", id, "old", old, "new", energy)
	return nil
}
