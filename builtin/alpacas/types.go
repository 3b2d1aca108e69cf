// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package alpacas

import (
	"github.com/alpaworld/alpafi/alpafi"
)

// Growth is the maturity state of an alpaca.
type Growth uint8

const (
	// Immature alpacas cannot be attached to any farm.
	Immature Growth = iota
	// Usable alpacas are fully grown and carry usable energy.
	Usable
)

// Alpaca is the on-ledger record of a breedable asset. The genetic fields of
// the breeding game live in the breeding subsystem; the farm side only ever
// reads energy and growth.
type Alpaca struct {
	Owner  alpafi.Address
	Energy uint32
	Growth Growth
}

// IsEmpty returns whether the record is unset.
func (a *Alpaca) IsEmpty() bool {
	return a.Owner.IsZero() && a.Energy == 0 && a.Growth == Immature
}

// IsUsable reports whether the alpaca may back a farm position.
func (a *Alpaca) IsUsable() bool {
	return a.Growth == Usable
}

type approvalKey struct {
	owner    alpafi.Address
	operator alpafi.Address
}

func (k approvalKey) Bytes() []byte {
	b := make([]byte, 0, alpafi.AddressLength*2)
	b = append(b, k.owner.Bytes()...)
	b = append(b, k.operator.Bytes()...)
	return b
}
