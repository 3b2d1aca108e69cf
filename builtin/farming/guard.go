// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farming

import "github.com/alpaworld/alpafi/builtin/reverts"

// Guard rejects re-entrant calls into a ledger's mutating entry points.
// Enter returns a release that must run on every exit path.
type Guard struct {
	entered bool
}

func (g *Guard) Enter() (release func(), err error) {
	if g.entered {
		return nil, reverts.NewRequireError("farming: reentrant call")
	}
	g.entered = true
	return func() { g.entered = false }, nil
}
