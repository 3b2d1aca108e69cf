// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farming

import "github.com/alpaworld/alpafi/metrics"

var (
	metricSettlements = metrics.LazyLoadCounterVec("farm_settlement_count", []string{"ledger"})
	metricPayouts     = metrics.LazyLoadCounterVec("farm_payout_count", []string{"ledger"})
)

// MeterSettlement counts one emitting pool settlement of the named ledger.
func MeterSettlement(ledger string) {
	metricSettlements().AddWithLabel(1, map[string]string{"ledger": ledger})
}

// MeterPayout counts one reward payout of the named ledger.
func MeterPayout(ledger string) {
	metricPayouts().AddWithLabel(1, map[string]string{"ledger": ledger})
}
