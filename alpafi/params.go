// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package alpafi

import "math/big"

// Constants of the AlpaFi protocol.
const (
	// DevRewardPercent share of every emission minted to the dev fund.
	DevRewardPercent = 10
	// CommunityRewardPercent share of every emission minted to the community fund.
	CommunityRewardPercent = 10

	// MaxSquadSize default cap on the number of alpacas a single squad may hold.
	MaxSquadSize = 10
)

// RewardScale is the fixed-point scale factor of reward-per-weighted-share
// accumulators. All accumulator values are expressed in units of 1/RewardScale.
var RewardScale = big.NewInt(1e16)
