// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package masterchef

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/solidity"
	"github.com/alpaworld/alpafi/state"
)

var (
	slotOwner            = nameToSlot("owner")
	slotRewardToken      = nameToSlot("reward-token")
	slotDevAddress       = nameToSlot("dev-address")
	slotCommunityAddress = nameToSlot("community-address")
	slotRewardPerBlock   = nameToSlot("reward-per-block")
	slotTotalAllocPoint  = nameToSlot("total-alloc-point")
	slotPoolCount        = nameToSlot("pool-count")
	slotPaused           = nameToSlot("paused")
	slotPools            = nameToSlot("pools")
	slotUsers            = nameToSlot("users")
	slotAttachments      = nameToSlot("attachments")
)

func nameToSlot(name string) alpafi.Bytes32 {
	return alpafi.BytesToBytes32([]byte(name))
}

type chefStorage struct {
	context *solidity.Context

	pools       *solidity.Mapping[solidity.Uint64Key, *PoolInfo]
	users       *solidity.Mapping[userKey, *UserInfo]
	attachments *solidity.Mapping[solidity.Uint64Key, *Attachment]

	rewardPerBlock  *solidity.Uint256
	totalAllocPoint *solidity.Uint256
	poolCount       *solidity.Uint256
}

func newChefStorage(addr alpafi.Address, st *state.State) *chefStorage {
	context := solidity.NewContext(addr, st)
	return &chefStorage{
		context:         context,
		pools:           solidity.NewMapping[solidity.Uint64Key, *PoolInfo](context, slotPools),
		users:           solidity.NewMapping[userKey, *UserInfo](context, slotUsers),
		attachments:     solidity.NewMapping[solidity.Uint64Key, *Attachment](context, slotAttachments),
		rewardPerBlock:  solidity.NewUint256(addr, st, slotRewardPerBlock),
		totalAllocPoint: solidity.NewUint256(addr, st, slotTotalAllocPoint),
		poolCount:       solidity.NewUint256(addr, st, slotPoolCount),
	}
}

func (s *chefStorage) getAddress(slot alpafi.Bytes32) (alpafi.Address, error) {
	var addr alpafi.Address
	if err := s.context.State().GetStructuredStorage(s.context.Address(), slot, &addr); err != nil {
		return alpafi.Address{}, errors.Wrap(err, "failed to get address slot")
	}
	return addr, nil
}

func (s *chefStorage) setAddress(slot alpafi.Bytes32, addr alpafi.Address) error {
	if err := s.context.State().SetStructuredStorage(s.context.Address(), slot, addr); err != nil {
		return errors.Wrap(err, "failed to set address slot")
	}
	return nil
}

func (s *chefStorage) getPaused() (bool, error) {
	var paused bool
	if err := s.context.State().GetStructuredStorage(s.context.Address(), slotPaused, &paused); err != nil {
		return false, errors.Wrap(err, "failed to get paused flag")
	}
	return paused, nil
}

func (s *chefStorage) setPaused(paused bool) error {
	if err := s.context.State().SetStructuredStorage(s.context.Address(), slotPaused, paused); err != nil {
		return errors.Wrap(err, "failed to set paused flag")
	}
	return nil
}

func (s *chefStorage) getPoolCount() (uint64, error) {
	count, err := s.poolCount.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get pool count")
	}
	return count.Uint64(), nil
}

func (s *chefStorage) setPoolCount(count uint64) {
	s.poolCount.Set(new(big.Int).SetUint64(count))
}

func (s *chefStorage) getPool(pid uint64) (*PoolInfo, error) {
	pool, err := s.pools.Get(solidity.Uint64Key(pid))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool")
	}
	return pool.norm(), nil
}

func (s *chefStorage) setPool(pid uint64, pool *PoolInfo) error {
	if err := s.pools.Set(solidity.Uint64Key(pid), pool); err != nil {
		return errors.Wrap(err, "failed to set pool")
	}
	return nil
}

func (s *chefStorage) getUser(pid uint64, addr alpafi.Address) (*UserInfo, error) {
	user, err := s.users.Get(userKey{pid, addr})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return user.norm(), nil
}

func (s *chefStorage) setUser(pid uint64, addr alpafi.Address, user *UserInfo) error {
	if err := s.users.Set(userKey{pid, addr}, user); err != nil {
		return errors.Wrap(err, "failed to set user")
	}
	return nil
}

func (s *chefStorage) getAttachment(id uint64) (*Attachment, error) {
	attachment, err := s.attachments.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get attachment")
	}
	return attachment, nil
}

func (s *chefStorage) setAttachment(id uint64, attachment *Attachment) error {
	if err := s.attachments.Set(solidity.Uint64Key(id), attachment); err != nil {
		return errors.Wrap(err, "failed to set attachment")
	}
	return nil
}

func (s *chefStorage) deleteAttachment(id uint64) error {
	if err := s.attachments.Delete(solidity.Uint64Key(id)); err != nil {
		return errors.Wrap(err, "failed to delete attachment")
	}
	return nil
}
