// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package squad

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/builtin/farming"
	"github.com/alpaworld/alpafi/builtin/solidity"
	"github.com/alpaworld/alpafi/state"
)

var (
	slotOwner          = alpafi.BytesToBytes32([]byte("owner"))
	slotRewardToken    = alpafi.BytesToBytes32([]byte("reward-token"))
	slotRewardPerBlock = alpafi.BytesToBytes32([]byte("reward-per-block"))
	slotPaused         = alpafi.BytesToBytes32([]byte("paused"))
	slotPool           = alpafi.BytesToBytes32([]byte("pool"))
	slotMembers        = alpafi.BytesToBytes32([]byte("members"))
	slotAttachments    = alpafi.BytesToBytes32([]byte("attachments"))
)

// maxSquadSize caps the number of alpacas one member may field. A deployment
// can override it by writing the slot named after the variable.
var maxSquadSize = solidity.NewConfigVariable("max-squad-size", alpafi.MaxSquadSize)

type squadStorage struct {
	context *solidity.Context

	members     *solidity.Mapping[addressKey, *MemberInfo]
	attachments *solidity.Mapping[solidity.Uint64Key, *Attachment]

	rewardPerBlock *solidity.Uint256
}

func newSquadStorage(addr alpafi.Address, st *state.State) *squadStorage {
	context := solidity.NewContext(addr, st)
	return &squadStorage{
		context:        context,
		members:        solidity.NewMapping[addressKey, *MemberInfo](context, slotMembers),
		attachments:    solidity.NewMapping[solidity.Uint64Key, *Attachment](context, slotAttachments),
		rewardPerBlock: solidity.NewUint256(addr, st, slotRewardPerBlock),
	}
}

func (s *squadStorage) getAddress(slot alpafi.Bytes32) (alpafi.Address, error) {
	var addr alpafi.Address
	if err := s.context.State().GetStructuredStorage(s.context.Address(), slot, &addr); err != nil {
		return alpafi.Address{}, errors.Wrap(err, "failed to get address slot")
	}
	return addr, nil
}

func (s *squadStorage) setAddress(slot alpafi.Bytes32, addr alpafi.Address) error {
	if err := s.context.State().SetStructuredStorage(s.context.Address(), slot, addr); err != nil {
		return errors.Wrap(err, "failed to set address slot")
	}
	return nil
}

func (s *squadStorage) getPaused() (bool, error) {
	var paused bool
	if err := s.context.State().GetStructuredStorage(s.context.Address(), slotPaused, &paused); err != nil {
		return false, errors.Wrap(err, "failed to get paused flag")
	}
	return paused, nil
}

func (s *squadStorage) setPaused(paused bool) error {
	if err := s.context.State().SetStructuredStorage(s.context.Address(), slotPaused, paused); err != nil {
		return errors.Wrap(err, "failed to set paused flag")
	}
	return nil
}

// getPool loads the single reward pool of the ledger.
func (s *squadStorage) getPool() (*farming.Pool, error) {
	var pool farming.Pool
	err := s.context.State().DecodeStorage(s.context.Address(), slotPool, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &pool)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool")
	}
	return pool.Norm(), nil
}

func (s *squadStorage) setPool(pool *farming.Pool) error {
	err := s.context.State().EncodeStorage(s.context.Address(), slotPool, func() ([]byte, error) {
		return rlp.EncodeToBytes(pool)
	})
	if err != nil {
		return errors.Wrap(err, "failed to set pool")
	}
	return nil
}

func (s *squadStorage) getMember(addr alpafi.Address) (*MemberInfo, error) {
	member, err := s.members.Get(addressKey(addr))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get member")
	}
	return member.norm(), nil
}

func (s *squadStorage) setMember(addr alpafi.Address, member *MemberInfo) error {
	if err := s.members.Set(addressKey(addr), member); err != nil {
		return errors.Wrap(err, "failed to set member")
	}
	return nil
}

func (s *squadStorage) getAttachment(id uint64) (*Attachment, error) {
	attachment, err := s.attachments.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get attachment")
	}
	return attachment, nil
}

func (s *squadStorage) setAttachment(id uint64, attachment *Attachment) error {
	if err := s.attachments.Set(solidity.Uint64Key(id), attachment); err != nil {
		return errors.Wrap(err, "failed to set attachment")
	}
	return nil
}

func (s *squadStorage) deleteAttachment(id uint64) error {
	if err := s.attachments.Delete(solidity.Uint64Key(id)); err != nil {
		return errors.Wrap(err, "failed to delete attachment")
	}
	return nil
}
