// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import "errors"

// ErrRequire is the error produced by a violated contract rule. Any entry
// point returning it leaves the state exactly as before the call.
type ErrRequire struct {
	message string
}

// NewRequireError creates a revert error with the given reason.
func NewRequireError(message string) *ErrRequire {
	return &ErrRequire{
		message: message,
	}
}

func (e *ErrRequire) Error() string {
	return e.message
}

// IsRevertErr reports whether err is (or wraps) a contract revert.
func IsRevertErr(err error) bool {
	if err == nil {
		return false
	}
	var re *ErrRequire
	return errors.As(err, &re) && re != nil
}
