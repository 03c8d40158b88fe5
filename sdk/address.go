package sdk

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
)

// AddrLen is the length of an account address.
const AddrLen = 20

// AccAddress identifies an account. It is derived from a public key.
type AccAddress [AddrLen]byte

// AccAddressFromHex parses the hex form returned by String.
func AccAddressFromHex(s string) (AccAddress, error) {
	var addr AccAddress
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return addr, appcore.ErrInvalidAddress.Wrapf("%q: %v", s, err)
	}
	if len(b) != AddrLen {
		return addr, appcore.ErrInvalidAddress.Wrapf("%q: expected %d bytes, got %d", s, AddrLen, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// AccAddressFromBytes copies b into an address.
func AccAddressFromBytes(b []byte) (AccAddress, error) {
	var addr AccAddress
	if len(b) != AddrLen {
		return addr, errors.Wrapf(appcore.ErrInvalidAddress, "expected %d bytes, got %d", AddrLen, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// ModuleAddress derives the address of a module account from its name.
func ModuleAddress(name string) AccAddress {
	var addr AccAddress
	copy(addr[:], Hash([]byte("module/"+name)))
	return addr
}

// String returns the lower-case hex encoding.
func (a AccAddress) String() string { return hex.EncodeToString(a[:]) }

// Bytes returns the address as a slice.
func (a AccAddress) Bytes() []byte { return a[:] }

// Empty reports whether the address is all zero.
func (a AccAddress) Empty() bool { return a == AccAddress{} }
