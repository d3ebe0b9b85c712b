// Package address implements Shelley-era address descriptors: a payment
// credential, an optional staking credential, a network id and the bech32
// text form. The transaction core only ever consumes the binary form; the
// text form exists for callers.
package address

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/mgpai22/argentum/cbor"
)

// Network is the network discriminator carried in the address header.
type Network byte

const (
	Testnet Network = 0
	Mainnet Network = 1
)

// Type is the high nibble of the address header byte.
type Type byte

const (
	// Payment part / staking part combinations.
	KeyKey       Type = 0x00
	ScriptKey    Type = 0x01
	KeyScript    Type = 0x02
	ScriptScript Type = 0x03
	KeyNone      Type = 0x06
	ScriptNone   Type = 0x07
	// Reward (stake) addresses.
	NoneKey    Type = 0x0e
	NoneScript Type = 0x0f
)

const credentialSize = 28

// Address is an immutable destination descriptor.
type Address struct {
	PaymentPart []byte
	StakingPart []byte
	Network     Network
	AddressType Type
}

// New builds a base, enterprise or reward address from its credential parts.
// Script credentials flip the corresponding type bit via the explicit Type
// constructors below; New assumes key credentials.
func New(paymentPart, stakingPart []byte, network Network) (Address, error) {
	return FromParts(typeFor(paymentPart, stakingPart), network, paymentPart, stakingPart)
}

func typeFor(paymentPart, stakingPart []byte) Type {
	switch {
	case len(paymentPart) > 0 && len(stakingPart) > 0:
		return KeyKey
	case len(paymentPart) > 0:
		return KeyNone
	default:
		return NoneKey
	}
}

// FromParts builds an address with an explicit type.
func FromParts(t Type, network Network, paymentPart, stakingPart []byte) (Address, error) {
	for _, part := range [][]byte{paymentPart, stakingPart} {
		if len(part) != 0 && len(part) != credentialSize {
			return Address{}, fmt.Errorf("address: credential must be %d bytes, got %d", credentialSize, len(part))
		}
	}
	return Address{
		PaymentPart: append([]byte{}, paymentPart...),
		StakingPart: append([]byte{}, stakingPart...),
		Network:     network,
		AddressType: t,
	}, nil
}

// Header returns the address header byte: type in the high nibble, network
// in the low nibble.
func (a Address) Header() byte {
	return byte(a.AddressType)<<4 | byte(a.Network)
}

// Bytes returns the binary form consumed by the wire codec.
func (a Address) Bytes() []byte {
	out := make([]byte, 0, 1+len(a.PaymentPart)+len(a.StakingPart))
	out = append(out, a.Header())
	out = append(out, a.PaymentPart...)
	return append(out, a.StakingPart...)
}

// FromBytes parses the binary form.
func FromBytes(data []byte) (Address, error) {
	if len(data) == 0 {
		return Address{}, fmt.Errorf("address: empty")
	}
	header := data[0]
	t := Type(header >> 4)
	network := Network(header & 0x0f)
	payload := data[1:]
	switch t {
	case KeyKey, ScriptKey, KeyScript, ScriptScript:
		if len(payload) != 2*credentialSize {
			return Address{}, fmt.Errorf("address: base address payload must be %d bytes, got %d", 2*credentialSize, len(payload))
		}
		return FromParts(t, network, payload[:credentialSize], payload[credentialSize:])
	case KeyNone, ScriptNone:
		if len(payload) != credentialSize {
			return Address{}, fmt.Errorf("address: enterprise address payload must be %d bytes, got %d", credentialSize, len(payload))
		}
		return FromParts(t, network, payload, nil)
	case NoneKey, NoneScript:
		if len(payload) != credentialSize {
			return Address{}, fmt.Errorf("address: reward address payload must be %d bytes, got %d", credentialSize, len(payload))
		}
		return FromParts(t, network, nil, payload)
	default:
		return Address{}, fmt.Errorf("address: unsupported address type %#02x", byte(t))
	}
}

// HasScriptPayment reports whether the payment credential is a script hash.
func (a Address) HasScriptPayment() bool {
	switch a.AddressType {
	case ScriptKey, ScriptScript, ScriptNone:
		return true
	}
	return false
}

// Equal is structural equality on the binary form.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.Bytes(), other.Bytes())
}

func (a Address) hrp() string {
	prefix := "addr"
	if a.AddressType == NoneKey || a.AddressType == NoneScript {
		prefix = "stake"
	}
	if a.Network == Mainnet {
		return prefix
	}
	return prefix + "_test"
}

// String returns the bech32 text form. Base addresses exceed the BIP-173
// length limit, hence DecodeNoLimit on the way back in.
func (a Address) String() string {
	grouped, err := bech32.ConvertBits(a.Bytes(), 8, 5, true)
	if err != nil {
		return ""
	}
	encoded, err := bech32.Encode(a.hrp(), grouped)
	if err != nil {
		return ""
	}
	return encoded
}

// FromBech32 parses the bech32 text form.
func FromBech32(s string) (Address, error) {
	hrp, grouped, err := bech32.DecodeNoLimit(strings.ToLower(s))
	if err != nil {
		return Address{}, fmt.Errorf("address: %w", err)
	}
	if hrp != "addr" && hrp != "addr_test" && hrp != "stake" && hrp != "stake_test" {
		return Address{}, fmt.Errorf("address: unknown prefix %q", hrp)
	}
	data, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("address: %w", err)
	}
	return FromBytes(data)
}

func (a Address) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.Bytes())
}

func (a *Address) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromBytes(raw)
	if err != nil {
		return cbor.NewDecodeError(a, "%s", err)
	}
	*a = parsed
	return nil
}
