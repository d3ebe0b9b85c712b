package ledger

import (
	"github.com/mgpai22/argentum/cbor"
)

// Native script type discriminants.
const (
	nativeScriptPubkey        = 0
	nativeScriptAll           = 1
	nativeScriptAny           = 2
	nativeScriptNofK          = 3
	nativeScriptInvalidBefore = 4
	nativeScriptInvalidAfter  = 5
)

// NativeScript is a phase-1 multisig/timelock script. Each variant
// serializes as a sequence led by its discriminant; decoding an unknown
// discriminant fails closed.
type NativeScript interface {
	isNativeScript()
}

// ScriptPubkey requires a signature by the named key.
type ScriptPubkey struct {
	KeyHash AddrKeyHash
}

// ScriptAll requires all sub-scripts to validate.
type ScriptAll struct {
	Scripts NativeScripts
}

// ScriptAny requires at least one sub-script to validate.
type ScriptAny struct {
	Scripts NativeScripts
}

// ScriptNofK requires at least N sub-scripts to validate.
type ScriptNofK struct {
	N       uint64
	Scripts NativeScripts
}

// InvalidBefore fails validation in slots earlier than Slot.
type InvalidBefore struct {
	Slot uint64
}

// InvalidHereafter fails validation in slots later than Slot.
type InvalidHereafter struct {
	Slot uint64
}

func (ScriptPubkey) isNativeScript()     {}
func (ScriptAll) isNativeScript()        {}
func (ScriptAny) isNativeScript()        {}
func (ScriptNofK) isNativeScript()       {}
func (InvalidBefore) isNativeScript()    {}
func (InvalidHereafter) isNativeScript() {}

func (s ScriptPubkey) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]interface{}{uint64(nativeScriptPubkey), s.KeyHash})
}

func (s ScriptAll) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]interface{}{uint64(nativeScriptAll), s.Scripts})
}

func (s ScriptAny) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]interface{}{uint64(nativeScriptAny), s.Scripts})
}

func (s ScriptNofK) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]interface{}{uint64(nativeScriptNofK), s.N, s.Scripts})
}

func (s InvalidBefore) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]interface{}{uint64(nativeScriptInvalidBefore), s.Slot})
}

func (s InvalidHereafter) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]interface{}{uint64(nativeScriptInvalidAfter), s.Slot})
}

// DecodeNativeScript reconstructs a native script from its encoded form.
func DecodeNativeScript(data []byte) (NativeScript, error) {
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, cbor.NewDecodeError((*NativeScript)(nil), "empty native script")
	}
	var kind uint64
	if err := cbor.Unmarshal(items[0], &kind); err != nil {
		return nil, err
	}
	switch kind {
	case nativeScriptPubkey:
		if len(items) != 2 {
			return nil, cbor.NewDecodeError((*NativeScript)(nil), "pubkey script must have 2 elements, got %d", len(items))
		}
		var s ScriptPubkey
		if err := cbor.Unmarshal(items[1], &s.KeyHash); err != nil {
			return nil, err
		}
		return s, nil
	case nativeScriptAll, nativeScriptAny:
		if len(items) != 2 {
			return nil, cbor.NewDecodeError((*NativeScript)(nil), "script combinator must have 2 elements, got %d", len(items))
		}
		var scripts NativeScripts
		if err := cbor.Unmarshal(items[1], &scripts); err != nil {
			return nil, err
		}
		if kind == nativeScriptAll {
			return ScriptAll{Scripts: scripts}, nil
		}
		return ScriptAny{Scripts: scripts}, nil
	case nativeScriptNofK:
		if len(items) != 3 {
			return nil, cbor.NewDecodeError((*NativeScript)(nil), "n-of-k script must have 3 elements, got %d", len(items))
		}
		var s ScriptNofK
		if err := cbor.Unmarshal(items[1], &s.N); err != nil {
			return nil, err
		}
		if err := cbor.Unmarshal(items[2], &s.Scripts); err != nil {
			return nil, err
		}
		return s, nil
	case nativeScriptInvalidBefore, nativeScriptInvalidAfter:
		if len(items) != 2 {
			return nil, cbor.NewDecodeError((*NativeScript)(nil), "timelock script must have 2 elements, got %d", len(items))
		}
		var slot uint64
		if err := cbor.Unmarshal(items[1], &slot); err != nil {
			return nil, err
		}
		if kind == nativeScriptInvalidBefore {
			return InvalidBefore{Slot: slot}, nil
		}
		return InvalidHereafter{Slot: slot}, nil
	default:
		return nil, cbor.NewDecodeError((*NativeScript)(nil), "unknown native script discriminant %d", kind)
	}
}

// NativeScripts decodes a sequence of native scripts with per-element
// variant dispatch.
type NativeScripts []NativeScript

func (s *NativeScripts) UnmarshalCBOR(data []byte) error {
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(NativeScripts, 0, len(items))
	for _, item := range items {
		script, err := DecodeNativeScript(item)
		if err != nil {
			return err
		}
		out = append(out, script)
	}
	*s = out
	return nil
}

// NativeScriptHash is the script hash: blake2b-224 over the canonical
// script bytes prefixed with the native-script language byte.
func NativeScriptHash(s NativeScript) (ScriptHash, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return ScriptHash{}, err
	}
	return Blake2b224Hash(append([]byte{0x00}, data...)), nil
}

// NativeScriptSigners collects every key hash a native script can demand a
// signature from.
func NativeScriptSigners(s NativeScript) []AddrKeyHash {
	switch script := s.(type) {
	case ScriptPubkey:
		return []AddrKeyHash{script.KeyHash}
	case ScriptAll:
		return collectSigners(script.Scripts)
	case ScriptAny:
		return collectSigners(script.Scripts)
	case ScriptNofK:
		return collectSigners(script.Scripts)
	default:
		return nil
	}
}

func collectSigners(scripts NativeScripts) []AddrKeyHash {
	var out []AddrKeyHash
	for _, s := range scripts {
		out = append(out, NativeScriptSigners(s)...)
	}
	return out
}
