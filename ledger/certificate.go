package ledger

import (
	"github.com/mgpai22/argentum/cbor"
)

// Stake credential discriminants.
const (
	credentialKey    = 0
	credentialScript = 1
)

// StakeCredential names the holder of a staking right: either a key hash or
// a script hash, distinguished by a leading discriminant on the wire.
type StakeCredential struct {
	Kind uint64
	Hash Blake2b224
}

// NewKeyCredential wraps a verification key hash.
func NewKeyCredential(hash AddrKeyHash) StakeCredential {
	return StakeCredential{Kind: credentialKey, Hash: hash}
}

// NewScriptCredential wraps a script hash.
func NewScriptCredential(hash ScriptHash) StakeCredential {
	return StakeCredential{Kind: credentialScript, Hash: hash}
}

// IsKey reports whether the credential is a key hash.
func (c StakeCredential) IsKey() bool { return c.Kind == credentialKey }

func (c StakeCredential) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]interface{}{c.Kind, c.Hash})
}

func (c *StakeCredential) UnmarshalCBOR(data []byte) error {
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) != 2 {
		return cbor.NewDecodeError(c, "stake credential must have 2 elements, got %d", len(items))
	}
	var kind uint64
	if err := cbor.Unmarshal(items[0], &kind); err != nil {
		return err
	}
	if kind != credentialKey && kind != credentialScript {
		return cbor.NewDecodeError(c, "unknown stake credential discriminant %d", kind)
	}
	var hash Blake2b224
	if err := cbor.Unmarshal(items[1], &hash); err != nil {
		return err
	}
	*c = StakeCredential{Kind: kind, Hash: hash}
	return nil
}

// Certificate discriminants.
const (
	CertStakeRegistration   = 0
	CertStakeDeregistration = 1
	CertStakeDelegation     = 2
	CertPoolRetirement      = 4
)

// Certificate is a tagged variant dispatched on its leading discriminant.
// Unknown discriminants fail closed on decode; known discriminants carrying
// more fields than this implementation declares keep the surplus in Extra
// and re-emit it on encode, so newer wire formats survive a round trip.
type Certificate interface {
	isCertificate()
	// Kind returns the wire discriminant.
	Kind() uint64
}

// StakeRegistration registers a stake credential.
type StakeRegistration struct {
	Credential StakeCredential
	Extra      []cbor.RawMessage
}

// StakeDeregistration retires a stake credential.
type StakeDeregistration struct {
	Credential StakeCredential
	Extra      []cbor.RawMessage
}

// StakeDelegation delegates a stake credential to a pool.
type StakeDelegation struct {
	Credential  StakeCredential
	PoolKeyHash PoolKeyHash
	Extra       []cbor.RawMessage
}

// PoolRetirement schedules a pool's retirement at an epoch.
type PoolRetirement struct {
	PoolKeyHash PoolKeyHash
	Epoch       uint64
	Extra       []cbor.RawMessage
}

func (StakeRegistration) isCertificate()   {}
func (StakeDeregistration) isCertificate() {}
func (StakeDelegation) isCertificate()     {}
func (PoolRetirement) isCertificate()      {}

func (StakeRegistration) Kind() uint64   { return CertStakeRegistration }
func (StakeDeregistration) Kind() uint64 { return CertStakeDeregistration }
func (StakeDelegation) Kind() uint64     { return CertStakeDelegation }
func (PoolRetirement) Kind() uint64      { return CertPoolRetirement }

func marshalCertificate(kind uint64, fields []interface{}, extra []cbor.RawMessage) ([]byte, error) {
	items := make([]interface{}, 0, 1+len(fields)+len(extra))
	items = append(items, kind)
	items = append(items, fields...)
	for _, e := range extra {
		items = append(items, e)
	}
	return cbor.Marshal(items)
}

func (c StakeRegistration) MarshalCBOR() ([]byte, error) {
	return marshalCertificate(CertStakeRegistration, []interface{}{c.Credential}, c.Extra)
}

func (c StakeDeregistration) MarshalCBOR() ([]byte, error) {
	return marshalCertificate(CertStakeDeregistration, []interface{}{c.Credential}, c.Extra)
}

func (c StakeDelegation) MarshalCBOR() ([]byte, error) {
	return marshalCertificate(CertStakeDelegation, []interface{}{c.Credential, c.PoolKeyHash}, c.Extra)
}

func (c PoolRetirement) MarshalCBOR() ([]byte, error) {
	return marshalCertificate(CertPoolRetirement, []interface{}{c.PoolKeyHash, c.Epoch}, c.Extra)
}

// DecodeCertificate reconstructs a certificate, failing closed on unknown
// discriminants.
func DecodeCertificate(data []byte) (Certificate, error) {
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, cbor.NewDecodeError((*Certificate)(nil), "empty certificate")
	}
	var kind uint64
	if err := cbor.Unmarshal(items[0], &kind); err != nil {
		return nil, err
	}
	switch kind {
	case CertStakeRegistration, CertStakeDeregistration:
		if len(items) < 2 {
			return nil, cbor.NewDecodeError((*Certificate)(nil), "stake certificate %d must have a credential", kind)
		}
		var cred StakeCredential
		if err := cbor.Unmarshal(items[1], &cred); err != nil {
			return nil, err
		}
		if kind == CertStakeRegistration {
			return StakeRegistration{Credential: cred, Extra: extraFields(items, 2)}, nil
		}
		return StakeDeregistration{Credential: cred, Extra: extraFields(items, 2)}, nil
	case CertStakeDelegation:
		if len(items) < 3 {
			return nil, cbor.NewDecodeError((*Certificate)(nil), "stake delegation must have 3 elements, got %d", len(items))
		}
		var cert StakeDelegation
		if err := cbor.Unmarshal(items[1], &cert.Credential); err != nil {
			return nil, err
		}
		if err := cbor.Unmarshal(items[2], &cert.PoolKeyHash); err != nil {
			return nil, err
		}
		cert.Extra = extraFields(items, 3)
		return cert, nil
	case CertPoolRetirement:
		if len(items) < 3 {
			return nil, cbor.NewDecodeError((*Certificate)(nil), "pool retirement must have 3 elements, got %d", len(items))
		}
		var cert PoolRetirement
		if err := cbor.Unmarshal(items[1], &cert.PoolKeyHash); err != nil {
			return nil, err
		}
		if err := cbor.Unmarshal(items[2], &cert.Epoch); err != nil {
			return nil, err
		}
		cert.Extra = extraFields(items, 3)
		return cert, nil
	default:
		return nil, cbor.NewDecodeError((*Certificate)(nil), "unknown certificate discriminant %d", kind)
	}
}

func extraFields(items []cbor.RawMessage, declared int) []cbor.RawMessage {
	if len(items) <= declared {
		return nil
	}
	return items[declared:]
}

// Certificates decodes a certificate sequence with per-element dispatch.
type Certificates []Certificate

func (c *Certificates) UnmarshalCBOR(data []byte) error {
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Certificates, 0, len(items))
	for _, item := range items {
		cert, err := DecodeCertificate(item)
		if err != nil {
			return err
		}
		out = append(out, cert)
	}
	*c = out
	return nil
}
