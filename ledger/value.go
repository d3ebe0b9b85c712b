package ledger

import (
	"fmt"
	"sort"

	"github.com/mgpai22/argentum/cbor"
)

// MaxAssetNameLength is the ledger bound on asset name size.
const MaxAssetNameLength = 32

// AssetName is an asset-name byte string of at most 32 bytes, held in a
// string so it can key maps.
type AssetName string

// NewAssetName wraps raw name bytes.
func NewAssetName(data []byte) (AssetName, error) {
	if len(data) > MaxAssetNameLength {
		return "", fmt.Errorf("ledger: asset name exceeds %d bytes: %d", MaxAssetNameLength, len(data))
	}
	return AssetName(data), nil
}

// Bytes returns the raw name.
func (n AssetName) Bytes() []byte { return []byte(n) }

// String returns the hex form, matching how asset names are displayed.
func (n AssetName) String() string { return cbor.ByteString(n).String() }

func (n AssetName) MarshalCBOR() ([]byte, error) {
	if len(n) > MaxAssetNameLength {
		return nil, &cbor.EncodeError{Value: n, Err: fmt.Errorf("asset name exceeds %d bytes", MaxAssetNameLength)}
	}
	return cbor.Marshal([]byte(n))
}

func (n *AssetName) UnmarshalCBOR(data []byte) error {
	var payload []byte
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return err
	}
	name, err := NewAssetName(payload)
	if err != nil {
		return cbor.NewDecodeError(n, "%s", err)
	}
	*n = name
	return nil
}

// Asset maps asset names to signed quantities under one policy.
type Asset map[AssetName]int64

func (a Asset) Clone() Asset {
	out := make(Asset, len(a))
	for n, q := range a {
		out[n] = q
	}
	return out
}

// MultiAsset maps policy ids to their asset quantities. Zero-quantity
// entries are pruned by every arithmetic operation, and the canonical
// encoder orders policies and names on the wire.
type MultiAsset map[PolicyID]Asset

func (m MultiAsset) Clone() MultiAsset {
	out := make(MultiAsset, len(m))
	for p, a := range m {
		out[p] = a.Clone()
	}
	return out
}

// Add returns the entry-wise sum, pruning zero quantities.
func (m MultiAsset) Add(other MultiAsset) MultiAsset {
	out := m.Clone()
	for p, assets := range other {
		if _, ok := out[p]; !ok {
			out[p] = Asset{}
		}
		for n, q := range assets {
			out[p][n] += q
		}
	}
	return out.prune()
}

// Sub returns the entry-wise difference, pruning zero quantities. Missing
// entries subtract into negative quantities rather than erroring; callers
// check sign where the ledger requires non-negativity.
func (m MultiAsset) Sub(other MultiAsset) MultiAsset {
	out := m.Clone()
	for p, assets := range other {
		if _, ok := out[p]; !ok {
			out[p] = Asset{}
		}
		for n, q := range assets {
			out[p][n] -= q
		}
	}
	return out.prune()
}

func (m MultiAsset) prune() MultiAsset {
	for p, assets := range m {
		for n, q := range assets {
			if q == 0 {
				delete(assets, n)
			}
		}
		if len(assets) == 0 {
			delete(m, p)
		}
	}
	return m
}

// Filter keeps entries the criteria accepts.
func (m MultiAsset) Filter(criteria func(policy PolicyID, name AssetName, quantity int64) bool) MultiAsset {
	out := MultiAsset{}
	for p, assets := range m {
		for n, q := range assets {
			if criteria(p, n, q) {
				if _, ok := out[p]; !ok {
					out[p] = Asset{}
				}
				out[p][n] = q
			}
		}
	}
	return out
}

// Count reports how many entries the criteria accepts.
func (m MultiAsset) Count(criteria func(policy PolicyID, name AssetName, quantity int64) bool) int {
	count := 0
	for p, assets := range m {
		for n, q := range assets {
			if criteria(p, n, q) {
				count++
			}
		}
	}
	return count
}

// Quantity returns the quantity of one asset class, zero when absent.
func (m MultiAsset) Quantity(policy PolicyID, name AssetName) int64 {
	return m[policy][name]
}

// Equal is structural equality, treating absent and zero as distinct; both
// sides are expected to be pruned.
func (m MultiAsset) Equal(other MultiAsset) bool {
	if len(m) != len(other) {
		return false
	}
	for p, assets := range m {
		otherAssets, ok := other[p]
		if !ok || len(assets) != len(otherAssets) {
			return false
		}
		for n, q := range assets {
			if otherAssets[n] != q {
				return false
			}
		}
	}
	return true
}

// LessOrEqual reports whether every quantity in m is covered by other.
func (m MultiAsset) LessOrEqual(other MultiAsset) bool {
	for p, assets := range m {
		for n, q := range assets {
			if other.Quantity(p, n) < q {
				return false
			}
		}
	}
	return true
}

// Policies returns the policy ids in canonical order.
func (m MultiAsset) Policies() []PolicyID {
	out := make([]PolicyID, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Names returns one policy's asset names in canonical order.
func (m MultiAsset) Names(policy PolicyID) []AssetName {
	assets := m[policy]
	out := make([]AssetName, 0, len(assets))
	for n := range assets {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return out
}

// Value is a base-currency quantity plus a multi-asset map. The base
// currency is tracked separately and never appears in Assets.
type Value struct {
	Coin   int64
	Assets MultiAsset
}

// NewValue returns a pure base-currency value.
func NewValue(coin int64) Value {
	return Value{Coin: coin}
}

// NewValueWithAssets returns a value carrying native assets.
func NewValueWithAssets(coin int64, assets MultiAsset) Value {
	return Value{Coin: coin, Assets: assets.Clone().prune()}
}

func (v Value) Clone() Value {
	return Value{Coin: v.Coin, Assets: v.Assets.Clone()}
}

func (v Value) Add(other Value) Value {
	return Value{Coin: v.Coin + other.Coin, Assets: v.Assets.Add(other.Assets)}
}

func (v Value) AddCoin(coin int64) Value {
	return Value{Coin: v.Coin + coin, Assets: v.Assets.Clone()}
}

func (v Value) Sub(other Value) Value {
	return Value{Coin: v.Coin - other.Coin, Assets: v.Assets.Sub(other.Assets)}
}

func (v Value) Equal(other Value) bool {
	return v.Coin == other.Coin && v.Assets.Equal(other.Assets)
}

// LessOrEqual reports whether other covers every quantity in v.
func (v Value) LessOrEqual(other Value) bool {
	return v.Coin <= other.Coin && v.Assets.LessOrEqual(other.Assets)
}

// IsZero reports whether no quantity is present.
func (v Value) IsZero() bool {
	return v.Coin == 0 && len(v.Assets) == 0
}

// Clamp drops every negative quantity, keeping the non-negative rest.
func (v Value) Clamp() Value {
	out := Value{Assets: v.Assets.Filter(func(_ PolicyID, _ AssetName, q int64) bool { return q > 0 })}
	if v.Coin > 0 {
		out.Coin = v.Coin
	}
	return out
}

// HasNegative reports whether any quantity is negative.
func (v Value) HasNegative() bool {
	if v.Coin < 0 {
		return true
	}
	return v.Assets.Count(func(_ PolicyID, _ AssetName, q int64) bool { return q < 0 }) > 0
}

func (v Value) String() string {
	if len(v.Assets) == 0 {
		return fmt.Sprintf("%d", v.Coin)
	}
	return fmt.Sprintf("%d + %d asset classes", v.Coin,
		v.Assets.Count(func(_ PolicyID, _ AssetName, _ int64) bool { return true }))
}

type valuePair struct {
	_      struct{} `cbor:",toarray"`
	Coin   int64
	Assets MultiAsset
}

// MarshalCBOR encodes a pure-coin value as a bare integer and a value with
// assets as the two-element sequence, matching the ledger's value CDDL.
func (v Value) MarshalCBOR() ([]byte, error) {
	if v.HasNegative() {
		return nil, &cbor.EncodeError{Value: v, Err: fmt.Errorf("negative quantity in value")}
	}
	if len(v.Assets) == 0 {
		return cbor.Marshal(v.Coin)
	}
	return cbor.Marshal(valuePair{Coin: v.Coin, Assets: v.Assets})
}

func (v *Value) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return cbor.NewDecodeError(v, "empty input")
	}
	switch data[0] >> 5 {
	case 0, 1: // integer
		var coin int64
		if err := cbor.Unmarshal(data, &coin); err != nil {
			return err
		}
		*v = Value{Coin: coin}
		return nil
	case 4: // sequence
		var pair valuePair
		if err := cbor.Unmarshal(data, &pair); err != nil {
			return err
		}
		*v = Value{Coin: pair.Coin, Assets: pair.Assets}
		return nil
	default:
		return cbor.NewDecodeError(v, "value must be an integer or a [coin, assets] sequence")
	}
}
