package evaluator

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/mgpai22/argentum/cbor"
	"github.com/mgpai22/argentum/chain"
	"github.com/mgpai22/argentum/ledger"
)

// utxoWire is the shape the evaluation WASM expects for one resolved
// output.
type utxoWire struct {
	Address     string            `cbor:"address"`
	TxHash      string            `cbor:"tx_hash"`
	OutputIndex uint64            `cbor:"output_index"`
	DatumHash   *string           `cbor:"datum_hash,omitempty"`
	Datum       *string           `cbor:"datum,omitempty"`
	ScriptRef   *scriptRefWire    `cbor:"script_ref,omitempty"`
	Assets      map[string]uint64 `cbor:"assets"`
}

type scriptRefWire struct {
	ScriptType string `cbor:"script_type"`
	Script     string `cbor:"script"`
}

func scriptTypeName(t uint64) string {
	switch t {
	case ledger.ScriptTypePlutusV1:
		return "plutus_v1"
	case ledger.ScriptTypePlutusV3:
		return "plutus_v3"
	default:
		return "plutus_v2"
	}
}

// wireUTxO flattens a resolved output into the evaluation wire shape.
func wireUTxO(utxo ledger.UTxO) utxoWire {
	assets := map[string]uint64{
		"lovelace": uint64(utxo.Output.Amount.Coin),
	}
	for _, policy := range utxo.Output.Amount.Assets.Policies() {
		for _, name := range utxo.Output.Amount.Assets.Names(policy) {
			assetID := policy.String() + hex.EncodeToString([]byte(name))
			assets[assetID] = uint64(utxo.Output.Amount.Assets.Quantity(policy, name))
		}
	}

	wire := utxoWire{
		Address:     utxo.Output.Address.String(),
		TxHash:      utxo.Input.TransactionID.String(),
		OutputIndex: uint64(utxo.Input.Index),
		Assets:      assets,
	}

	if utxo.Output.DatumHash != nil {
		str := utxo.Output.DatumHash.String()
		wire.DatumHash = &str
	}
	if len(utxo.Output.Datum) > 0 {
		str := hex.EncodeToString(utxo.Output.Datum)
		wire.Datum = &str
	}
	if ref := utxo.Output.ScriptRef; ref != nil && len(ref.Script) > 0 {
		wire.ScriptRef = &scriptRefWire{
			ScriptType: scriptTypeName(ref.Type),
			Script:     hex.EncodeToString(ref.Script),
		}
	}
	return wire
}

// serializeUTxOs serializes input and output byte pairs into the single
// length-prefixed buffer the WASM consumes.
func serializeUTxOs(utxosX, utxosY [][]byte) []byte {
	var buf bytes.Buffer

	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(utxosX)))

	for i := 0; i < len(utxosX); i++ {
		_ = binary.Write(&buf, binary.LittleEndian, uint64(len(utxosX[i])))
		buf.Write(utxosX[i])

		_ = binary.Write(&buf, binary.LittleEndian, uint64(len(utxosY[i])))
		buf.Write(utxosY[i])
	}

	return buf.Bytes()
}

// TxFromBytes decodes an encoded transaction.
func TxFromBytes(txBytes []byte) (*ledger.Transaction, error) {
	tx := &ledger.Transaction{}
	if err := cbor.Unmarshal(txBytes, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// ResolveInputs resolves every input of an encoded transaction through the
// given resolver, in body input order.
func ResolveInputs(ctx context.Context, txBytes []byte, resolver chain.UTxOResolver) ([]ledger.UTxO, error) {
	tx, err := TxFromBytes(txBytes)
	if err != nil {
		return nil, err
	}
	utxos := make([]ledger.UTxO, 0, len(tx.Body.Inputs))
	for _, input := range tx.Body.Inputs {
		utxo, err := resolver.ResolveUTxO(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("UTxO not found for input %s: %w", input, err)
		}
		utxos = append(utxos, utxo)
	}
	return utxos, nil
}
