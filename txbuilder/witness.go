package txbuilder

import (
	"encoding/binary"

	"github.com/mgpai22/argentum/ledger"
)

// Sizing uses placeholder witnesses so the measured candidate transaction
// is at least as large as the signed one. Each placeholder is unique per
// index so the keys do not deduplicate away.
func fakeVKeyWitness(index int) ledger.VKeyWitness {
	vkey := make([]byte, 32)
	sig := make([]byte, 64)
	for i := range vkey {
		vkey[i] = 0x57
	}
	for i := range sig {
		sig[i] = 0x2a
	}
	binary.BigEndian.PutUint64(vkey[24:], uint64(index))
	binary.BigEndian.PutUint64(sig[56:], uint64(index))
	return ledger.VKeyWitness{VKey: vkey, Signature: sig}
}

func fakeVKeyWitnesses(count int) []ledger.VKeyWitness {
	if count < 1 {
		count = 1
	}
	out := make([]ledger.VKeyWitness, count)
	for i := range out {
		out[i] = fakeVKeyWitness(i)
	}
	return out
}
