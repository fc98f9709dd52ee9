// Package noteenc implements note encryption: a Diffie-Hellman-derived XOR
// stream cipher keyed by a repeated Keccak-256 KDF, with two ephemeral
// points so either the receiver (via their decryption key and epk1) or the
// original sender (via their own decryption key and epk2) can recover a
// note's contents later.
package noteenc

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/primitives"
)

// Ciphertext is the on-wire encrypted note: two ephemeral points, the
// binding hash folded into the KDF, and the ciphertext of the plaintext
// note bytes. Both ciphertext fields are keyed by the Diffie-Hellman point
// esk * pk_d, so ReceiverCT and SenderCT hold the same bytes.
type Ciphertext struct {
	Epk1        *primitives.Point // esk * H(d), used by the receiver via dk
	Epk2        *primitives.Point // dk_sender^-1 * (esk * pk_d), used by the sender for later recovery
	Binding      []byte            // e.g. the note hash, bound into the KDF
	ReceiverCT   []byte
	SenderCT     []byte
}

// Encrypt encrypts plaintext (the note's compressed bytes) to a recipient
// diversified address (diversifier d, public point pk_d) such that:
//   - the recipient can decrypt using their own decryption key dk_r, and
//   - the original sender can later recover the plaintext using only their
//     own decryption key dk_s, without having kept the ephemeral secret esk.
func Encrypt(p *params.Params, d *big.Int, pkD *primitives.Point, dkSender *big.Int, binding []byte, plaintext []byte) (*Ciphertext, error) {
	esk, err := rand.Int(rand.Reader, p.EmbeddedOrder)
	if err != nil {
		return nil, fmt.Errorf("noteenc: random esk: %w", err)
	}

	hd, err := primitives.DiversifierPoint(p, d)
	if err != nil {
		return nil, fmt.Errorf("noteenc: diversifier point: %w", err)
	}
	epk1 := primitives.ScalarMul(hd, esk)

	shared1 := primitives.ScalarMul(pkD, esk) // esk * pk_d == dk_r * epk1
	receiverCT, err := xorStream(p, shared1.X(), binding, plaintext)
	if err != nil {
		return nil, fmt.Errorf("noteenc: receiver stream: %w", err)
	}

	senderCT, err := xorStream(p, shared1.X(), binding, plaintext)
	if err != nil {
		return nil, fmt.Errorf("noteenc: sender stream: %w", err)
	}

	dkInv := new(big.Int).ModInverse(dkSender, p.EmbeddedOrder)
	if dkInv == nil {
		return nil, fmt.Errorf("noteenc: sender decryption key has no inverse mod embedded order")
	}
	epk2 := primitives.ScalarMul(shared1, dkInv)

	return &Ciphertext{
		Epk1:       epk1,
		Epk2:       epk2,
		Binding:    binding,
		ReceiverCT: receiverCT,
		SenderCT:   senderCT,
	}, nil
}

// DecryptAsReceiver recovers the plaintext using the recipient's own
// decryption key.
func DecryptAsReceiver(p *params.Params, ct *Ciphertext, dkReceiver *big.Int) ([]byte, error) {
	shared1 := primitives.ScalarMul(ct.Epk1, dkReceiver)
	return xorStream(p, shared1.X(), ct.Binding, ct.ReceiverCT)
}

// DecryptAsSender recovers the plaintext using the original sender's own
// decryption key, without needing the ephemeral secret used at send time:
// dk_sender * epk2 == dk_sender * dk_sender^-1 * (esk * pk_d) == esk * pk_d,
// the shared point the KDF was seeded with when first encrypting.
func DecryptAsSender(p *params.Params, ct *Ciphertext, dkSender *big.Int) ([]byte, error) {
	recoveredEpk1 := primitives.ScalarMul(ct.Epk2, dkSender)
	return xorStream(p, recoveredEpk1.X(), ct.Binding, ct.SenderCT)
}

// xorStream derives a keystream of len(plaintext) bytes from repeated
// Keccak256(dhX || binding || counter) blocks and XORs it with plaintext,
// matching spec §4.B's note encryption construction.
func xorStream(p *params.Params, dhX *big.Int, binding []byte, data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	dhBytes := dhX.Bytes()

	counter := uint64(0)
	produced := 0
	for produced < len(data) {
		counterBytes := uint64ToBytes(counter)
		block := primitives.Keccak256(dhBytes, binding, counterBytes)
		n := copy(out[produced:], xorBlock(block, data[produced:]))
		produced += n
		counter++
	}
	return out, nil
}

func xorBlock(key, data []byte) []byte {
	n := len(data)
	if n > len(key) {
		n = len(key)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = key[i] ^ data[i]
	}
	return out
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
