package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Operation names accepted in signed requests.
const (
	OpInitPlatform    = "init_platform"
	OpCreateMarket    = "create_market"
	OpBuy             = "buy"
	OpSell            = "sell"
	OpResolve         = "resolve"
	OpCancel          = "cancel"
	OpRedeem          = "redeem"
	OpRedeemCancelled = "redeem_cancelled"
)

// OperationMessage is the canonical payload a caller signs to authorize one
// market operation. The timestamp bounds replay; the server rejects messages
// outside its freshness window.
type OperationMessage struct {
	Operation string
	MarketID  uint64
	Amount    uint64
	Timestamp int64
}

// canonical returns the exact byte string that is hashed and signed.
func (m OperationMessage) canonical() []byte {
	return fmt.Appendf(nil, "ghostodds:%s:%d:%d:%d",
		m.Operation, m.MarketID, m.Amount, m.Timestamp)
}

// Digest returns the EIP-191 personal-message hash of the canonical payload,
// the same digest wallets produce for personal_sign.
func (m OperationMessage) Digest() []byte {
	msg := m.canonical()
	prefixed := fmt.Appendf(nil, "\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return ethcrypto.Keccak256(prefixed)
}

// Signer signs operation messages with a secp256k1 private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign returns the hex-encoded 65-byte signature (r || s || v) over the
// message digest.
func (s *Signer) Sign(m OperationMessage) (string, error) {
	sig, err := ethcrypto.Sign(m.Digest(), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: sign operation: %w", err)
	}
	// go-ethereum yields v in {0,1}; wallets use {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverSigner recovers the address that signed the message. The server uses
// it to establish the caller identity of an operation request.
func RecoverSigner(m OperationMessage, signatureHex string) (common.Address, error) {
	sigHex := strings.TrimPrefix(signatureHex, "0x")
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}

	// Undo the wallet v offset before recovery.
	recSig := make([]byte, 65)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(m.Digest(), recSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
