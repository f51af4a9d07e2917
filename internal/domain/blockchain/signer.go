package blockchain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/pkg/ethutil"
)

var (
	ErrNotEnoughBalance  = errors.New("balance smaller than minimum required for this transaction")
	ErrCannotSignLocally = errors.New("key of the account is not held by this process")
)

// Signer signs transactions and hashes on behalf of one account.
type Signer interface {
	Address() common.Address

	// CanSignLocally is true when the key is held by this process. Otherwise
	// the node is asked to sign with an account it manages, and SignTx and
	// SignHash fail with ErrCannotSignLocally.
	CanSignLocally() bool
	SignTx(tx *ethtypes.Transaction, chainID int64) (*ethtypes.Transaction, error)
	SignHash(hash common.Hash) ([]byte, error)
}

// NewSigner selects the signer once from the configuration: a raw private key,
// then a key derived from secret and nonce, then a node managed address.
func NewSigner(cfg config.SignerConfigs) (Signer, error) {
	switch {
	case cfg.PrivateKey != "":
		key, err := ethutil.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid signer private key: %v", ErrMisconfigured, err)
		}

		return NewLocalSigner(key), nil

	case cfg.Secret != "":
		key, err := ethutil.GeneratePrivateKey([]byte(cfg.Secret), []byte(cfg.Nonce))
		if err != nil {
			return nil, fmt.Errorf("%w: cannot derive signer key: %v", ErrMisconfigured, err)
		}

		return NewLocalSigner(key), nil

	case cfg.Address != "":
		address, err := ethutil.ParseAddress(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
		}

		return NewDelegatedSigner(address), nil
	}

	return nil, fmt.Errorf("%w: no signer configured", ErrMisconfigured)
}

type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) CanSignLocally() bool {
	return true
}

func (s *LocalSigner) SignTx(tx *ethtypes.Transaction, chainID int64) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(big.NewInt(chainID)), s.key)
}

// SignHash returns a 65 bytes signature with v in {27, 28}.
func (s *LocalSigner) SignHash(hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return nil, err
	}

	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// DelegatedSigner only knows its address, transactions are signed by the node.
type DelegatedSigner struct {
	address common.Address
}

func NewDelegatedSigner(address common.Address) *DelegatedSigner {
	return &DelegatedSigner{address: address}
}

func (s *DelegatedSigner) Address() common.Address {
	return s.address
}

func (s *DelegatedSigner) CanSignLocally() bool {
	return false
}

func (s *DelegatedSigner) SignTx(*ethtypes.Transaction, int64) (*ethtypes.Transaction, error) {
	return nil, fmt.Errorf("%w: %s", ErrCannotSignLocally, s.address)
}

func (s *DelegatedSigner) SignHash(common.Hash) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", ErrCannotSignLocally, s.address)
}
