package ledger

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain binds claim authorizations and requests to one ledger on one chain.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           int64          `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
}

// ClaimAuthorization is the typed message a user signs to register to an app.
type ClaimAuthorization struct {
	App             common.Address `json:"app"`
	Inviter         common.Address `json:"inviter"`
	ValidUntilBlock uint64         `json:"validUntilBlock"`
	Description     string         `json:"description"`
}

// Request authenticates the caller of a ledger write. The signature covers the
// method, the hash of the parameters, the nonce and the validity window.
type Request struct {
	Caller          common.Address `json:"caller"`
	Nonce           hexutil.Uint64 `json:"nonce"`
	ValidUntilBlock hexutil.Uint64 `json:"validUntilBlock"`
	Signature       hexutil.Bytes  `json:"signature"`
}

// HashSigner signs digests, returning 65 bytes signatures with v in {27, 28}.
type HashSigner interface {
	Address() common.Address
	SignHash(hash common.Hash) ([]byte, error)
}

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

var claimTypes = apitypes.Types{
	"EIP712Domain": domainType,
	"Claim": {
		{Name: "app", Type: "address"},
		{Name: "inviter", Type: "address"},
		{Name: "validUntilBlock", Type: "uint256"},
		{Name: "description", Type: "string"},
	},
}

var requestTypes = apitypes.Types{
	"EIP712Domain": domainType,
	"Request": {
		{Name: "method", Type: "string"},
		{Name: "caller", Type: "address"},
		{Name: "params", Type: "bytes32"},
		{Name: "nonce", Type: "uint256"},
		{Name: "validUntilBlock", Type: "uint256"},
	},
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           math.NewHexOrDecimal256(d.ChainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

func (d Domain) TypedData(claim ClaimAuthorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       claimTypes,
		PrimaryType: "Claim",
		Domain:      d.typedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"app":             claim.App.Hex(),
			"inviter":         claim.Inviter.Hex(),
			"validUntilBlock": strconv.FormatUint(claim.ValidUntilBlock, 10),
			"description":     claim.Description,
		},
	}
}

// ClaimHash is keccak256("\x19\x01" || domainSeparator || hashStruct(claim)).
func (d Domain) ClaimHash(claim ClaimAuthorization) (common.Hash, error) {
	return typedHash(d.TypedData(claim))
}

// ParamsHash is the keccak256 of the json array of the call parameters.
func ParamsHash(params ...any) (common.Hash, error) {
	if params == nil {
		params = []any{}
	}

	bz, err := json.Marshal(params)
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(bz), nil
}

// RequestHash is the typed data hash of a request to call method.
func (d Domain) RequestHash(method string, req Request, params common.Hash) (common.Hash, error) {
	return typedHash(apitypes.TypedData{
		Types:       requestTypes,
		PrimaryType: "Request",
		Domain:      d.typedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"method":          method,
			"caller":          req.Caller.Hex(),
			"params":          params.Hex(),
			"nonce":           strconv.FormatUint(uint64(req.Nonce), 10),
			"validUntilBlock": strconv.FormatUint(uint64(req.ValidUntilBlock), 10),
		},
	})
}

func typedHash(typedData apitypes.TypedData) (common.Hash, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, err
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, err
	}

	raw := make([]byte, 0, 66)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, messageHash...)

	return crypto.Keccak256Hash(raw), nil
}

// SignClaim returns a 65 bytes signature with v in {27, 28}.
func SignClaim(key *ecdsa.PrivateKey, domain Domain, claim ClaimAuthorization) ([]byte, error) {
	hash, err := domain.ClaimHash(claim)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, err
	}

	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverClaimSigner returns the address which signed the claim.
func RecoverClaimSigner(domain Domain, claim ClaimAuthorization, signature []byte) (common.Address, error) {
	hash, err := domain.ClaimHash(claim)
	if err != nil {
		return common.Address{}, err
	}

	return recoverSigner(hash, signature)
}

// SignRequest builds the request authenticating signer as the caller of
// method with params.
func SignRequest(
	signer HashSigner, domain Domain, method string, nonce, validUntilBlock uint64, params ...any,
) (Request, error) {
	req := Request{
		Caller:          signer.Address(),
		Nonce:           hexutil.Uint64(nonce),
		ValidUntilBlock: hexutil.Uint64(validUntilBlock),
	}

	paramsHash, err := ParamsHash(params...)
	if err != nil {
		return Request{}, err
	}

	hash, err := domain.RequestHash(method, req, paramsHash)
	if err != nil {
		return Request{}, err
	}

	if req.Signature, err = signer.SignHash(hash); err != nil {
		return Request{}, err
	}

	return req, nil
}

// RecoverRequestSigner returns the address which signed the request and the
// request hash.
func RecoverRequestSigner(
	domain Domain, method string, req Request, params ...any,
) (common.Address, common.Hash, error) {
	paramsHash, err := ParamsHash(params...)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}

	hash, err := domain.RequestHash(method, req, paramsHash)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}

	signer, err := recoverSigner(hash, req.Signature)
	return signer, hash, err
}

// recoverSigner accepts v in {0, 1, 27, 28} and only the lower half of s.
func recoverSigner(hash common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: invalid length %d", ErrInvalidSignature, len(signature))
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, s, true) {
		return common.Address{}, fmt.Errorf("%w: invalid signature values", ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}
