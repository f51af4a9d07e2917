package ledger

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/stretchr/testify/require"
)

func newTestRPC(t *testing.T, tl *testLedger) *rpc.Client {
	handler := rpc.NewServer()
	require.NoError(t, handler.RegisterName("ledger", NewService(tl.ctx, tl.Ledger)))

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Cleanup(handler.Stop)

	client, err := rpc.DialContext(context.Background(), server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func (tl *testLedger) newAdmin(t *testing.T) *blockchain.LocalSigner {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signer := blockchain.NewLocalSigner(key)
	require.NoError(t, tl.SetAdmin(tl.ctx, admin, signer.Address(), true))
	return signer
}

func TestService_ReadOverHTTP(t *testing.T) {
	tl := newTestLedger(t, 0)
	tl.registerApp(t)
	client := newTestRPC(t, tl)

	var amount hexutil.Big
	require.NoError(t, client.CallContext(context.Background(), &amount, "ledger_rewardAmount"))
	require.Equal(t, int64(10), amount.ToInt().Int64())

	var app AppInfo
	require.NoError(t, client.CallContext(context.Background(), &app, "ledger_getApp", appAddress))
	require.Equal(t, owner, app.Owner)
	require.True(t, app.IsApproved)

	var events []Event
	require.NoError(t, client.CallContext(context.Background(), &events, "ledger_listEvents", "app_approved"))
	require.Len(t, events, 1)
}

func TestService_SignedWriteOverHTTP(t *testing.T) {
	tl := newTestLedger(t, 0)
	client := newTestRPC(t, tl)
	signer := tl.newAdmin(t)

	amount := (*hexutil.Big)(big.NewInt(25))
	req, err := SignRequest(signer, tl.Domain(), "setRewardAmount", 1, tl.BlockNumber()+5, amount)
	require.NoError(t, err)
	require.NoError(t, client.CallContext(context.Background(), nil, "ledger_setRewardAmount", req, amount))

	reward, err := tl.RewardAmount(tl.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(25), reward.Int64())

	// The same request cannot be sent twice.
	err = client.CallContext(context.Background(), nil, "ledger_setRewardAmount", req, amount)
	require.ErrorContains(t, err, ErrRequestReplayed.Error())
}

func TestService_ForgedCaller(t *testing.T) {
	tl := newTestLedger(t, 0)
	svc := NewService(tl.ctx, tl.Ledger)
	adminSigner := tl.newAdmin(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	strangerSigner := blockchain.NewLocalSigner(key)
	amount := (*hexutil.Big)(big.NewInt(99))

	// Signed by a stranger claiming to be the admin.
	req, err := SignRequest(strangerSigner, tl.Domain(), "setRewardAmount", 1, tl.BlockNumber()+5, amount)
	require.NoError(t, err)
	req.Caller = adminSigner.Address()
	require.ErrorIs(t, svc.SetRewardAmount(context.Background(), req, amount), ErrUnauthorized)

	// Signed by the admin for another amount.
	req, err = SignRequest(adminSigner, tl.Domain(), "setRewardAmount", 2, tl.BlockNumber()+5, amount)
	require.NoError(t, err)
	require.ErrorIs(t, svc.SetRewardAmount(context.Background(), req, (*hexutil.Big)(big.NewInt(100))), ErrUnauthorized)

	// Signed by the admin for another method.
	req, err = SignRequest(adminSigner, tl.Domain(), "setRewardAmount", 3, tl.BlockNumber()+5, amount)
	require.NoError(t, err)
	require.ErrorIs(t, svc.SetMaxRewardsPerApp(context.Background(), req, amount), ErrUnauthorized)

	// A stranger signing for itself is still not admin.
	req, err = SignRequest(strangerSigner, tl.Domain(), "setRewardAmount", 4, tl.BlockNumber()+5, amount)
	require.NoError(t, err)
	require.ErrorIs(t, svc.SetRewardAmount(context.Background(), req, amount), ErrUnauthorized)

	req, err = SignRequest(adminSigner, tl.Domain(), "setRewardAmount", 5, tl.BlockNumber()-1, amount)
	require.NoError(t, err)
	require.ErrorIs(t, svc.SetRewardAmount(context.Background(), req, amount), ErrSignatureExpired)

	reward, err := tl.RewardAmount(tl.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), reward.Int64())
}

func TestService_ClaimWithSignature(t *testing.T) {
	tl := newTestLedger(t, 1000)
	tl.registerApp(t)
	svc := NewService(tl.ctx, tl.Ledger)
	key, user := tl.newUser(t)
	signer := blockchain.NewLocalSigner(key)

	validUntil := hexutil.Uint64(tl.BlockNumber() + 5)
	claimSig := hexutil.Bytes(tl.sign(t, key, uint64(validUntil)))

	// The claim is paid to the signer of the request, never to another user.
	_, other := tl.newUser(t)
	req, err := SignRequest(signer, tl.Domain(), "claimWithSignature", 1, uint64(validUntil),
		appAddress, inviter, validUntil, claimSig)
	require.NoError(t, err)
	req.Caller = other
	_, err = svc.ClaimWithSignature(context.Background(), req, appAddress, inviter, validUntil, claimSig)
	require.ErrorIs(t, err, ErrUnauthorized)

	req, err = SignRequest(signer, tl.Domain(), "claimWithSignature", 2, uint64(validUntil),
		appAddress, inviter, validUntil, claimSig)
	require.NoError(t, err)
	result, err := svc.ClaimWithSignature(context.Background(), req, appAddress, inviter, validUntil, claimSig)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(6), tl.balance(t, user))
	require.Equal(t, int64(0), tl.balance(t, other))
}

func TestRecoverRequestSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := blockchain.NewLocalSigner(key)
	domain := Domain{Name: "Ledger", Version: "1", ChainID: 122, VerifyingContract: ledgerAddress}

	req, err := SignRequest(signer, domain, "approve", 7, 100, appAddress)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), req.Caller)

	recovered, _, err := RecoverRequestSigner(domain, "approve", req, appAddress)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), recovered)

	req.Signature = req.Signature[:64]
	_, _, err = RecoverRequestSigner(domain, "approve", req, appAddress)
	require.ErrorIs(t, err, ErrInvalidSignature)

	recovered, _, err = RecoverRequestSigner(domain, "approve", Request{Signature: make([]byte, 65)}, common.Address{})
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Equal(t, common.Address{}, recovered)
}
