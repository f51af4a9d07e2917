package claim

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/contract/ubi"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/questx-lab/engagement/internal/domain/identity"
	"github.com/questx-lab/engagement/mocks"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/errorx"
	"github.com/questx-lab/engagement/pkg/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	celoUBI = "0x43d72Ff17701B2DA814620735C39C620Ce0ea4A1"
	fuseUBI = "0xd253A5203817225e9768C05E5996d642fb96bA86"
	ethUBI  = "0x000000000000000000000000000000000000dEaD"
)

type fakeFaucet struct {
	ok    bool
	err   error
	calls int
}

func (f *fakeFaucet) CheckBalanceWithRetry(context.Context, int64, common.Address) (bool, error) {
	f.calls++
	return f.ok, f.err
}

type countingResolver struct {
	identity.Resolver
	calls int
}

func (r *countingResolver) ResolveRoot(ctx context.Context, chainID int64, account common.Address) (identity.Root, error) {
	r.calls++
	return r.Resolver.ResolveRoot(ctx, chainID, account)
}

type testOrchestrator struct {
	*Orchestrator
	ctx      context.Context
	clients  map[string]*mocks.EthClient
	resolver *identity.StaticResolver
	counter  *countingResolver
	faucet   *fakeFaucet
	account  common.Address
	root     common.Address
}

func newTestOrchestrator(t *testing.T) *testOrchestrator {
	contracts := func(address string) map[string]config.ChainContracts {
		return map[string]config.ChainContracts{config.EnvProduction: {UBI: address}}
	}

	registry, err := config.NewChainRegistry(config.EnvProduction, 42220, []int64{122, 1},
		config.ChainConfig{ID: 42220, Rpcs: []string{"https://celo"}, Contracts: contracts(celoUBI)},
		config.ChainConfig{ID: 122, Rpcs: []string{"https://fuse-1", "https://fuse-2"}, Contracts: contracts(fuseUBI)},
		config.ChainConfig{ID: 1, Rpcs: []string{"https://eth"}, Contracts: contracts(ethUBI)},
	)
	require.NoError(t, err)

	clients := map[string]*mocks.EthClient{}
	for _, url := range []string{"https://celo", "https://fuse-1", "https://fuse-2", "https://eth"} {
		clients[url] = &mocks.EthClient{Endpoint: url}
	}

	factory := blockchain.NewClientFactory(registry, func(_ context.Context, chainID int64, url string) (eth.EthClient, error) {
		client := clients[url]
		client.ID = chainID
		return client, nil
	})

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := blockchain.NewLocalSigner(key)

	resolver := identity.NewStaticResolver()
	counter := &countingResolver{Resolver: resolver}
	faucet := &fakeFaucet{ok: true}

	return &testOrchestrator{
		Orchestrator: NewOrchestrator(factory, counter, blockchain.NewSubmitter(factory, signer), faucet, 0),
		ctx:          testutil.MockContext(),
		clients:      clients,
		resolver:     resolver,
		counter:      counter,
		faucet:       faucet,
		account:      signer.Address(),
		root:         common.HexToAddress("0x0000000000000000000000000000000000000777"),
	}
}

func matchData(data []byte) any {
	return mock.MatchedBy(func(msg ethereum.CallMsg) bool {
		return bytes.Equal(msg.Data, data)
	})
}

func pack(t *testing.T, method string, args ...any) []byte {
	parsed, err := ubi.UBIMetaData.GetAbi()
	require.NoError(t, err)

	data, err := parsed.Pack(method, args...)
	require.NoError(t, err)
	return data
}

func output(t *testing.T, method string, values ...any) []byte {
	parsed, err := ubi.UBIMetaData.GetAbi()
	require.NoError(t, err)

	data, err := parsed.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return data
}

func (to *testOrchestrator) whitelist() {
	to.resolver.Whitelist(to.account, to.root)
}

func (to *testOrchestrator) entitlement(t *testing.T, url string, amount int64) {
	to.clients[url].On("CallContract", mock.Anything, matchData(pack(t, "checkEntitlement", to.root)), mock.Anything).
		Return(output(t, "checkEntitlement", big.NewInt(amount)), nil)
}

func TestOrchestrator_CheckEntitlement(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 10)

	result, err := to.CheckEntitlement(to.ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(10), result.Amount.Int64())
	require.False(t, result.AltClaimAvailable)

	to.clients["https://fuse-1"].AssertNotCalled(t, "CallContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_FallbackSearch(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 0)
	to.clients["https://fuse-1"].On("CallContract", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("503 service unavailable"))
	to.entitlement(t, "https://fuse-2", 5)

	result, err := to.CheckEntitlement(to.ctx, nil)
	require.NoError(t, err)
	require.Zero(t, result.Amount.Sign())
	require.True(t, result.AltClaimAvailable)
	require.Equal(t, int64(122), result.AltChainID)
	require.Equal(t, int64(5), result.AltAmount.Int64())

	// The search stops at the first chain with an entitlement.
	to.clients["https://eth"].AssertNotCalled(t, "CallContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_FallbackSearchExhausted(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 0)
	to.entitlement(t, "https://fuse-1", 0)
	to.entitlement(t, "https://fuse-2", 0)
	to.entitlement(t, "https://eth", 0)

	result, err := to.CheckEntitlement(to.ctx, nil)
	require.NoError(t, err)
	require.False(t, result.AltClaimAvailable)
	require.Nil(t, result.AltAmount)
	to.clients["https://eth"].AssertNumberOfCalls(t, "CallContract", 1)
}

func TestOrchestrator_CheckEntitlementOverride(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://eth", 0)

	chainID := int64(1)
	result, err := to.CheckEntitlement(to.ctx, &chainID)
	require.NoError(t, err)
	require.Zero(t, result.Amount.Sign())
	require.False(t, result.AltClaimAvailable)

	to.clients["https://celo"].AssertNotCalled(t, "CallContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_CheckEntitlementError(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.clients["https://celo"].On("CallContract", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("execution reverted"))

	_, err := to.CheckEntitlement(to.ctx, nil)
	require.Error(t, err)
	require.True(t, errorx.HasCode(err, errorx.Unavailable))
	require.Contains(t, err.Error(), "checkEntitlement")
}

func TestOrchestrator_RootIsCached(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 10)

	for i := 0; i < 3; i++ {
		_, err := to.CheckEntitlement(to.ctx, nil)
		require.NoError(t, err)
	}

	require.Equal(t, 1, to.counter.calls)
}

func TestOrchestrator_WalletClaimStatus(t *testing.T) {
	to := newTestOrchestrator(t)

	status, err := to.GetWalletClaimStatus(to.ctx)
	require.NoError(t, err)
	require.Equal(t, StatusNotWhitelisted, status.Status)
	require.Nil(t, status.NextClaimTime)

	to.whitelist()
	to.entitlement(t, "https://celo", 10)

	status, err = to.GetWalletClaimStatus(to.ctx)
	require.NoError(t, err)
	require.Equal(t, StatusCanClaim, status.Status)
	require.Equal(t, int64(10), status.Entitlement.Amount.Int64())
	require.Nil(t, status.NextClaimTime)
}

func TestOrchestrator_WalletAlreadyClaimed(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	celo := to.clients["https://celo"]
	to.entitlement(t, "https://celo", 0)
	to.entitlement(t, "https://fuse-1", 0)
	to.entitlement(t, "https://fuse-2", 0)
	to.entitlement(t, "https://eth", 0)
	celo.On("CallContract", mock.Anything, matchData(pack(t, "currentDay")), mock.Anything).
		Return(output(t, "currentDay", big.NewInt(3)), nil)
	celo.On("CallContract", mock.Anything, matchData(pack(t, "periodStart")), mock.Anything).
		Return(output(t, "periodStart", big.NewInt(1700000000)), nil)

	status, err := to.GetWalletClaimStatus(to.ctx)
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyClaimed, status.Status)
	require.NotNil(t, status.NextClaimTime)
	require.True(t, status.NextClaimTime.Equal(time.Unix(1700000000, 0).Add(4*24*time.Hour)))
}

func TestOrchestrator_ClaimRequiresVerification(t *testing.T) {
	to := newTestOrchestrator(t)

	var redirected string
	to.WithRedirector(func(_ context.Context, url string) { redirected = url })

	_, err := to.Claim(to.ctx, nil)
	require.True(t, errorx.HasCode(err, errorx.RequiresVerification))
	require.True(t, strings.HasPrefix(redirected, "https://wallet.example/verify?"))
	require.Contains(t, redirected, "account="+to.account.Hex())
	require.Equal(t, 0, to.faucet.calls)
}

func TestOrchestrator_ClaimNothingToClaim(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 0)

	_, err := to.Claim(to.ctx, nil)
	require.True(t, errorx.HasCode(err, errorx.NothingToClaim))
	require.Equal(t, 0, to.faucet.calls)

	// Claims never look at fallback chains.
	to.clients["https://fuse-1"].AssertNotCalled(t, "CallContract", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_ClaimInsufficientGas(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 10)
	to.faucet.ok = false

	_, err := to.Claim(to.ctx, nil)
	require.True(t, errorx.HasCode(err, errorx.InsufficientGas))
	to.clients["https://celo"].AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)

	to.faucet.err = config.ErrMisconfigured
	_, err = to.Claim(to.ctx, nil)
	require.True(t, errorx.HasCode(err, errorx.Misconfigured))
}

func (to *testOrchestrator) expectSubmit(t *testing.T, simulateErr error) {
	celo := to.clients["https://celo"]
	if simulateErr != nil {
		celo.On("CallContract", mock.Anything, matchData(pack(t, "claim")), mock.Anything).Return(nil, simulateErr)
		return
	}

	celo.On("CallContract", mock.Anything, matchData(pack(t, "claim")), mock.Anything).
		Return(output(t, "claim", true), nil)
	celo.On("PendingNonceAt", mock.Anything, to.account).Return(uint64(7), nil)
	celo.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1), nil)
	celo.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(21000), nil)
	celo.On("BalanceAt", mock.Anything, to.account, (*big.Int)(nil)).Return(big.NewInt(1000000), nil)
	celo.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)
	celo.On("TransactionReceipt", mock.Anything, mock.Anything).
		Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil)
}

func TestOrchestrator_Claim(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 10)
	to.expectSubmit(t, nil)

	var hashes []common.Hash
	receipt, err := to.Claim(to.ctx, func(h common.Hash) { hashes = append(hashes, h) })
	require.NoError(t, err)
	require.Equal(t, ethtypes.ReceiptStatusSuccessful, receipt.Status)
	require.Len(t, hashes, 1)
	require.Equal(t, 1, to.faucet.calls)
}

func TestOrchestrator_ClaimReverted(t *testing.T) {
	to := newTestOrchestrator(t)
	to.whitelist()
	to.entitlement(t, "https://celo", 10)
	to.expectSubmit(t, errors.New("execution reverted: has already claimed"))

	called := false
	_, err := to.Claim(to.ctx, func(common.Hash) { called = true })
	require.True(t, errorx.HasCode(err, errorx.ClaimFailed))
	require.Contains(t, err.Error(), "has already claimed")
	require.False(t, called)
}
