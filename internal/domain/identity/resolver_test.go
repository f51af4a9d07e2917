package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/questx-lab/engagement/config"
	identitycontract "github.com/questx-lab/engagement/contract/identity"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/questx-lab/engagement/mocks"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	identityAddress = "0xC361A6E67822a0EDc17D899227dd9FC50BD62F42"
	account         = common.HexToAddress("0x1111111111111111111111111111111111111111")
	root            = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestResolver(t *testing.T, client *mocks.EthClient) Resolver {
	registry, err := config.NewChainRegistry(config.EnvProduction, 42220, nil,
		config.ChainConfig{
			ID:   42220,
			Rpcs: []string{"https://a"},
			Contracts: map[string]config.ChainContracts{
				config.EnvProduction: {Identity: identityAddress},
			},
		},
		config.ChainConfig{ID: 122, Rpcs: []string{"https://b"}},
	)
	require.NoError(t, err)

	return NewResolver(blockchain.NewClientFactory(registry, func(context.Context, int64, string) (eth.EthClient, error) {
		return client, nil
	}))
}

func packRoot(t *testing.T, addr common.Address) []byte {
	parsed, err := identitycontract.IdentityMetaData.GetAbi()
	require.NoError(t, err)

	output, err := parsed.Methods["getWhitelistedRoot"].Outputs.Pack(addr)
	require.NoError(t, err)
	return output
}

func TestResolveRoot(t *testing.T) {
	client := &mocks.EthClient{}
	client.On("CallContract", mock.Anything, mock.Anything, mock.Anything).Return(packRoot(t, root), nil)

	r, err := newTestResolver(t, client).ResolveRoot(testutil.MockContext(), 42220, account)
	require.NoError(t, err)
	require.Equal(t, Root{IsWhitelisted: true, Address: root}, r)
}

func TestResolveRoot_NotWhitelisted(t *testing.T) {
	client := &mocks.EthClient{}
	client.On("CallContract", mock.Anything, mock.Anything, mock.Anything).Return(packRoot(t, common.Address{}), nil)

	r, err := newTestResolver(t, client).ResolveRoot(testutil.MockContext(), 42220, account)
	require.NoError(t, err)
	require.False(t, r.IsWhitelisted)
}

func TestResolveRoot_Failed(t *testing.T) {
	client := &mocks.EthClient{}
	client.On("CallContract", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("i/o timeout"))

	_, err := newTestResolver(t, client).ResolveRoot(testutil.MockContext(), 42220, account)
	require.True(t, errors.Is(err, ErrResolutionFailed))
}

func TestResolveRoot_Misconfigured(t *testing.T) {
	_, err := newTestResolver(t, &mocks.EthClient{}).ResolveRoot(testutil.MockContext(), 122, account)
	require.True(t, errors.Is(err, config.ErrMisconfigured))
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()
	r.Whitelist(account, root)

	got, err := r.ResolveRoot(context.Background(), 0, account)
	require.NoError(t, err)
	require.Equal(t, root, got.Address)

	got, err = r.ResolveRoot(context.Background(), 0, root)
	require.NoError(t, err)
	require.Equal(t, root, got.Address)

	r.Remove(account)
	got, err = r.ResolveRoot(context.Background(), 0, account)
	require.NoError(t, err)
	require.False(t, got.IsWhitelisted)
}
