package blockchain

import (
	"context"
	"errors"
	"testing"

	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/mocks"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *config.ChainRegistry {
	r, err := config.NewChainRegistry(config.EnvProduction, 42220, []int64{122},
		config.ChainConfig{ID: 42220, Rpcs: []string{"https://a", "https://b", "https://c"}},
		config.ChainConfig{ID: 122, Rpcs: []string{"https://fuse"}},
		config.ChainConfig{ID: 1},
	)
	require.NoError(t, err)
	return r
}

type recordingDialer struct {
	urls    []string
	dialErr map[string]error
}

func (d *recordingDialer) dial(_ context.Context, chainID int64, url string) (eth.EthClient, error) {
	d.urls = append(d.urls, url)
	if err, ok := d.dialErr[url]; ok {
		return nil, err
	}

	return &mocks.EthClient{ID: chainID, Endpoint: url}, nil
}

func TestClientFactory_NextEndpoint(t *testing.T) {
	f := NewClientFactory(testRegistry(t), nil)

	var urls []string
	for i := 0; i < 4; i++ {
		url, err := f.NextEndpoint(42220)
		require.NoError(t, err)
		urls = append(urls, url)
	}

	require.Equal(t, []string{"https://a", "https://b", "https://c", "https://a"}, urls)

	_, err := f.NextEndpoint(1)
	require.True(t, errors.Is(err, ErrMisconfigured))

	_, err = f.NextEndpoint(5)
	require.True(t, errors.Is(err, ErrMisconfigured))
}

func TestClientFactory_Execute_RetryOnceOnTransportDefect(t *testing.T) {
	ctx := testutil.MockContext()
	d := &recordingDialer{}
	f := NewClientFactory(testRegistry(t), d.dial)

	calls := 0
	err := f.Execute(ctx, 42220, "balance", func(ctx context.Context, client eth.EthClient) error {
		calls++
		if calls == 1 {
			return errors.New("unsupported transport type")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, []string{"https://a", "https://b"}, d.urls)
}

func TestClientFactory_Execute_NoRetryOnOtherErrors(t *testing.T) {
	ctx := testutil.MockContext()
	d := &recordingDialer{}
	f := NewClientFactory(testRegistry(t), d.dial)

	calls := 0
	err := f.Execute(ctx, 42220, "balance", func(ctx context.Context, client eth.EthClient) error {
		calls++
		return errors.New("insufficient funds")
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, "balance: insufficient funds", err.Error())
	require.False(t, errors.Is(err, ErrTransport))
}

func TestClientFactory_Execute_RetryAtMostOnce(t *testing.T) {
	ctx := testutil.MockContext()
	d := &recordingDialer{}
	f := NewClientFactory(testRegistry(t), d.dial)

	calls := 0
	err := f.Execute(ctx, 42220, "call", func(ctx context.Context, client eth.EthClient) error {
		calls++
		return errors.New("malformed response")
	})

	require.Error(t, err)
	require.Equal(t, 2, calls)
	require.True(t, errors.Is(err, ErrTransport))
}

func TestClientFactory_Execute_DialDefect(t *testing.T) {
	ctx := testutil.MockContext()
	d := &recordingDialer{dialErr: map[string]error{
		"https://a": errors.New(`no known transport for URL scheme "xyz"`),
	}}
	f := NewClientFactory(testRegistry(t), d.dial)

	var used string
	err := f.Execute(ctx, 42220, "call", func(ctx context.Context, client eth.EthClient) error {
		used = client.URL()
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, "https://b", used)
}

func TestClientFactory_Execute_Misconfigured(t *testing.T) {
	ctx := testutil.MockContext()
	f := NewClientFactory(testRegistry(t), (&recordingDialer{}).dial)

	err := f.Execute(ctx, 1, "call", func(ctx context.Context, client eth.EthClient) error {
		return nil
	})
	require.True(t, errors.Is(err, ErrMisconfigured))
}

func TestClientFactory_ForEachEndpoint(t *testing.T) {
	ctx := testutil.MockContext()
	d := &recordingDialer{}
	f := NewClientFactory(testRegistry(t), d.dial)

	var visited []string
	err := f.ForEachEndpoint(ctx, 42220, func(ctx context.Context, client eth.EthClient) (bool, error) {
		visited = append(visited, client.URL())
		if client.URL() == "https://a" {
			return false, errors.New("timeout")
		}

		return client.URL() == "https://b", nil
	})

	require.NoError(t, err)
	require.Equal(t, []string{"https://a", "https://b"}, visited)

	// Every endpoint is visited once when nothing is found, starting from
	// the cursor.
	visited = nil
	err = f.ForEachEndpoint(ctx, 42220, func(ctx context.Context, client eth.EthClient) (bool, error) {
		visited = append(visited, client.URL())
		return false, nil
	})

	require.NoError(t, err)
	require.Equal(t, []string{"https://c", "https://a", "https://b"}, visited)
}

func TestIsTransportDefect(t *testing.T) {
	require.True(t, IsTransportDefect(errors.New("Unsupported transport")))
	require.True(t, IsTransportDefect(errors.New("invalid transport")))
	require.False(t, IsTransportDefect(errors.New("execution reverted")))
	require.False(t, IsTransportDefect(nil))
}
