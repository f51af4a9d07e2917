package eth

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	RpcTimeOut = time.Second * 10
)

// A wrapper around a single eth rpc endpoint so that we can mock it in tests.
// Failover between endpoints is not done here, see the client factory.
type EthClient interface {
	ChainID() int64
	URL() string

	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error

	// SendDelegatedTransaction asks the node to sign and send the transaction
	// with an account it manages (eth_sendTransaction).
	SendDelegatedTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	Close()
}

// Dialer opens a client to one endpoint of a chain.
type Dialer func(ctx context.Context, chainID int64, url string) (EthClient, error)

type defaultEthClient struct {
	chainID int64
	url     string

	rpcClient *rpc.Client
	*ethclient.Client
}

func Dial(ctx context.Context, chainID int64, url string) (EthClient, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}

	return &defaultEthClient{
		chainID:   chainID,
		url:       url,
		rpcClient: rpcClient,
		Client:    ethclient.NewClient(rpcClient),
	}, nil
}

func (c *defaultEthClient) ChainID() int64 {
	return c.chainID
}

func (c *defaultEthClient) URL() string {
	return c.url
}

func (c *defaultEthClient) SendDelegatedTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	var hash common.Hash
	err := c.rpcClient.CallContext(ctx, &hash, "eth_sendTransaction", toCallArg(msg))
	return hash, err
}

func (c *defaultEthClient) Close() {
	c.Client.Close()
}

func toCallArg(msg ethereum.CallMsg) any {
	arg := map[string]any{
		"from": msg.From,
	}

	if msg.To != nil {
		arg["to"] = msg.To
	}

	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}

	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}

	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}

	if msg.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(msg.GasPrice)
	}

	return arg
}
