package blockchain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/internal/common"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/prometheus"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

var (
	ErrMisconfigured = config.ErrMisconfigured
	ErrTransport     = errors.New("transport error")
)

var transportDefects = []string{
	"unsupported transport",
	"no known transport",
	"malformed",
	"invalid transport",
}

// IsTransportDefect reports whether the error is caused by a broken endpoint
// rather than by the request itself. Nodes do not return error codes for
// these cases, so we have to rely on string matching.
func IsTransportDefect(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, defect := range transportDefects {
		if strings.Contains(msg, defect) {
			return true
		}
	}

	return false
}

func isNetworkError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

// CallError is returned by Execute when the function failed.
type CallError struct {
	Method    string
	Transport bool
	Err       error
}

func (e *CallError) Error() string {
	msg := e.Err.Error()

	var dataErr rpc.DataError
	if errors.As(e.Err, &dataErr) && dataErr.ErrorData() != nil {
		msg = fmt.Sprintf("%s (%v)", msg, dataErr.ErrorData())
	}

	return fmt.Sprintf("%s: %s", e.Method, msg)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func (e *CallError) Is(target error) bool {
	return target == ErrTransport && e.Transport
}

// endpointIterator is a cyclic cursor over the endpoints of one chain.
type endpointIterator struct {
	rpcs []string
	next int
}

func (it *endpointIterator) advance() string {
	url := it.rpcs[it.next]
	it.next = (it.next + 1) % len(it.rpcs)
	return url
}

// ClientFactory hands out throwaway clients, rotating over the configured
// endpoints of each chain.
type ClientFactory struct {
	registry *config.ChainRegistry
	dial     eth.Dialer

	mutex     sync.Mutex
	iterators map[int64]*endpointIterator
}

func NewClientFactory(registry *config.ChainRegistry, dial eth.Dialer) *ClientFactory {
	if dial == nil {
		dial = eth.Dial
	}

	return &ClientFactory{
		registry:  registry,
		dial:      dial,
		iterators: make(map[int64]*endpointIterator),
	}
}

func (f *ClientFactory) Registry() *config.ChainRegistry {
	return f.registry
}

func (f *ClientFactory) iterator(chainID int64) (*endpointIterator, error) {
	if it, ok := f.iterators[chainID]; ok {
		return it, nil
	}

	rpcs, err := f.registry.RPCs(chainID)
	if err != nil {
		return nil, err
	}

	it := &endpointIterator{rpcs: rpcs}
	f.iterators[chainID] = it
	return it, nil
}

// NextEndpoint returns the next endpoint of the chain and advances its cursor.
func (f *ClientFactory) NextEndpoint(chainID int64) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	it, err := f.iterator(chainID)
	if err != nil {
		return "", err
	}

	return it.advance(), nil
}

func (f *ClientFactory) endpointCount(chainID int64) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	it, err := f.iterator(chainID)
	if err != nil {
		return 0, err
	}

	return len(it.rpcs), nil
}

// NewClient dials a new client at the next endpoint of the chain. The caller
// must close it.
func (f *ClientFactory) NewClient(ctx context.Context, chainID int64) (eth.EthClient, error) {
	url, err := f.NextEndpoint(chainID)
	if err != nil {
		return nil, err
	}

	client, err := f.dial(ctx, chainID, url)
	if err != nil {
		return nil, &CallError{Method: "dial " + url, Transport: true, Err: err}
	}

	return client, nil
}

func (f *ClientFactory) executeOnce(
	ctx context.Context, chainID int64, fn func(ctx context.Context, client eth.EthClient) error,
) (string, error) {
	client, err := f.NewClient(ctx, chainID)
	if err != nil {
		return "", err
	}
	defer client.Close()

	timeout := xcontext.Configs(ctx).Claim.RPCTimeout
	if timeout <= 0 {
		timeout = eth.RpcTimeOut
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return client.URL(), fn(ctx, client)
}

// Execute runs fn on a fresh client. It retries once on another endpoint only
// when the first failure is a transport defect.
func (f *ClientFactory) Execute(
	ctx context.Context, chainID int64, fname string, fn func(ctx context.Context, client eth.EthClient) error,
) error {
	url, err := f.executeOnce(ctx, chainID, fn)
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrMisconfigured) {
		return err
	}

	if IsTransportDefect(err) {
		xcontext.Logger(ctx).Warnf("Transport defect on %s of chain %d, retry on a fresh client: %v",
			url, chainID, err)
		prometheus.Inc(common.RPCFailoverTotal, strconv.FormatInt(chainID, 10), fname)

		_, err = f.executeOnce(ctx, chainID, fn)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrMisconfigured) {
			return err
		}
	}

	var callErr *CallError
	if errors.As(err, &callErr) {
		return &CallError{Method: fname, Transport: true, Err: err}
	}

	return &CallError{
		Method:    fname,
		Transport: IsTransportDefect(err) || isNetworkError(err),
		Err:       err,
	}
}

// ForEachEndpoint visits every endpoint of the chain once, starting at the
// cursor, until fn reports done. Endpoints which fail are logged and skipped.
func (f *ClientFactory) ForEachEndpoint(
	ctx context.Context, chainID int64, fn func(ctx context.Context, client eth.EthClient) (bool, error),
) error {
	n, err := f.endpointCount(chainID)
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		var done bool
		url, err := f.executeOnce(ctx, chainID, func(ctx context.Context, client eth.EthClient) error {
			var err error
			done, err = fn(ctx, client)
			return err
		})

		if err != nil {
			if errors.Is(err, ErrMisconfigured) {
				return err
			}

			xcontext.Logger(ctx).Warnf("Skip endpoint %s of chain %d: %v", url, chainID, err)
			continue
		}

		if done {
			return nil
		}
	}

	return nil
}
