package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/questx-lab/engagement/contract"
	internalcommon "github.com/questx-lab/engagement/internal/common"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/prometheus"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

var ErrReceiptNotFound = errors.New("cannot get receipt")

// RevertError is returned when a call or a transaction is reverted by the
// contract.
type RevertError struct {
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}

	return "execution reverted: " + e.Reason
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

// RevertReason extracts the reason of a reverted call from a node error.
func RevertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok {
			if bz, decodeErr := hexutil.Decode(data); decodeErr == nil {
				if reason, ok := contract.RevertReason(bz); ok {
					return reason, true
				}
			}
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, "execution reverted"); i >= 0 {
		reason := strings.TrimPrefix(msg[i+len("execution reverted"):], ":")
		return strings.TrimSpace(reason), true
	}

	return "", false
}

// Call is a contract write.
type Call struct {
	Method string
	To     common.Address
	Data   []byte
	Value  *big.Int
}

func (c Call) msg(from common.Address) ethereum.CallMsg {
	to := c.To
	return ethereum.CallMsg{From: from, To: &to, Data: c.Data, Value: c.Value}
}

type Submitter struct {
	factory *ClientFactory
	signer  Signer
}

func NewSubmitter(factory *ClientFactory, signer Signer) *Submitter {
	return &Submitter{factory: factory, signer: signer}
}

func (s *Submitter) Signer() Signer {
	return s.signer
}

// Simulate runs the call from the signer account at the latest block.
func (s *Submitter) Simulate(ctx context.Context, chainID int64, call Call) error {
	err := s.factory.Execute(ctx, chainID, "simulate "+call.Method, func(ctx context.Context, client eth.EthClient) error {
		_, err := client.CallContract(ctx, call.msg(s.signer.Address()), nil)
		return err
	})

	if err == nil {
		return nil
	}

	if reason, ok := RevertReason(err); ok {
		return &RevertError{Reason: reason, Err: err}
	}

	return err
}

// SubmitAndWait simulates, signs and sends the call, then waits for its
// receipt. onHash is called as soon as the hash of the transaction is known.
func (s *Submitter) SubmitAndWait(
	ctx context.Context, chainID int64, call Call, onHash func(common.Hash),
) (*ethtypes.Receipt, error) {
	if err := s.Simulate(ctx, chainID, call); err != nil {
		return nil, err
	}

	var hash common.Hash
	err := s.factory.Execute(ctx, chainID, "send "+call.Method, func(ctx context.Context, client eth.EthClient) error {
		var err error
		hash, err = s.send(ctx, client, chainID, call.msg(s.signer.Address()))
		return err
	})
	if err != nil {
		prometheus.Inc(internalcommon.BlockchainTransactionFailure, call.Method)
		if reason, ok := RevertReason(err); ok {
			return nil, &RevertError{Reason: reason, Err: err}
		}

		return nil, err
	}

	xcontext.Logger(ctx).Infof("Tx %s of %s is dispatched on chain %d", hash, call.Method, chainID)
	if onHash != nil {
		onHash(hash)
	}

	if err := sleep(ctx, xcontext.Configs(ctx).Claim.SubmitDelay); err != nil {
		return nil, err
	}

	receipt, err := s.WaitReceipt(ctx, chainID, hash)
	if err != nil {
		return nil, err
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		prometheus.Inc(internalcommon.BlockchainTransactionFailure, call.Method)
		return receipt, &RevertError{Reason: fmt.Sprintf("transaction %s failed", hash)}
	}

	return receipt, nil
}

func (s *Submitter) send(
	ctx context.Context, client eth.EthClient, chainID int64, msg ethereum.CallMsg,
) (common.Hash, error) {
	if !s.signer.CanSignLocally() {
		return client.SendDelegatedTransaction(ctx, msg)
	}

	if msg.Value == nil {
		msg.Value = big.NewInt(0)
	}

	nonce, err := client.PendingNonceAt(ctx, msg.From)
	if err != nil {
		return common.Hash{}, err
	}

	if msg.GasPrice == nil {
		msg.GasPrice, err = client.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
	}

	if msg.Gas == 0 {
		msg.Gas, err = client.EstimateGas(ctx, msg)
		if err != nil {
			return common.Hash{}, err
		}
	}

	// Check the balance to see if we have enough native token.
	balance, err := client.BalanceAt(ctx, msg.From, nil)
	if err != nil {
		return common.Hash{}, err
	}

	minimum := new(big.Int).Mul(msg.GasPrice, new(big.Int).SetUint64(msg.Gas))
	minimum.Add(minimum, msg.Value)
	if minimum.Cmp(balance) > 0 {
		return common.Hash{}, fmt.Errorf("%w: need %s, have %s", ErrNotEnoughBalance, minimum, balance)
	}

	signedTx, err := s.signer.SignTx(ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: msg.GasPrice,
		Gas:      msg.Gas,
		To:       msg.To,
		Value:    msg.Value,
		Data:     msg.Data,
	}), chainID)
	if err != nil {
		return common.Hash{}, err
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		// The node already has this transaction in its pool.
		if !strings.Contains(err.Error(), "already known") {
			return common.Hash{}, err
		}
	}

	return signedTx.Hash(), nil
}

// WaitReceipt polls the receipt with a fixed delay.
func (s *Submitter) WaitReceipt(ctx context.Context, chainID int64, hash common.Hash) (*ethtypes.Receipt, error) {
	cfg := xcontext.Configs(ctx).Claim
	attempts := cfg.ReceiptMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for retry := 0; retry < attempts; retry++ {
		if retry > 0 {
			if err := sleep(ctx, cfg.ReceiptRetryDelay); err != nil {
				return nil, err
			}
		}

		var receipt *ethtypes.Receipt
		err := s.factory.Execute(ctx, chainID, "receipt", func(ctx context.Context, client eth.EthClient) error {
			var err error
			receipt, err = client.TransactionReceipt(ctx, hash)
			return err
		})

		if err == nil && receipt != nil {
			return receipt, nil
		}

		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if errors.Is(err, ErrMisconfigured) {
				return nil, err
			}

			xcontext.Logger(ctx).Warnf("Cannot get receipt for tx hash %s: %v", hash, err)
		}
	}

	xcontext.Logger(ctx).Errorf("Cannot get receipt for tx with hash %s on chain %d", hash, chainID)
	prometheus.Inc(internalcommon.BlockchainTransactionFailure, "receipt_"+strconv.FormatInt(chainID, 10))
	return nil, fmt.Errorf("%w for tx %s after %d attempts", ErrReceiptNotFound, hash, attempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
