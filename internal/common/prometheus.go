package common

import "github.com/prometheus/client_golang/prometheus"

const (
	ClaimTotal                   = "claim_total"
	FaucetTopupTotal             = "faucet_topup_total"
	RPCFailoverTotal             = "rpc_failover_total"
	LedgerClaimTotal             = "ledger_claim_total"
	LedgerRequestDurationSeconds = "ledger_request_duration_seconds"
	BlockchainTransactionFailure = "blockchain_transaction_failure"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		ClaimTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ClaimTotal,
			Help: "Count of all claims driven by the orchestrator",
		}, []string{"chain_id", "status"}),
		FaucetTopupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: FaucetTopupTotal,
			Help: "Count of all faucet top-up attempts",
		}, []string{"chain_id", "outcome"}),
		RPCFailoverTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RPCFailoverTotal,
			Help: "Count of all retries on a fresh rpc endpoint",
		}, []string{"chain_id", "method"}),
		LedgerClaimTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: LedgerClaimTotal,
			Help: "Count of all claims processed by the reward ledger",
		}, []string{"result"}),
		BlockchainTransactionFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: BlockchainTransactionFailure,
			Help: "Count of all blockchain transaction failure",
		}, []string{"method"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		LedgerRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: LedgerRequestDurationSeconds,
			Help: "Duration of all ledger rpc requests",
		}, []string{"method"}),
	}
)
