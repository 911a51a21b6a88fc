package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	splitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "split_validation_failures_total",
		Help:      "Expense mutations rejected by split validation, by error code.",
	}, []string{"code"})

	guardRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "balance_guard_rejections_total",
		Help:      "Transactions aborted by the storage balance guard.",
	})

	expenseMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "expense_mutations_total",
		Help:      "Committed expense mutations, by operation.",
	}, []string{"op"})
)
