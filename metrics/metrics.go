// Package metrics exposes prometheus counters for marketplace activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindesk_bids_placed_total",
		Help: "Bids accepted onto a task.",
	})

	AuctionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindesk_auctions_resolved_total",
		Help: "Tasks resolved by award or cancellation, by path and outcome.",
	}, []string{"path", "outcome"})

	Settlements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindesk_settlements_total",
		Help: "Tasks finalized with payment released.",
	})

	SettledCoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindesk_settled_coins_total",
		Help: "Coins moved from payers to winners by settlements.",
	})

	AccessFees = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindesk_access_fees_total",
		Help: "Access fee attempts by result (charged, skipped, exempt, duplicate).",
	}, []string{"result"})

	TransactionsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindesk_transactions_reviewed_total",
		Help: "Pending transactions approved or rejected by admins.",
	}, []string{"decision", "type"})
)
