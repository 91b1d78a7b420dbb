package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for ledger writes and credential changes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PurchasesCreated    prometheus.Counter
	LiquidationsCreated prometheus.Counter
	EntriesDeleted      *prometheus.CounterVec
	GuardRejections     *prometheus.CounterVec
	TokenRotations      prometheus.Counter
}

// New creates a Metrics instance registered on reg.
// Pass prometheus.DefaultRegisterer to expose them through promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PurchasesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "payshare_purchases_created_total",
			Help: "Total number of purchases recorded",
		}),
		LiquidationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "payshare_liquidations_created_total",
			Help: "Total number of liquidations recorded",
		}),
		EntriesDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payshare_entries_deleted_total",
			Help: "Total number of ledger entries soft-deleted, by kind",
		}, []string{"kind"}),
		GuardRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payshare_guard_rejections_total",
			Help: "Total number of ledger writes rejected by the membership guard, by reason",
		}, []string{"reason"}),
		TokenRotations: f.NewCounter(prometheus.CounterOpts{
			Name: "payshare_token_rotations_total",
			Help: "Total number of collective token rotations caused by password changes",
		}),
	}
}

// IncrementPurchaseCreated records a committed purchase.
func (m *Metrics) IncrementPurchaseCreated() {
	if m == nil {
		return
	}
	m.PurchasesCreated.Inc()
}

// IncrementLiquidationCreated records a committed liquidation.
func (m *Metrics) IncrementLiquidationCreated() {
	if m == nil {
		return
	}
	m.LiquidationsCreated.Inc()
}

// IncrementEntryDeleted records a soft delete that changed state.
func (m *Metrics) IncrementEntryDeleted(kind string) {
	if m == nil {
		return
	}
	m.EntriesDeleted.WithLabelValues(kind).Inc()
}

// IncrementGuardRejection records a write refused by the membership guard.
func (m *Metrics) IncrementGuardRejection(reason string) {
	if m == nil || reason == "" {
		return
	}
	m.GuardRejections.WithLabelValues(reason).Inc()
}

// IncrementTokenRotation records a password change that rotated the token.
func (m *Metrics) IncrementTokenRotation() {
	if m == nil {
		return
	}
	m.TokenRotations.Inc()
}
