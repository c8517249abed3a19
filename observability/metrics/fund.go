package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type FundMetrics struct {
	operations       *prometheus.CounterVec
	navRecalcs       *prometheus.CounterVec
	shareNav         *prometheus.GaugeVec
	lossCarryforward *prometheus.GaugeVec
	activeInvestors  prometheus.Gauge
	shareClasses     prometheus.Gauge
}

var (
	fundOnce     sync.Once
	fundRegistry *FundMetrics
)

func Fund() *FundMetrics {
	fundOnce.Do(func() {
		fundRegistry = &FundMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fund_ledger_operations_total",
				Help: "Count of ledger operations by name and outcome.",
			}, []string{"op", "outcome"}),
			navRecalcs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fund_nav_recalculations_total",
				Help: "Count of completed NAV recalculations per share class.",
			}, []string{"class"}),
			shareNav: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "fund_share_nav",
				Help: "Latest per-share NAV per share class in scale-100 units.",
			}, []string{"class"}),
			lossCarryforward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "fund_loss_carryforward",
				Help: "Outstanding loss carryforward per share class in currency units.",
			}, []string{"class"}),
			activeInvestors: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "fund_active_investors",
				Help: "Number of onboarded investors on the active-address index.",
			}),
			shareClasses: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "fund_share_classes",
				Help: "Number of registered share classes.",
			}),
		}
		prometheus.MustRegister(
			fundRegistry.operations,
			fundRegistry.navRecalcs,
			fundRegistry.shareNav,
			fundRegistry.lossCarryforward,
			fundRegistry.activeInvestors,
			fundRegistry.shareClasses,
		)
	})
	return fundRegistry
}

func (m *FundMetrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *FundMetrics) ObserveNavRecalculation(classID uint64) {
	if m == nil {
		return
	}
	m.navRecalcs.WithLabelValues(fmt.Sprintf("%d", classID)).Inc()
}

func (m *FundMetrics) SetShareNav(classID uint64, nav float64) {
	if m == nil {
		return
	}
	m.shareNav.WithLabelValues(fmt.Sprintf("%d", classID)).Set(nav)
}

func (m *FundMetrics) SetLossCarryforward(classID uint64, amount float64) {
	if m == nil {
		return
	}
	m.lossCarryforward.WithLabelValues(fmt.Sprintf("%d", classID)).Set(amount)
}

func (m *FundMetrics) SetActiveInvestors(count int) {
	if m == nil {
		return
	}
	m.activeInvestors.Set(float64(count))
}

func (m *FundMetrics) SetShareClasses(count uint64) {
	if m == nil {
		return
	}
	m.shareClasses.Set(float64(count))
}
