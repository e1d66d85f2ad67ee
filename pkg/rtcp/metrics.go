// Prometheus инструментация RTCP сессии
//
// Метрики опциональны: Session с nil *Metrics не собирает ничего,
// все методы nil-безопасны. Registerer инжектируется, чтобы тесты и
// несколько сессий в одном процессе не конфликтовали регистрацией.
package rtcp

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics собирает счетчики работы одной или нескольких сессий
type Metrics struct {
	rtpIngested    prometheus.Counter     // Принятых RTP пакетов
	rtcpPackets    *prometheus.CounterVec // Обработанных RTCP пакетов по типам
	reportsBuilt   prometheus.Counter     // Построенных отчетов
	trackedSources prometheus.Gauge       // Текущее число трекеров
}

// NewMetrics создает и регистрирует метрики в заданном Registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rtpIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rtcp",
			Name:      "rtp_packets_ingested_total",
			Help:      "Число принятых RTP пакетов, учтенных трекерами источников",
		}),
		rtcpPackets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtcp",
			Name:      "rtcp_packets_processed_total",
			Help:      "Число обработанных RTCP пакетов по типам",
		}, []string{"type"}),
		reportsBuilt: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rtcp",
			Name:      "reports_built_total",
			Help:      "Число построенных исходящих отчетов (SR/RR)",
		}),
		trackedSources: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rtcp",
			Name:      "tracked_sources",
			Help:      "Текущее число отслеживаемых удаленных источников",
		}),
	}
}

// packetTypeLabel возвращает метку для типа RTCP пакета
func packetTypeLabel(packetType uint8) string {
	switch packetType {
	case TypeSR:
		return "sr"
	case TypeRR:
		return "rr"
	case TypeSDES:
		return "sdes"
	case TypeBYE:
		return "bye"
	case TypeAPP:
		return "app"
	default:
		return fmt.Sprintf("unknown_%d", packetType)
	}
}

func (m *Metrics) countRTPIngested() {
	if m == nil {
		return
	}
	m.rtpIngested.Inc()
}

func (m *Metrics) countRTCPPacket(packetType uint8) {
	if m == nil {
		return
	}
	m.rtcpPackets.WithLabelValues(packetTypeLabel(packetType)).Inc()
}

func (m *Metrics) countReportBuilt() {
	if m == nil {
		return
	}
	m.reportsBuilt.Inc()
}

func (m *Metrics) setTrackedSources(n int) {
	if m == nil {
		return
	}
	m.trackedSources.Set(float64(n))
}
