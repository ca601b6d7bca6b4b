package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics prometheus-метрики сервиса
type Metrics struct {
	MessagesTotal      *prometheus.CounterVec
	RejectionsTotal    *prometheus.CounterVec
	ToolExecutionsTotal *prometheus.CounterVec
	BookingsTotal      prometheus.Counter
	LostRacesTotal     prometheus.Counter
	LLMCallDuration    prometheus.Histogram
	CalendarDuration   *prometheus.HistogramVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New регистрирует и возвращает метрики сервиса
func New(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "schedulebot_messages_total",
			Help:        "Total number of handled incoming messages",
			ConstLabels: labels,
		}, []string{"channel", "mode"}),

		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "schedulebot_guard_rejections_total",
			Help:        "Guest messages rejected before any model call",
			ConstLabels: labels,
		}, []string{"reason"}),

		ToolExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "schedulebot_tool_executions_total",
			Help:        "Total number of executed model tool calls",
			ConstLabels: labels,
		}, []string{"tool"}),

		BookingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "schedulebot_bookings_total",
			Help:        "Total number of finalized bookings",
			ConstLabels: labels,
		}),

		LostRacesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "schedulebot_reservation_lost_races_total",
			Help:        "Reservations rejected because an overlapping booking already existed",
			ConstLabels: labels,
		}),

		LLMCallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "schedulebot_llm_call_duration_seconds",
			Help:        "Duration of model calls",
			ConstLabels: labels,
			Buckets:     []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		CalendarDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "schedulebot_calendar_call_duration_seconds",
			Help:        "Duration of calendar API calls",
			ConstLabels: labels,
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "schedulebot_http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "schedulebot_http_request_duration_seconds",
			Help:        "Duration of HTTP request handling",
			ConstLabels: labels,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

// ObserveHTTPRequest учитывает обработанный HTTP-запрос
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(seconds)
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// IncMessage учитывает обработанное входящее сообщение
func (m *Metrics) IncMessage(channel, mode string) {
	m.MessagesTotal.WithLabelValues(channel, mode).Inc()
}

// IncRejection учитывает сообщение, отклонённое до обращения к модели
func (m *Metrics) IncRejection(reason string) {
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// IncToolExecution учитывает выполненный вызов инструмента
func (m *Metrics) IncToolExecution(tool string) {
	m.ToolExecutionsTotal.WithLabelValues(tool).Inc()
}

// IncBooking учитывает завершённое бронирование
func (m *Metrics) IncBooking() {
	m.BookingsTotal.Inc()
}

// IncLostRace учитывает проигранную гонку за слот
func (m *Metrics) IncLostRace() {
	m.LostRacesTotal.Inc()
}
