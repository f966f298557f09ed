package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localgroup_groups_created_total",
		Help: "Groups created.",
	})
	GroupJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localgroup_group_joins_total",
		Help: "Successful group joins.",
	})
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localgroup_group_transitions_total",
		Help: "Group status transitions.",
	}, []string{"to"})
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localgroup_chat_messages_relayed_total",
		Help: "Chat messages fanned out by the relay.",
	})
	SOSTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localgroup_sos_triggered_total",
		Help: "SOS alerts accepted.",
	})
	SessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "localgroup_sessions_open",
		Help: "Live websocket sessions.",
	})
	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localgroup_otp_issued_total",
		Help: "OTP codes issued.",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
