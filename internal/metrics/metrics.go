package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlabot_webhook_events_total",
			Help: "Inbound webhook events by type and channel",
		},
		[]string{"type", "channel"}, // message|postback|optin|delivery|read|account_linking|pass_thread_control|unknown , active|standby
	)

	NLURequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlabot_nlu_requests_total",
			Help: "Detect-intent round trips by query mode and outcome",
		},
		[]string{"mode", "outcome"}, // text|event , ok|error
	)

	DirectivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlabot_directives_total",
			Help: "Outbound directives by kind and delivery outcome",
		},
		[]string{"kind", "status"}, // text|quick_reply|carousel|attachment|gif , sent|failed
	)

	StepsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merlabot_choreography_steps_dropped_total",
			Help: "Choreography steps dropped because a lookup failed or was empty",
		},
		[]string{"action"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		WebhookEventsTotal,
		NLURequestsTotal,
		DirectivesTotal,
		StepsDroppedTotal,
	)
}
