// Package metrics defines the Prometheus collectors groupchatd exposes,
// adapted from the httpDuration/httpRequests pair in the teacher's
// cmd/server/main.go, generalized from HTTP-only labels to every command
// the core handles.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "groupchat_command_duration_seconds",
			Help: "Latency of GroupChatCore command handling, by command and result.",
		},
		[]string{"command", "result"},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupchat_commands_total",
			Help: "Total GroupChatCore commands handled, by command and result.",
		},
		[]string{"command", "result"},
	)

	EventsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupchat_events_appended_total",
			Help: "Total events appended to the log, by chat scope (main or thread).",
		},
		[]string{"scope"},
	)

	ActionsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupchat_actions_dispatched_total",
			Help: "Total outbound actions drained and dispatched, by kind.",
		},
		[]string{"kind"},
	)

	MembersGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groupchat_members",
			Help: "Current member count per chat.",
		},
		[]string{"chat"},
	)
)

// Register adds every collector to reg — call once at startup with
// prometheus.DefaultRegisterer, matching the teacher's init()-time
// MustRegister pattern but explicit so tests can use their own registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(CommandDuration, CommandsTotal, EventsAppended, ActionsDispatched, MembersGauge)
}
