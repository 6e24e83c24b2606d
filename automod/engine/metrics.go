package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_process_count",
	Help: "Number of events processed by the moderation engine",
}, []string{"type"})

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "automod_event_process_duration",
	Help:    "Time to process events, in seconds",
	Buckets: prometheus.ExponentialBucketsRange(0.0001, 2.0, 15),
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_error_count",
	Help: "Number of panics recovered during event processing",
}, []string{"type"})

var detectorFireCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_detector_fire_count",
	Help: "Number of verdicts produced, by rule",
}, []string{"rule"})

var messageDeleteCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_message_delete_count",
	Help: "Number of message deletion attempts, by outcome",
}, []string{"outcome"})

var punishmentExecCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_punishment_exec_count",
	Help: "Number of punishment executions, by effective action and outcome",
}, []string{"action", "outcome"})

var fallbackCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_punishment_fallback_count",
	Help: "Number of times a punishment fell back to a channel overwrite",
}, []string{"action"})

var raidEscalationCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_raid_escalation_count",
	Help: "Number of raid kick verdicts escalated to bans",
})
