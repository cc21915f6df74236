package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "created_total",
		Help:      "Diagnostic sessions created",
	})

	// sessionsConcluded counts concluded sessions.
	// Labels: reason (expected-level, root-confirmed, bottomed-out, ...)
	sessionsConcluded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "concluded_total",
		Help:      "Diagnostic sessions concluded, by reason",
	}, []string{"reason"})

	// sessionsClosed counts sessions ended without a conclusion.
	// Labels: status (abandoned, timed_out)
	sessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "closed_total",
		Help:      "Diagnostic sessions abandoned or timed out",
	}, []string{"status"})

	// probesAnswered counts classified probe answers.
	// Labels: phase (screening, tracing), outcome (mastered, gap, uncertain)
	probesAnswered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "probes_answered_total",
		Help:      "Probe answers applied to sessions",
	}, []string{"phase", "outcome"})

	duplicateSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "duplicate_submissions_total",
		Help:      "Submissions answered from the idempotency cache",
	})

	fallbackGaps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "fallback_gaps_total",
		Help:      "Nodes settled as gaps after repeated uncertain answers",
	})

	lowConfidenceRepeats = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "low_confidence_repeats_total",
		Help:      "Probes asked again because the answer fell below the node's confidence threshold",
	})

	analyzerEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "review_escalations_total",
		Help:      "Sessions escalated to human review after repeated analyzer failures",
	})

	classifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rootcause",
		Subsystem: "session",
		Name:      "classify_latency_seconds",
		Help:      "Time spent classifying one submission",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
	})
)
