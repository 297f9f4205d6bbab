package pin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification results.
const (
	resultSuccess   = "success"
	resultMismatch  = "mismatch"
	resultNoPin     = "no_pin"
	resultThrottled = "throttled"
	resultError     = "error"
)

// VerificationsTotal counts PIN verifications.
// Labels: result (success, mismatch, no_pin, throttled, error)
var VerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "redactd",
		Name:      "pin_verifications_total",
		Help:      "Total number of PIN verifications by result",
	},
	[]string{"result"},
)
