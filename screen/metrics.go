package screen

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	smsReceivedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "otpfill",
			Name:      "sms_received_total",
			Help:      "Total number of SMS deliveries handled by a screen.",
		},
	)

	codesExtractedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "otpfill",
			Name:      "codes_extracted_total",
			Help:      "Total number of SMS deliveries that contained an OTP.",
		},
	)

	slotRejectedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "otpfill",
			Name:      "slot_input_rejected_total",
			Help:      "Total number of slot edits rejected as too long or out of range.",
		},
	)

	verificationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "otpfill",
			Name:      "verifications_total",
			Help:      "Total number of OTP submissions.",
		},
		[]string{"result"}, // valid, invalid
	)
)
