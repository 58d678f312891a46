package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sufield/courier/internal/core/domain"
)

func TestHandlerFunc(t *testing.T) {
	var got domain.Delivery
	var h Handler = HandlerFunc(func(_ context.Context, d domain.Delivery) {
		got = d
	})

	want := domain.Delivery{ID: "1", Address: "https://localhost:7847/#tok", Content: `{"a":1}`}
	h.Deliver(context.Background(), want)
	assert.Equal(t, want, got)
}

func TestNoOpMetrics(t *testing.T) {
	var m MetricsReporter = NoOpMetrics{}
	assert.NotPanics(t, func() {
		m.RecordSend(SendResultOK, time.Millisecond)
		m.RecordDelivery()
		m.RecordRejected("GET")
		m.SetListening(true)
	})
}
