package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/embedded"
	"go.opentelemetry.io/otel/metric/noop"
)

type countingRegistration struct {
	embedded.Registration
	unregistered int
}

func (r *countingRegistration) Unregister() error {
	r.unregistered++
	return nil
}

type registrationMeter struct {
	noop.Meter
	regs []*countingRegistration
}

func (m *registrationMeter) RegisterCallback(metric.Callback, ...metric.Observable) (metric.Registration, error) {
	r := &countingRegistration{}
	m.regs = append(m.regs, r)
	return r, nil
}

type registrationProvider struct {
	embedded.MeterProvider
	m *registrationMeter
}

func (p registrationProvider) Meter(string, ...metric.MeterOption) metric.Meter {
	return p.m
}

func TestClose_UnregistersTrackedCallback(t *testing.T) {
	m := &registrationMeter{}
	otel.SetMeterProvider(registrationProvider{m: m})
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	p, err := New(newFakeWorld(), &fakeZone{gameplay: true}, nil, nil)
	require.NoError(t, err)
	require.Len(t, m.regs, 1)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, m.regs[0].unregistered)
}

func TestClose_NilPipeline(t *testing.T) {
	var p *Pipeline
	assert.NoError(t, p.Close())
}
