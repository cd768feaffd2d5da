package detection

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/compassradar/extension/internal/detection"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
