package eval

import "github.com/awagatsuma/lasgo/internal/logger"

// Sink receives evaluation results as named scalars, one call per key.
// Implementations typically forward to a metrics-visualization service.
type Sink interface {
	Scalar(name string, value float64)
}

// LogSink reports scalars through the logger. Useful as a default sink and
// in tests.
type LogSink struct {
	Log logger.Logger
}

func (s LogSink) Scalar(name string, value float64) {
	log := s.Log
	if log == nil {
		log = logger.Default()
	}
	log.Info("evaluation scalar", "name", name, "value", value)
}
