package transport

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
)

// LogSink publishes commands to the log. It is the sink used when no bus is
// configured.
type LogSink struct {
	published atomic.Uint64
	last      atomic.Int64
}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Publish(ctx context.Context, pwm int) error {
	n := s.published.Add(1)
	prev := s.last.Swap(int64(pwm))
	if n == 1 || prev != int64(pwm) {
		glog.Infof("%s pwm=%d", TopicCommand, pwm)
	} else {
		glog.V(2).Infof("%s pwm=%d", TopicCommand, pwm)
	}
	return nil
}

func (s *LogSink) Published() uint64 {
	return s.published.Load()
}

func (s *LogSink) Close() error {
	glog.Infof("%s closed after %d commands", TopicCommand, s.published.Load())
	return nil
}
