package sink

import "fmt"

// Writer is the sample batch destination contract shared by all
// sinks.
type Writer interface {
	Write(samples []int32) error
}

type multiSink []Writer

// Multi fans every batch out to all given sinks. The first error
// stops the fan-out and is returned.
func Multi(writers ...Writer) Writer {
	return multiSink(writers)
}

func (m multiSink) Write(samples []int32) error {
	for i, w := range m {
		if err := w.Write(samples); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
