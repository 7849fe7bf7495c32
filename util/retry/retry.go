package retry

import (
	"time"

	"github.com/bitcoin-sv/axiomd/ulogger"
)

// Do runs fn, retrying on error according to opts. It is the execution
// half of this package's functional-options configuration; the upstream
// pack ships the options but not the driver, so this is authored fresh in
// the same idiom.
func Do(logger ulogger.Logger, fn func() error, opts ...Options) error {
	o := NewSetOptions(opts...)

	var err error
	backoff := o.BackoffDurationType

	attempts := o.RetryCount
	for attempt := 0; o.InfiniteRetry || attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !o.InfiniteRetry && attempt == attempts {
			break
		}

		if logger != nil {
			logger.Warnf("%s attempt %d failed: %v", o.Message, attempt+1, err)
		}

		time.Sleep(backoff)

		if o.ExponentialBackoff {
			backoff = time.Duration(float64(backoff) * o.BackoffFactor)
			if backoff > o.MaxBackoff {
				backoff = o.MaxBackoff
			}
		} else {
			backoff = o.BackoffDurationType * time.Duration(o.BackoffMultiplier*(attempt+1))
		}
	}

	return err
}
