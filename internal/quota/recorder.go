package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/starnote/ai-gateway/internal/config"
)

// Recorder writes usage records in the background. A write never blocks
// the caller and its failure is only logged.
type Recorder struct {
	store    Store
	timeout  time.Duration
	onResult func(error)
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder. onResult, if set, is called after every
// write with its error (nil on success).
func NewRecorder(store Store, timeout time.Duration, onResult func(error)) *Recorder {
	if timeout <= 0 {
		timeout = config.DefaultUsageLogTimeout
	}
	return &Recorder{store: store, timeout: timeout, onResult: onResult}
}

// RecordAsync starts the write and returns immediately. The write uses its
// own context so it outlives the request that triggered it.
func (r *Recorder) RecordAsync(rec UsageRecord) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.record(rec)
		if err != nil {
			log.Error().Err(err).
				Str("user_id", rec.UserID).
				Str("model", rec.Model).
				Msg("failed to log token usage")
		}
		if r.onResult != nil {
			r.onResult(err)
		}
	}()
}

func (r *Recorder) record(rec UsageRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("usage log panic: %v", p)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.store.RecordUsage(ctx, rec)
}

// Wait blocks until all started writes have finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
