package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/radiko"
	"aircheck/internal/services"
)

// SegmentSource retrieves one playlist entry's bytes using the given
// session token.
type SegmentSource interface {
	Fetch(ctx context.Context, entry radiko.PlaylistEntry, token string) ([]byte, error)
}

// errSessionExpired signals that the pipeline stopped dispatching because
// the session lapsed. The orchestrator re-authenticates and resumes from
// the index the pipeline reported.
var errSessionExpired = errors.New("session expired")

type fetchResult struct {
	data []byte
	err  error
}

// pipeline drives the bounded-prefetch ordered fetch for one job. At most
// prefetch+1 fetches are outstanding, and a single writer goroutine (the
// caller of run) is the only thing that touches the sink, so bytes reach it
// strictly in entry order.
type pipeline struct {
	source   SegmentSource
	prefetch int
	now      func() time.Time
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
}

func clampPrefetch(prefetch int) int {
	if prefetch < 0 {
		return 0
	}
	if prefetch > config.MaxSegmentPrefetch {
		return config.MaxSegmentPrefetch
	}
	return prefetch
}

// run fetches entries[from:] in order into sink. The session is checked
// before every dispatch, never mid-segment; on expiry the pipeline drains
// what is already in flight, writes it in order, and returns
// errSessionExpired. The returned index is the first unwritten entry.
func (p *pipeline) run(ctx context.Context, session radiko.Session, entries []radiko.PlaylistEntry, from int, sink io.Writer) (int, int64, error) {
	if from < 0 || from > len(entries) {
		return from, 0, fmt.Errorf("resume index %d outside playlist of %d entries", from, len(entries))
	}
	window := clampPrefetch(p.prefetch) + 1

	fetchCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	// On every exit: abort outstanding fetches and wait them out, so no
	// request is left in flight when the caller moves on.
	defer func() {
		cancel()
		wg.Wait()
	}()

	results := make(map[int]chan fetchResult, window)
	dispatch := func(idx int) {
		ch := make(chan fetchResult, 1)
		results[idx] = ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := p.source.Fetch(fetchCtx, entries[idx], session.Token)
			ch <- fetchResult{data: data, err: err}
		}()
	}

	next := from
	expired := false
	for next < len(entries) && next-from < window {
		if session.Expired(p.now()) {
			expired = true
			break
		}
		dispatch(next)
		next++
	}

	var written int64
	index := from
	for index < next {
		res := <-results[index]
		delete(results, index)
		if res.err != nil {
			return index, written, res.err
		}
		n, err := sink.Write(res.data)
		written += int64(n)
		if err != nil {
			// The sink is the encoder's stdin; a write failure means the
			// pipe went away under us.
			return index, written, services.Wrap(services.ErrEncoderPipe, "recording", "write",
				fmt.Sprintf("sequence %d", entries[index].Sequence), err)
		}
		index++
		p.logProgress(index, len(entries), written)

		if !expired && next < len(entries) {
			if session.Expired(p.now()) {
				expired = true
			} else {
				dispatch(next)
				next++
			}
		}
	}

	if expired && index < len(entries) {
		return index, written, errSessionExpired
	}
	return index, written, nil
}

func (p *pipeline) logProgress(done, total int, written int64) {
	if total <= 0 || p.logger == nil {
		return
	}
	percent := float64(done) / float64(total) * 100
	if p.sampler != nil && !p.sampler.ShouldLog(percent, string(StatusFetching)) {
		return
	}
	p.logger.Info("fetch progress",
		logging.Float64(logging.FieldProgressPercent, percent),
		logging.Int("fetched", done),
		logging.Int("segment_count", total),
		logging.Int64("bytes_written", written))
}
