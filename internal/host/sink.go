package host

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"millisched/internal/sched"
)

// Sink turns registry events into log lines and, optionally, CSV rows.
// It is driven from the dispatch goroutine only.
type Sink struct {
	log  zerolog.Logger
	warn *rate.Limiter

	// CSV output
	csvFile   *os.File
	csvWriter *csv.Writer

	suppressed int
}

// NewSink creates a sink. Overrun warnings are limited to one per second
// with a small burst; the rest are counted and reported with the next one.
func NewSink(log zerolog.Logger) *Sink {
	return &Sink{
		log:  log,
		warn: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// EnableCSV opens the given file path for CSV logging of events, closing
// any file opened by an earlier call. Must be called before the host starts.
func (s *Sink) EnableCSV(path string) error {
	if err := s.Close(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"timestamp", "tick", "event", "task", "interval_ms", "elapsed_ms", "drift_ms", "cost_ms"}); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	s.csvFile = f
	s.csvWriter = w
	return nil
}

// Handle records one event.
func (s *Sink) Handle(ev sched.Event) {
	switch ev.Kind {
	case sched.EventFire:
		s.log.Debug().
			Str("task", ev.Name).
			Int64("tick", ev.Tick).
			Int64("drift_ms", ev.Drift).
			Int64("cost_ms", ev.Cost).
			Msg("fire")
		if late(ev) {
			if s.warn.Allow() {
				s.log.Warn().
					Str("task", ev.Name).
					Int64("interval_ms", ev.Interval).
					Int64("overrun_ms", ev.Overrun()).
					Int64("cost_ms", ev.Cost).
					Int("suppressed", s.suppressed).
					Msg("task missed its period")
				s.suppressed = 0
			} else {
				s.suppressed++
			}
		}
	default:
		s.log.Info().
			Str("task", ev.Name).
			Str("event", ev.Kind.String()).
			Int64("interval_ms", ev.Interval).
			Msg("registry")
	}

	if s.csvWriter != nil {
		rec := []string{
			time.Now().Format(time.RFC3339Nano),
			strconv.FormatInt(ev.Tick, 10),
			ev.Kind.String(),
			ev.Name,
			strconv.FormatInt(ev.Interval, 10),
			strconv.FormatInt(ev.Elapsed, 10),
			strconv.FormatInt(ev.Drift, 10),
			strconv.FormatInt(ev.Cost, 10),
		}
		_ = s.csvWriter.Write(rec)
		s.csvWriter.Flush()
	}
}

// Close flushes and closes the CSV file, if any.
func (s *Sink) Close() error {
	if s.csvFile == nil {
		return nil
	}
	s.csvWriter.Flush()
	err := s.csvWriter.Error()
	if cerr := s.csvFile.Close(); err == nil {
		err = cerr
	}
	s.csvFile, s.csvWriter = nil, nil
	return err
}

// late reports whether a firing missed a whole period or its body took at
// least one.
func late(ev sched.Event) bool {
	return ev.Overrun() >= ev.Interval || ev.Cost >= ev.Interval
}
