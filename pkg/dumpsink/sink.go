// Package dumpsink implements optional file-based capture of translated
// requests and raw upstream chunks, for offline debugging of protocol
// translation issues. It is off by default and never blocks the request
// path: writes are fire-and-forget over a bounded channel.
package dumpsink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink accepts dump records without blocking the caller.
type Sink interface {
	// Record enqueues a record for background persistence. Never blocks
	// past the channel being full, in which case the record is dropped.
	Record(responseID string, kind string, payload any)

	// Close stops accepting records and waits for the background writer
	// to drain.
	Close()
}

// noop is the default Sink when dumping is disabled.
type noop struct{}

func (noop) Record(string, string, any) {}
func (noop) Close()                     {}

// NoOp returns a Sink that discards every record.
func NoOp() Sink { return noop{} }

type record struct {
	responseID string
	kind       string
	payload    any
	at         time.Time
}

// fileSink appends one line of JSON per record to a file under
// directory, named by response ID.
type fileSink struct {
	directory string
	logger    *slog.Logger

	ch   chan record
	done chan struct{}
	once sync.Once
}

// New creates a file-backed Sink. It creates directory if missing. The
// bounded channel (capacity 256) decouples the writer goroutine from
// request-handling goroutines.
func New(directory string, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("dumpsink: create directory: %w", err)
	}

	s := &fileSink{
		directory: directory,
		logger:    logger,
		ch:        make(chan record, 256),
		done:      make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *fileSink) Record(responseID, kind string, payload any) {
	select {
	case s.ch <- record{responseID: responseID, kind: kind, payload: payload, at: time.Now()}:
	default:
		s.logger.Warn("dump sink channel full, dropping record",
			slog.String("response_id", responseID), slog.String("kind", kind))
	}
}

func (s *fileSink) Close() {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
}

func (s *fileSink) run() {
	defer close(s.done)
	for r := range s.ch {
		if err := s.write(r); err != nil {
			s.logger.Warn("dump sink write failed", slog.String("error", err.Error()))
		}
	}
}

func (s *fileSink) write(r record) error {
	path := filepath.Join(s.directory, r.responseID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := struct {
		Kind    string `json:"kind"`
		At      string `json:"at"`
		Payload any    `json:"payload"`
	}{Kind: r.kind, At: r.at.Format(time.RFC3339Nano), Payload: r.payload}

	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}
