package tracker

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mj1618/overlaywin/internal/model"
	"go.uber.org/zap"
)

// Command names written to an external tracker.
const (
	CmdStart           = "start"
	CmdActivateOverlay = "activateOverlay"
	CmdFocusTarget     = "focusTarget"
	CmdStop            = "stop"
)

// ErrNotStarted is returned by commands sent before Start.
var ErrNotStarted = errors.New("tracker not started")

// Command is one line written to the tracker process.
type Command struct {
	Cmd    string   `json:"cmd"`
	Handle string   `json:"handle,omitempty"`
	Titles []string `json:"titles,omitempty"`
}

// Stream is a platform.Tracker that talks to an external native tracker over
// line-delimited JSON: records are read from in, commands written to out.
type Stream struct {
	in  io.Reader
	out io.Writer
	log *zap.Logger

	mu      sync.Mutex // serializes writes to out
	enc     *json.Encoder
	started atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
	err     error
	skipped atomic.Int64
}

// NewStream creates a stream tracker. A nil logger disables logging.
func NewStream(in io.Reader, out io.Writer, log *zap.Logger) *Stream {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{
		in:   in,
		out:  out,
		log:  log,
		enc:  json.NewEncoder(out),
		done: make(chan struct{}),
	}
}

// Start announces the overlay handle and target titles, then reads records
// until the input ends or Stop is called.
func (s *Stream) Start(overlay model.WindowHandle, target model.TargetSelector, emit func(model.Record)) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("stream tracker already started")
	}
	if err := s.send(Command{Cmd: CmdStart, Handle: hex.EncodeToString(overlay), Titles: target.Titles}); err != nil {
		return err
	}
	go s.read(emit)
	return nil
}

func (s *Stream) read(emit func(model.Record)) {
	defer close(s.done)
	err := ReadRecords(s.in, func(rec model.Record) bool {
		if s.stopped.Load() {
			return false
		}
		emit(rec)
		return true
	}, func(line int, err error) {
		s.skipped.Add(1)
		s.log.Warn("skipping malformed tracker record", zap.Int("line", line), zap.Error(err))
	})
	if err != nil && !s.stopped.Load() {
		s.err = err
	}
}

// ReadRecords decodes line-delimited records from r until EOF or until emit
// returns false. Blank lines and lines starting with # are ignored; malformed
// lines are passed to bad and skipped.
func ReadRecords(r io.Reader, emit func(model.Record) bool, bad func(line int, err error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			if bad != nil {
				bad(line, err)
			}
			continue
		}
		if !emit(rec) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading tracker stream: %w", err)
	}
	return nil
}

// Done is closed once the input stream is exhausted or reading stopped.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the read error, if any, after Done is closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Skipped returns the number of malformed lines ignored so far.
func (s *Stream) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Stream) ActivateOverlay() error {
	return s.command(CmdActivateOverlay)
}

func (s *Stream) FocusTarget() error {
	return s.command(CmdFocusTarget)
}

// Stop tells the tracker to stop. Records read after Stop are dropped.
func (s *Stream) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if !s.started.Load() {
		return nil
	}
	return s.send(Command{Cmd: CmdStop})
}

func (s *Stream) command(name string) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	if s.stopped.Load() {
		return nil
	}
	return s.send(Command{Cmd: name})
}

func (s *Stream) send(c Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(c); err != nil {
		return fmt.Errorf("writing %s command: %w", c.Cmd, err)
	}
	return nil
}
