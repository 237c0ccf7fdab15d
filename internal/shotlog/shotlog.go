// Package shotlog records per-session telemetry to rotating CSV files.
//
// Samples are buffered in memory and written on Flush. A failed flush keeps
// every unwritten sample and the pending rotation so the next Flush retries
// them in order.
package shotlog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"espresso_panel/internal/logger"
	"espresso_panel/internal/models"

	"github.com/spf13/afero"
)

const (
	header          = "Seconds, Temperature, Pressure\n"
	timestampLayout = "2006-01-02_15-04-05"
	fileMode        = 0o644
	dirMode         = 0o755
)

// Options configures a Logger.
type Options struct {
	Dir          string        // default "logs"
	Suffix       string        // appended to the timestamp in file names
	SamplePeriod time.Duration // time between samples; default 100ms
	AutoFlush    bool          // flush after every sample
	Now          func() time.Time
	Log          *logger.Logger
}

// Summary describes the file touched by the last Flush.
type Summary struct {
	Sequence int    // sequence of the file that received the samples
	Path     string // path of that file
	Samples  int    // samples in that file so far
	Rotated  bool   // the file was closed and the sequence advanced
}

type batch struct {
	samples    []models.TelemetrySample
	closeAfter bool
}

// Logger buffers TelemetrySamples and writes them to
// <dir>/<timestamp>_<suffix><sequence>.csv.
type Logger struct {
	mu sync.Mutex

	fs        afero.Fs
	dir       string
	base      string
	perSecond float64
	autoFlush bool
	log       *logger.Logger

	sequence int
	total    int
	batches  []*batch
	file     afero.File
}

// New derives the file prefix from the current time and creates the log
// directory. A directory failure is logged and retried on the first flush.
func New(fs afero.Fs, opts Options) *Logger {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.SamplePeriod <= 0 {
		opts.SamplePeriod = 100 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	l := &Logger{
		fs:        fs,
		dir:       opts.Dir,
		base:      opts.Now().Format(timestampLayout) + "_" + opts.Suffix,
		perSecond: float64(time.Second) / float64(opts.SamplePeriod),
		autoFlush: opts.AutoFlush,
		log:       opts.Log,
		sequence:  1,
		batches:   []*batch{{}},
	}
	if err := fs.MkdirAll(l.dir, dirMode); err != nil {
		l.log.Warnw("shotlog_mkdir_failed", "dir", l.dir, "err", err)
	}
	return l
}

// AddSample buffers s, flushing immediately in auto-flush mode.
func (l *Logger) AddSample(s models.TelemetrySample) error {
	l.mu.Lock()
	open := l.batches[len(l.batches)-1]
	open.samples = append(open.samples, s)
	l.mu.Unlock()

	if l.autoFlush {
		_, err := l.Flush(false)
		return err
	}
	return nil
}

// Flush writes every buffered sample. With newFile the current file is
// closed afterwards, the sequence advances and the elapsed-time counter
// restarts at zero.
func (l *Logger) Flush(newFile bool) (Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if newFile {
		l.batches[len(l.batches)-1].closeAfter = true
		l.batches = append(l.batches, &batch{})
	}

	var sum Summary
	for len(l.batches) > 0 {
		b := l.batches[0]
		if err := l.write(b); err != nil {
			l.log.Warnw("shotlog_flush_failed", "file", l.path(l.sequence), "pending", l.bufferedLocked(), "err", err)
			return sum, err
		}
		sum = Summary{Sequence: l.sequence, Path: l.path(l.sequence), Samples: l.total}
		if !b.closeAfter {
			break
		}
		err := l.rotate()
		sum.Rotated = true
		l.batches = l.batches[1:]
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// write appends b's samples to the current file. Samples leave the buffer
// only after a successful write. An empty batch opens the file only when it
// ends a session, so a bare Close leaves no file behind.
func (l *Logger) write(b *batch) error {
	if len(b.samples) == 0 && !b.closeAfter {
		return nil
	}
	if err := l.ensureOpen(); err != nil {
		return err
	}
	if len(b.samples) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for i, s := range b.samples {
		seconds := float64(l.total+i) / l.perSecond
		buf.WriteString(formatFloat(seconds))
		buf.WriteString(", ")
		buf.WriteString(formatFloat(s.TemperatureC))
		buf.WriteString(", ")
		buf.WriteString(formatFloat(s.PressureBar()))
		buf.WriteByte('\n')
	}
	info, err := l.file.Stat()
	if err != nil {
		_ = l.closeFile()
		return fmt.Errorf("stat %s: %w", l.path(l.sequence), err)
	}
	if n, err := l.file.Write(buf.Bytes()); err != nil {
		// Drop the partial rows; the whole batch is written again on retry.
		if n > 0 {
			if terr := l.file.Truncate(info.Size()); terr != nil {
				l.log.Errorw("shotlog_truncate_failed", "file", l.path(l.sequence), "written", n, "err", terr)
			}
		}
		_ = l.closeFile()
		return fmt.Errorf("write %s: %w", l.path(l.sequence), err)
	}
	l.total += len(b.samples)
	b.samples = b.samples[:0]
	return nil
}

func (l *Logger) ensureOpen() error {
	if l.file != nil {
		return nil
	}
	if err := l.fs.MkdirAll(l.dir, dirMode); err != nil {
		return fmt.Errorf("create %s: %w", l.dir, err)
	}
	p := l.path(l.sequence)
	f, err := l.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", p, err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(header); err != nil {
			_ = f.Close()
			return fmt.Errorf("write header %s: %w", p, err)
		}
	}
	l.file = f
	return nil
}

func (l *Logger) rotate() error {
	err := l.closeFile()
	l.sequence++
	l.total = 0
	if err != nil {
		return fmt.Errorf("close %s: %w", l.path(l.sequence-1), err)
	}
	return nil
}

func (l *Logger) closeFile() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) path(seq int) string {
	return filepath.Join(l.dir, l.base+strconv.Itoa(seq)+".csv")
}

// Sequence returns the sequence number of the file the next samples go to.
func (l *Logger) Sequence() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sequence
}

// Path returns the file the next samples go to.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path(l.sequence)
}

// Buffered returns the number of samples not yet written.
func (l *Logger) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bufferedLocked()
}

func (l *Logger) bufferedLocked() int {
	n := 0
	for _, b := range l.batches {
		n += len(b.samples)
	}
	return n
}

// Close flushes pending samples and releases the file handle.
func (l *Logger) Close() error {
	_, flushErr := l.Flush(false)
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(flushErr, l.closeFile())
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
