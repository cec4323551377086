// Package vw drives a Vowpal Wabbit process as an ml.Learner.
package vw

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"vwlab/ml"
)

// DefaultBinary is looked up on PATH when Options.Binary is empty.
const DefaultBinary = "vw"

// Options configures a Session.
type Options struct {
	Binary       string
	ModelPath    string
	InitialModel string
	TestOnly     bool
	Args         []string
}

// Session is one running vw process fed one example per line on stdin. vw answers
// every line, labelled or not, with one prediction line on stdout, so requests and
// replies stay paired. A call cancelled through its context leaves its reply to be
// skipped by the next call. A Session is safe for concurrent use; calls are serialized.
type Session struct {
	ml.VWHasher

	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	stderr *tailWriter
	err    error
	closed bool
	done   chan struct{}

	// pending counts replies still owed to calls whose caller gave up.
	pending int
}

func init() {
	ml.RegisterLearner("vw", func(ctx context.Context, opts ml.LearnerOptions) (ml.Learner, error) {
		return Open(ctx, Options{
			Binary:       opts.Binary,
			ModelPath:    opts.ModelPath,
			InitialModel: opts.InitialModel,
			TestOnly:     opts.TestOnly,
			Args:         opts.Args,
		}, opts.Logger)
	})
}

// args returns the command line vw is started with.
func (o Options) args() []string {
	args := []string{"--quiet", "--predictions", "/dev/stdout"}
	if o.InitialModel != "" {
		args = append(args, "--initial_regressor", o.InitialModel)
	}
	if o.ModelPath != "" {
		args = append(args, "--final_regressor", o.ModelPath)
	}
	if o.TestOnly {
		args = append(args, "--testonly")
	}
	return append(args, o.Args...)
}

// Open checks the model files and starts vw. A model path that cannot be written or
// an initial model that cannot be read is reported as ml.ErrResource.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if err := checkModelFiles(opts); err != nil {
		return nil, err
	}

	// The process outlives ctx; it is stopped by Close.
	cmd := exec.Command(opts.Binary, opts.args()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("vw stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("vw stdout: %w", err)
	}
	stderr := newTailWriter(4096, logger.Named("vw"))
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Binary, err)
	}
	logger.Info("vw started",
		zap.String("binary", opts.Binary),
		zap.Strings("args", opts.args()),
		zap.Int("pid", cmd.Process.Pid))

	s := &Session{
		opts:   opts,
		logger: logger,
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string),
		stderr: stderr,
		done:   make(chan struct{}),
	}
	go s.readPredictions(stdout)
	return s, nil
}

func checkModelFiles(opts Options) error {
	if opts.InitialModel != "" {
		f, err := os.Open(opts.InitialModel)
		if err != nil {
			return fmt.Errorf("%w: initial model: %v", ml.ErrResource, err)
		}
		f.Close()
	}
	if opts.ModelPath != "" {
		dir := filepath.Dir(opts.ModelPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: model directory: %v", ml.ErrResource, err)
		}
		// Only check the directory; the model file itself appears when vw writes it.
		f, err := os.CreateTemp(dir, ".vwlab-write-check-*")
		if err != nil {
			return fmt.Errorf("%w: model directory not writable: %v", ml.ErrResource, err)
		}
		name := f.Name()
		f.Close()
		if err := os.Remove(name); err != nil {
			return fmt.Errorf("%w: model directory: %v", ml.ErrResource, err)
		}
	}
	return nil
}

func (s *Session) readPredictions(stdout io.Reader) {
	defer close(s.lines)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		// After Close nobody receives; keep draining so vw never blocks on a full pipe.
		select {
		case s.lines <- scanner.Text():
		case <-s.done:
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Debug("vw output closed", zap.Error(err))
	}
}

// ModelPath returns the path the model is written to on Close.
func (s *Session) ModelPath() string {
	return s.opts.ModelPath
}

// Learn sends a labelled example. The prediction vw makes before updating is discarded.
func (s *Session) Learn(ctx context.Context, example ml.Example) error {
	if !example.Labelled() {
		return fmt.Errorf("%w: learn needs a labelled example", ml.ErrInvalidInput)
	}
	_, err := s.roundTrip(ctx, example)
	return err
}

// Predict sends an unlabelled copy of example and returns vw's prediction.
func (s *Session) Predict(ctx context.Context, example ml.Example) (float64, error) {
	example.Label = nil
	return s.roundTrip(ctx, example)
}

func (s *Session) roundTrip(ctx context.Context, example ml.Example) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ml.ErrClosed
	}
	if s.err != nil {
		return 0, s.err
	}

	if _, err := io.WriteString(s.stdin, FormatExample(example)+"\n"); err != nil {
		s.err = fmt.Errorf("write example to vw: %w%s", err, s.stderr.suffix())
		return 0, s.err
	}

	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.err = fmt.Errorf("vw exited unexpectedly%s", s.stderr.suffix())
				return 0, s.err
			}
			// Replies to abandoned calls arrive first; vw answers in order.
			if s.pending > 0 {
				s.pending--
				continue
			}
			return ParsePrediction(line)
		case <-ctx.Done():
			s.pending++
			return 0, ctx.Err()
		}
	}
}

// Close ends the input stream and waits for vw to write its model and exit.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)

	var errs []error
	if err := s.stdin.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close vw stdin: %w", err))
	}
	// Wait closes stdout, so the reader must see EOF first.
	for range s.lines {
	}
	if err := s.cmd.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("vw exited: %w%s", err, s.stderr.suffix()))
	}
	s.logger.Info("vw stopped", zap.String("model", s.opts.ModelPath))
	return errors.Join(errs...)
}

// tailWriter logs vw's diagnostics and keeps the last bytes for error messages.
type tailWriter struct {
	mu     sync.Mutex
	limit  int
	buf    []byte
	logger *zap.Logger
}

func newTailWriter(limit int, logger *zap.Logger) *tailWriter {
	return &tailWriter{limit: limit, logger: logger}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger.Debug(string(p))
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.limit {
		w.buf = w.buf[len(w.buf)-w.limit:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}

func (w *tailWriter) suffix() string {
	if tail := w.String(); tail != "" {
		return ": " + tail
	}
	return ""
}
