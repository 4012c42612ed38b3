// Package repl implements the line-oriented command loop of the kvstore
// command line tool.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/gozephyr/kvstore"
	"github.com/gozephyr/kvstore/errors"
	"github.com/gozephyr/kvstore/log"
	"github.com/gozephyr/kvstore/serializer"
	"github.com/gozephyr/kvstore/snapshot"
	"github.com/gozephyr/kvstore/ttl"
)

const usage = `Commands:
  PUT key value [ttl]   store value, optionally expiring after ttl seconds
  GET key               print the value or (nil)
  DEL key               remove key, prints (1) if it existed
  EXISTS key            prints (1) if key holds a live value
  KEYS                  list live keys
  SIZE                  number of stored entries, including unreaped expired ones
  CLEAR                 remove everything
  CLEANUP               remove expired entries, prints how many
  SAVE path             write a snapshot
  LOAD path             read a snapshot
  HELP                  show this message
  QUIT                  exit`

// REPL maps text commands onto a string store
type REPL struct {
	store    *kvstore.Store[string, string]
	logger   log.Logger
	prompt   string
	snapOpts []snapshot.Option
}

// Option configures a REPL
type Option func(*REPL)

// WithPrompt prints prompt before reading each line
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(r *REPL) {
		r.logger = logger
	}
}

// WithSnapshotOptions sets the options used by SAVE
func WithSnapshotOptions(opts ...snapshot.Option) Option {
	return func(r *REPL) {
		r.snapOpts = opts
	}
}

// New creates a REPL over s
func New(s *kvstore.Store[string, string], opts ...Option) *REPL {
	r := &REPL{
		store:  s,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads commands from in until QUIT, end of input or ctx is done. A
// canceled ctx ends Run even while it waits for input, and a line that
// arrives together with the cancellation is not executed. The goroutine
// reading in stays blocked until its pending read returns.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(in, done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.prompt != "" {
			fmt.Fprint(out, r.prompt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if quit := r.Exec(line, out); quit {
				return nil
			}
		}
	}
}

// readLines scans in on its own goroutine. The error channel receives the
// scanner error before lines is closed.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

// Exec runs a single command line and reports whether it asked to quit
func (r *REPL) Exec(line string, out io.Writer) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd := strings.ToUpper(fields[0])
	args := fields[1:]
	r.logger.Debug("command", "cmd", cmd, "args", len(args))

	switch cmd {
	case "PUT", "SET":
		r.put(args, out)
	case "GET":
		if len(args) != 1 {
			printUsage(out)
			return false
		}
		value, err := r.store.GetRequired(args[0])
		if errors.IsKeyNotFound(err) {
			fmt.Fprintln(out, "(nil)")
			return false
		}
		fmt.Fprintln(out, value)
	case "DEL":
		if len(args) != 1 {
			printUsage(out)
			return false
		}
		printBool(out, r.store.Remove(args[0]))
	case "EXISTS":
		if len(args) != 1 {
			printUsage(out)
			return false
		}
		printBool(out, r.store.Contains(args[0]))
	case "KEYS":
		keys := r.store.Keys()
		if len(keys) == 0 {
			fmt.Fprintln(out, "(empty)")
			return false
		}
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Fprintln(out, key)
		}
	case "SIZE":
		fmt.Fprintln(out, r.store.Size())
	case "CLEAR":
		r.store.Clear()
		fmt.Fprintln(out, "OK")
	case "CLEANUP":
		fmt.Fprintln(out, r.store.Cleanup())
	case "SAVE":
		if len(args) != 1 {
			printUsage(out)
			return false
		}
		r.save(args[0], out)
	case "LOAD":
		if len(args) != 1 {
			printUsage(out)
			return false
		}
		r.load(args[0], out)
	case "HELP":
		printUsage(out)
	case "QUIT", "EXIT":
		return true
	default:
		printUsage(out)
	}
	return false
}

func (r *REPL) put(args []string, out io.Writer) {
	switch len(args) {
	case 2:
		r.store.Put(args[0], args[1])
	case 3:
		seconds, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || seconds < 0 {
			printUsage(out)
			return
		}
		r.store.PutWithTTL(args[0], args[1], ttl.FromSeconds(seconds))
	default:
		printUsage(out)
		return
	}
	fmt.Fprintln(out, "OK")
}

func (r *REPL) save(path string, out io.Writer) {
	header, err := snapshot.Save[string, string](path, r.store, serializer.String{}, serializer.String{}, r.snapOpts...)
	if err != nil {
		r.logger.Warn("snapshot save failed", "path", path, "error", err)
		fmt.Fprintf(out, "ERR %v\n", err)
		return
	}
	r.logger.Info("snapshot saved", "path", path, "id", header.ID, "count", header.Count)
	fmt.Fprintln(out, "OK")
}

func (r *REPL) load(path string, out io.Writer) {
	header, err := snapshot.Load[string, string](path, r.store, serializer.String{}, serializer.String{})
	if err != nil {
		r.logger.Warn("snapshot load failed", "path", path, "error", err)
		fmt.Fprintf(out, "ERR %v\n", err)
		return
	}
	r.logger.Info("snapshot loaded", "path", path, "id", header.ID, "count", header.Count)
	fmt.Fprintln(out, "OK")
}

func printBool(out io.Writer, b bool) {
	if b {
		fmt.Fprintln(out, "(1)")
	} else {
		fmt.Fprintln(out, "(0)")
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, usage)
}
