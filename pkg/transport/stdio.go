package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// StdioTransport carries newline-delimited JSON-RPC messages over standard
// input and output. It is the transport of choice for servers spawned as
// child processes of their client.
type StdioTransport struct {
	*BaseTransport
	reader       io.Reader
	writer       *bufio.Writer
	errorHandler ErrorHandler
	mutex        sync.RWMutex
	done         chan struct{}
	stopOnce     sync.Once
}

func newStdioTransport(config TransportConfig) *StdioTransport {
	reader := config.StdioReader
	writer := config.StdioWriter
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	logger := config.Logger
	if logger != nil {
		logger = logger.WithFields(logging.String("component", "stdio"))
	}

	bufSize := config.Performance.BufferSize
	if bufSize <= 0 {
		bufSize = 8192
	}

	return &StdioTransport{
		BaseTransport: NewBaseTransport(logger),
		reader:        reader,
		writer:        bufio.NewWriterSize(writer, bufSize),
		done:          make(chan struct{}),
	}
}

// NewStdioTransport creates a stdio transport reading from r and writing to
// w. Nil values default to os.Stdin and os.Stdout.
func NewStdioTransport(r io.Reader, w io.Writer, logger logging.Logger) *StdioTransport {
	config := TransportConfig{StdioReader: r, StdioWriter: w, Logger: logger}
	return newStdioTransport(config)
}

// Initialize is a no-op for stdio; the streams already exist.
func (t *StdioTransport) Initialize(ctx context.Context) error {
	return nil
}

// Start reads messages until the context is cancelled, the transport is
// stopped, or input reaches EOF.
func (t *StdioTransport) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	scannerDone := make(chan struct{})

	g.Go(func() error {
		defer close(scannerDone)

		for scanner.Scan() {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-t.done:
				return nil
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			data := make([]byte, len(line))
			copy(data, line)

			t.processMessage(gctx, data)
		}

		if err := scanner.Err(); err != nil && err != io.EOF {
			return mcperrors.StdioTransportError("read_input", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			t.closeReader()
			return gctx.Err()
		case <-t.done:
			t.closeReader()
			return nil
		case <-scannerDone:
			return nil
		}
	})

	return g.Wait()
}

// closeReader unblocks scanner.Scan when the reader supports closing.
func (t *StdioTransport) closeReader() {
	if closer, ok := t.reader.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Stop halts the transport, flushes pending output, and cleans up.
func (t *StdioTransport) Stop(ctx context.Context) error {
	var flushErr error

	t.stopOnce.Do(func() {
		close(t.done)

		t.mutex.Lock()
		flushErr = t.writer.Flush()
		t.errorHandler = nil
		t.mutex.Unlock()

		t.BaseTransport.Cleanup()
	})

	if flushErr != nil {
		return mcperrors.StdioTransportError("stop", flushErr)
	}
	return nil
}

// Send writes a message line to the output stream.
func (t *StdioTransport) Send(data []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return mcperrors.StdioTransportError("write_message", err)
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return mcperrors.StdioTransportError("write_newline", err)
	}
	if err := t.writer.Flush(); err != nil {
		return mcperrors.StdioTransportError("flush_output", err)
	}
	return nil
}

// SendRequest sends a request and blocks until its response arrives.
func (t *StdioTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	id := t.GenerateID()

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshalling request: %w", err)
	}

	if err := t.Send(data); err != nil {
		return nil, err
	}

	resp, err := t.WaitForResponse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error waiting for response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp, nil
}

// SendNotification sends a one-way notification.
func (t *StdioTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	notification, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("error marshalling notification: %w", err)
	}
	return t.Send(data)
}

// SetErrorHandler sets the handler for low-level transport errors.
func (t *StdioTransport) SetErrorHandler(handler ErrorHandler) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.errorHandler = handler
}

func (t *StdioTransport) processMessage(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.Logger().Error("panic processing message",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			t.handleError(fmt.Errorf("panic processing message: %v", r))
		}
	}()

	if err := t.DispatchMessage(ctx, data, t.Send); err != nil {
		t.handleError(err)
	}
}

func (t *StdioTransport) handleError(err error) {
	t.mutex.RLock()
	handler := t.errorHandler
	t.mutex.RUnlock()

	if handler != nil {
		handler(err)
	} else {
		t.Logger().Warn("transport error", logging.ErrorField(err))
	}
}
