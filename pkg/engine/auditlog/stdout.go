//
//  Copyright © PageSentry Labs. All rights reserved.
//

package auditlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// AuditLogOptions configures the behavior of audit log output.
type AuditLogOptions struct {
	// PrettyPrint enables indented multi-line JSON output.
	// When false (default), output is compact single-line JSON.
	PrettyPrint bool
}

// IoWriterFactory creates [Stream] instances that write to an [io.Writer].
//
// Use [NewStdoutFactory] to create a factory for stdout, or
// [NewIoWriterFactory] for a custom writer.
type IoWriterFactory struct {
	writer  io.Writer
	options AuditLogOptions
}

// IoWriterStream writes audit records as JSON to an [io.Writer].
//
// Each record is written as a single line of JSON followed by a newline,
// a format suitable for log aggregation systems and command-line tools.
//
// IoWriterStream is safe for concurrent use; writes are atomic at the
// line level.
type IoWriterStream struct {
	mu      sync.Mutex
	writer  io.Writer
	options AuditLogOptions
}

// NewStdoutFactory creates a [Factory] that writes audit records to
// stdout.
//
// This is the default factory used by the engine if no audit log is
// explicitly configured.  It is suitable for development and for
// production environments where stdout is captured by a log aggregator.
func NewStdoutFactory() Factory {
	return NewIoWriterFactory(os.Stdout)
}

// NewIoWriterFactory creates a [Factory] that writes audit records to
// the specified [io.Writer].
//
// This is useful for writing to files, buffers, or other destinations:
//
//	file, _ := os.Create("audit.log")
//	factory := auditlog.NewIoWriterFactory(file)
func NewIoWriterFactory(w io.Writer) Factory {
	return NewIoWriterFactoryWithOptions(w, AuditLogOptions{})
}

// NewIoWriterFactoryWithOptions creates a [Factory] that writes audit
// records to the specified [io.Writer] with the given options.
func NewIoWriterFactoryWithOptions(w io.Writer, opts AuditLogOptions) Factory {
	return &IoWriterFactory{
		writer:  w,
		options: opts,
	}
}

// NewStream creates a new [IoWriterStream] that writes to the configured writer.
func (f *IoWriterFactory) NewStream() (Stream, error) {
	return &IoWriterStream{
		writer:  f.writer,
		options: f.options,
	}, nil
}

// Send marshals the audit record to JSON and writes it to the configured
// writer, followed by a newline.
func (s *IoWriterStream) Send(record *Record) error {
	var (
		output []byte
		err    error
	)
	if s.options.PrettyPrint {
		output, err = json.MarshalIndent(record, "", "  ")
	} else {
		output, err = json.Marshal(record)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = fmt.Fprintln(s.writer, string(output))
	return err
}

// Close is a no-op for IoWriterStream.
//
// The underlying writer is not closed; the caller is responsible for
// closing it if needed (except for stdout, which should not be closed).
func (s *IoWriterStream) Close() {}
