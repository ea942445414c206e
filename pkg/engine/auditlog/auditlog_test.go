//
//  Copyright © PageSentry Labs. All rights reserved.
//

package auditlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(principal string) *Record {
	return &Record{
		ID:           "test-" + principal,
		Timestamp:    time.Now(),
		PrincipalID:  principal,
		ResourcePath: "/docs/readme",
		Action:       "read_pages",
		Effect:       "allow",
		Reason:       "default-normal-permission",
	}
}

func TestIoWriterStream(t *testing.T) {
	var buf bytes.Buffer

	stream, err := NewIoWriterFactory(&buf).NewStream()
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.Send(testRecord("alice")))
	require.NoError(t, stream.Send(testRecord("bob")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var r Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &r))
	assert.Equal(t, "alice", r.PrincipalID)
	assert.Equal(t, "allow", r.Effect)
}

func TestIoWriterStreamPrettyPrint(t *testing.T) {
	var buf bytes.Buffer

	stream, err := NewIoWriterFactoryWithOptions(&buf, AuditLogOptions{PrettyPrint: true}).NewStream()
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.Send(testRecord("alice")))
	assert.Contains(t, buf.String(), "\n  \"id\"")
}

func TestNullStream(t *testing.T) {
	stream, err := NewNullFactory().NewStream()
	require.NoError(t, err)
	defer stream.Close()

	assert.NoError(t, stream.Send(testRecord("alice")))
}

// collectStream gathers sent records for assertions.
type collectStream struct {
	mu      sync.Mutex
	records []*Record
	sendErr error
	closed  bool
}

func (s *collectStream) Send(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil && record.PrincipalID == "alice" {
		return s.sendErr
	}
	s.records = append(s.records, record)
	return nil
}

func (s *collectStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *collectStream) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestEmitterDelivers(t *testing.T) {
	stream := &collectStream{}
	e := NewEmitter(stream, 16)

	for i := 0; i < 5; i++ {
		e.Emit(testRecord("alice"))
	}
	e.Close()

	assert.Equal(t, 5, stream.count())
	assert.True(t, stream.closed)
}

func TestEmitterDrainsOnClose(t *testing.T) {
	stream := &collectStream{}
	e := NewEmitter(stream, 64)

	for i := 0; i < 50; i++ {
		e.Emit(testRecord("alice"))
	}
	e.Close()

	// Everything buffered at Close time is flushed before the stream
	// closes.
	assert.Equal(t, 50, stream.count())
}

func TestEmitterDropsWhenFull(t *testing.T) {
	stream := &collectStream{}
	e := NewEmitter(stream, 1)

	var drops int
	e.SetDropHook(func() { drops++ })

	// Overwhelm the 1-slot buffer; Emit must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			e.Emit(testRecord("alice"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked")
	}

	e.Close()
	assert.Equal(t, 1000, stream.count()+drops)
}

func TestEmitterSendErrorsDoNotStopDelivery(t *testing.T) {
	stream := &collectStream{sendErr: errors.New("sink down")}
	e := NewEmitter(stream, 16)

	// Sends for alice fail; bob's record must still get through.
	e.Emit(testRecord("alice"))
	e.Emit(testRecord("bob"))
	e.Close()

	require.Equal(t, 1, stream.count())
	assert.Equal(t, "bob", stream.records[0].PrincipalID)
}

func TestEmitterCloseIsIdempotent(t *testing.T) {
	stream := &collectStream{}
	e := NewEmitter(stream, 16)

	e.Close()
	assert.NotPanics(t, e.Close)
}
