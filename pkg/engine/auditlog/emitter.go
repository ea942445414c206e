//
//  Copyright © PageSentry Labs. All rights reserved.
//

package auditlog

import (
	"sync"

	"github.com/pagesentry/permengine/internal/logging"
)

var logger = logging.GetLogger("permengine.auditlog")

const agent = "emitter"

// Emitter decouples decision evaluation from audit delivery.  Records
// are queued on a bounded buffer and delivered to the underlying
// [Stream] by a single background goroutine.
//
// Emit never blocks: when the buffer is full the record is dropped and
// the drop is logged locally.  Stream send failures are likewise logged
// and discarded.  Neither condition ever alters or delays the access
// decision already returned to the caller.
type Emitter struct {
	stream   Stream
	records  chan *Record
	onDrop   func()
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEmitter creates an emitter delivering to the given stream with the
// given buffer capacity.  A non-positive buffer falls back to 1024.
func NewEmitter(stream Stream, buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 1024
	}

	e := &Emitter{
		stream:   stream,
		records:  make(chan *Record, buffer),
		stopChan: make(chan struct{}),
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// SetDropHook installs a callback invoked whenever a record is dropped
// because the buffer is full.  Must be called before the first Emit.
func (e *Emitter) SetDropHook(fn func()) {
	e.onDrop = fn
}

// Emit queues a record for delivery.  It is non-blocking; records are
// dropped if the buffer is full.
func (e *Emitter) Emit(record *Record) {
	select {
	case e.records <- record:
	default:
		logger.Warnf(agent, "emit", "audit buffer full, record dropped: principal=%s resource=%s",
			record.PrincipalID, record.ResourcePath)
		if e.onDrop != nil {
			e.onDrop()
		}
	}
}

func (e *Emitter) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopChan:
			e.drain()
			return
		case record := <-e.records:
			e.send(record)
		}
	}
}

// drain delivers any records still buffered at shutdown.
func (e *Emitter) drain() {
	for {
		select {
		case record := <-e.records:
			e.send(record)
		default:
			return
		}
	}
}

func (e *Emitter) send(record *Record) {
	if err := e.stream.Send(record); err != nil {
		logger.Errorf(agent, "send", "unable to deliver audit record: %+v", err)
	}
}

// Close stops the emitter, flushes remaining records, and closes the
// underlying stream.  Safe to call multiple times.
func (e *Emitter) Close() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
	e.wg.Wait()
	e.stream.Close()
}

// Pending returns the number of records currently buffered.  Intended
// for tests and stats reporting.
func (e *Emitter) Pending() int {
	return len(e.records)
}
