//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package auditlog provides internal audit stream implementations used
// by the engine's tests.
package auditlog

import (
	"github.com/pagesentry/permengine/pkg/engine/auditlog"
)

// ChannelFactory creates streams that forward records over a Go channel.
// Tests use it to assert on the exact records the engine emits.
type ChannelFactory struct {
	records chan *auditlog.Record
}

// ChannelStream delivers audit records to a channel.  Send blocks when
// the channel is full, so tests should drain it or size it generously.
type ChannelStream struct {
	records chan *auditlog.Record
}

// NewChannelFactory creates a factory whose streams deliver to the given
// channel.
func NewChannelFactory(records chan *auditlog.Record) auditlog.Factory {
	return &ChannelFactory{records: records}
}

// NewStream creates a new ChannelStream to satisfy the Factory interface.
func (f *ChannelFactory) NewStream() (auditlog.Stream, error) {
	return &ChannelStream{records: f.records}, nil
}

// Send forwards the record to the channel.
func (s *ChannelStream) Send(record *auditlog.Record) error {
	s.records <- record
	return nil
}

// Close is a no-op; the channel is owned by the test that created it.
func (s *ChannelStream) Close() {}
