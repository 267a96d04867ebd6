// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package recorder persists sensor snapshots as a CBOR sequence: one CBOR
// map per record, appended back to back.
//
// A record keeps the requested packet ids and the raw reply bytes, so
// reading it back runs the same decoder as the live query did.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tetherlab/tether/pkg/oi"
)

// Record is one logged poll result.
type Record struct {
	TimeMicros int64  `cbor:"1,keyasint"`
	IDs        []byte `cbor:"2,keyasint,omitempty"`
	Data       []byte `cbor:"3,keyasint,omitempty"`
	Error      string `cbor:"4,keyasint,omitempty"`
	Session    string `cbor:"5,keyasint,omitempty"`
}

// Time returns the record timestamp.
func (r *Record) Time() time.Time {
	return time.UnixMicro(r.TimeMicros)
}

// Snapshot decodes the recorded reply.
func (r *Record) Snapshot() (*oi.Snapshot, error) {
	if r.Error != "" {
		return nil, fmt.Errorf("recorded error: %s", r.Error)
	}
	ids := make([]oi.PacketID, len(r.IDs))
	for i, id := range r.IDs {
		ids[i] = oi.PacketID(id)
	}
	return oi.DecodeReply(ids, r.Data)
}

// NewRecord captures snap as packet ids and raw bytes.
func NewRecord(snap *oi.Snapshot) (*Record, error) {
	rec := &Record{TimeMicros: snap.Timestamp().UnixMicro()}
	for _, id := range snap.IDs() {
		info, ok := oi.LookupPacket(id)
		if !ok {
			return nil, &oi.UnknownPacketError{Packet: id}
		}
		r, _ := snap.Get(id)
		rec.IDs = append(rec.IDs, byte(id))
		if info.Width == 2 {
			rec.Data = append(rec.Data, byte(r.Value>>8), byte(r.Value))
		} else {
			rec.Data = append(rec.Data, byte(r.Value))
		}
	}
	return rec, nil
}

// Writer appends records to an io.Writer.
type Writer struct {
	enc     *cbor.Encoder
	session string
	count   int
}

// NewWriter creates a writer. session tags every record.
func NewWriter(w io.Writer, session string) (*Writer, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	return &Writer{enc: em.NewEncoder(w), session: session}, nil
}

// Write appends snap.
func (w *Writer) Write(snap *oi.Snapshot) error {
	rec, err := NewRecord(snap)
	if err != nil {
		return err
	}
	return w.WriteRecord(rec)
}

// WriteError appends a failed poll.
func (w *Writer) WriteError(t time.Time, pollErr error) error {
	return w.WriteRecord(&Record{TimeMicros: t.UnixMicro(), Error: pollErr.Error()})
}

// WriteRecord appends rec, filling in the session.
func (w *Writer) WriteRecord(rec *Record) error {
	if rec.Session == "" {
		rec.Session = w.session
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// Reader reads records back.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the log.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}

// ReadAll returns every remaining record.
func (r *Reader) ReadAll() ([]*Record, error) {
	var recs []*Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
