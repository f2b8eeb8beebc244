package wal

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LSN is a log sequence number.
type LSN uint64

// InvalidLSN marks an unassigned LSN.
const InvalidLSN = LSN(0)

// RecordType identifies a log record.
type RecordType uint8

const (
	RecordTypeBeginTxn RecordType = iota + 1
	RecordTypeCommitTxn
	RecordTypeAbortTxn
	RecordTypePut
	RecordTypeDelete
	RecordTypeCreateTable
	RecordTypeCheckpoint
	// RecordTypeCheckpointStop is written once during close, after all data
	// handles are closed, so recovery knows the shutdown was clean.
	RecordTypeCheckpointStop
)

// Record is a single log record.
type Record struct {
	LSN   LSN
	Type  RecordType
	TxnID uint64
	Data  []byte
}

// Serialize writes the record in its wire form.
func (r *Record) Serialize(w io.Writer) error {
	var hdr [21]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(r.LSN))
	hdr[8] = byte(r.Type)
	binary.BigEndian.PutUint64(hdr[9:17], r.TxnID)
	binary.BigEndian.PutUint32(hdr[17:21], uint32(len(r.Data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(r.Data) > 0 {
		if _, err := w.Write(r.Data); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeRecord reads one record. Returns io.EOF at a clean end of
// stream; a truncated record is reported as io.ErrUnexpectedEOF.
func DeserializeRecord(r io.Reader) (*Record, error) {
	var hdr [21]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	rec := &Record{
		LSN:   LSN(binary.BigEndian.Uint64(hdr[0:8])),
		Type:  RecordType(hdr[8]),
		TxnID: binary.BigEndian.Uint64(hdr[9:17]),
	}
	if rec.Type < RecordTypeBeginTxn || rec.Type > RecordTypeCheckpointStop {
		return nil, fmt.Errorf("invalid record type %d", rec.Type)
	}

	size := binary.BigEndian.Uint32(hdr[17:21])
	if size > 0 {
		rec.Data = make([]byte, size)
		if _, err := io.ReadFull(r, rec.Data); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return rec, nil
}
