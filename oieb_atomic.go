package zerobuffer

import "sync/atomic"

// Every OIEB field below lives in shared memory and, apart from the plain
// stores initOIEB makes while filling a freshly created segment, is accessed
// through sync/atomic, never via plain struct field reads or writes — the
// open question in spec.md §9 about copy-in/copy-out of
// payload_free_bytes is resolved in favor of atomic fetch-add/fetch-sub for
// every shared field, not just that one.

func (o *oieb) loadPayloadFree() uint64          { return atomic.LoadUint64(&o.PayloadFree) }
func (o *oieb) addPayloadFree(delta uint64) uint64 { return atomic.AddUint64(&o.PayloadFree, delta) }
func (o *oieb) subPayloadFree(delta uint64) uint64 {
	return atomic.AddUint64(&o.PayloadFree, ^(delta - 1))
}

func (o *oieb) loadPayloadWritePos() uint64      { return atomic.LoadUint64(&o.PayloadWritePos) }
func (o *oieb) storePayloadWritePos(v uint64)    { atomic.StoreUint64(&o.PayloadWritePos, v) }

func (o *oieb) loadPayloadReadPos() uint64       { return atomic.LoadUint64(&o.PayloadReadPos) }
func (o *oieb) storePayloadReadPos(v uint64)     { atomic.StoreUint64(&o.PayloadReadPos, v) }

func (o *oieb) loadPayloadWritten() uint64       { return atomic.LoadUint64(&o.PayloadWritten) }
func (o *oieb) addPayloadWritten(delta uint64) uint64 {
	return atomic.AddUint64(&o.PayloadWritten, delta)
}

func (o *oieb) loadPayloadRead() uint64 { return atomic.LoadUint64(&o.PayloadRead) }
func (o *oieb) addPayloadRead(delta uint64) uint64 {
	return atomic.AddUint64(&o.PayloadRead, delta)
}

func (o *oieb) loadWriterPID() uint64   { return atomic.LoadUint64(&o.WriterPID) }
func (o *oieb) storeWriterPID(pid uint64) { atomic.StoreUint64(&o.WriterPID, pid) }

func (o *oieb) loadReaderPID() uint64   { return atomic.LoadUint64(&o.ReaderPID) }
func (o *oieb) storeReaderPID(pid uint64) { atomic.StoreUint64(&o.ReaderPID, pid) }

func (o *oieb) loadPayloadSize() uint64    { return atomic.LoadUint64(&o.PayloadSize) }
func (o *oieb) loadMetadataSize() uint64   { return atomic.LoadUint64(&o.MetadataSize) }
func (o *oieb) loadMetadataFree() uint64   { return atomic.LoadUint64(&o.MetadataFree) }
func (o *oieb) loadMetadataUsed() uint64   { return atomic.LoadUint64(&o.MetadataUsed) }
func (o *oieb) storeMetadataFree(v uint64) { atomic.StoreUint64(&o.MetadataFree, v) }
func (o *oieb) storeMetadataUsed(v uint64) { atomic.StoreUint64(&o.MetadataUsed, v) }

func (o *oieb) loadOiebSize() uint64 { return atomic.LoadUint64(&o.OiebSize) }
func (o *oieb) loadVersion() uint32  { return atomic.LoadUint32(&o.Version) }
