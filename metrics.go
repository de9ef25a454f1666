package mmc

import "sync/atomic"

// TransportMetrics contains atomic counters for one transport.
type TransportMetrics struct {
	// FramesWritten counts frames sent, terminator included in BytesWritten.
	FramesWritten atomic.Uint64
	BytesWritten  atomic.Uint64
	// Reads counts read operations; EmptyReads those that returned no data.
	Reads      atomic.Uint64
	EmptyReads atomic.Uint64
	BytesRead  atomic.Uint64
	// Transactions counts Transact calls.
	Transactions atomic.Uint64
}

func (m *TransportMetrics) addWritten(n int) {
	m.FramesWritten.Add(1)
	if n > 0 {
		m.BytesWritten.Add(uint64(n))
	}
}

func (m *TransportMetrics) addRead(n int) {
	m.Reads.Add(1)
	if n == 0 {
		m.EmptyReads.Add(1)
		return
	}
	m.BytesRead.Add(uint64(n))
}

func (m *TransportMetrics) incTransactions() {
	m.Transactions.Add(1)
}
