package etherstack

import (
	"errors"
	"testing"
)

type recordingSender struct {
	sends [][]byte
	err   error
}

func (s *recordingSender) Send(count, packetSize int, build func(buf []byte) error) error {
	if s.err != nil {
		return s.err
	}
	for i := 0; i < count; i++ {
		buf := make([]byte, packetSize)
		if err := build(buf); err != nil {
			return err
		}
		s.sends = append(s.sends, buf)
	}
	return nil
}

func TestTxBarrierSendSucceedsWithoutBump(t *testing.T) {
	sender := &recordingSender{}
	barrier := NewTxBarrier(sender)
	tx := barrier.NewTx()
	err := tx.Send(1, 4, func(buf []byte) error {
		copy(buf, []byte{1, 2, 3, 4})
		return nil
	})
	if err != nil {
		t.Fatalf("Send: %s", err)
	}
	if len(sender.sends) != 1 {
		t.Fatalf("want 1 recorded send, got %d", len(sender.sends))
	}
}

func TestTxBarrierBumpInvalidatesOutstandingTx(t *testing.T) {
	sender := &recordingSender{}
	barrier := NewTxBarrier(sender)
	tx := barrier.NewTx()
	barrier.Bump()

	if !tx.Stale() {
		t.Error("want Stale() true after Bump")
	}
	err := tx.Send(1, 4, func(buf []byte) error { return nil })
	var txErr *TxError
	if !errors.As(err, &txErr) || txErr.Kind != TxInvalidTx {
		t.Errorf("want TxInvalidTx error, got %v", err)
	}

	fresh := barrier.NewTx()
	if fresh.Stale() {
		t.Error("freshly captured Tx should not be stale")
	}
	if err := fresh.Send(1, 4, func(buf []byte) error { return nil }); err != nil {
		t.Errorf("fresh Tx Send: %s", err)
	}
}

func TestTxBarrierWrapsIOError(t *testing.T) {
	wantErr := errors.New("link down")
	sender := &recordingSender{err: wantErr}
	barrier := NewTxBarrier(sender)
	tx := barrier.NewTx()
	err := tx.Send(1, 4, func(buf []byte) error { return nil })
	var txErr *TxError
	if !errors.As(err, &txErr) || txErr.Kind != TxIoError {
		t.Fatalf("want TxIoError, got %v", err)
	}
	if !errors.Is(txErr, wantErr) {
		t.Errorf("want wrapped cause %v, got %v", wantErr, txErr.Unwrap())
	}
}

func TestTxBarrierVersion(t *testing.T) {
	barrier := NewTxBarrier(&recordingSender{})
	if barrier.Version() != 0 {
		t.Errorf("want initial version 0, got %d", barrier.Version())
	}
	barrier.Bump()
	barrier.Bump()
	if barrier.Version() != 2 {
		t.Errorf("want version 2 after two bumps, got %d", barrier.Version())
	}
}
