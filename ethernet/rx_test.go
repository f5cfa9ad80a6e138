package ethernet

import (
	"errors"
	"testing"

	"github.com/soypat/etherstack"
)

func buildFrame(t *testing.T, et Type, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, sizeHeaderNoVLAN+len(payload))
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	*frm.SourceHardwareAddr() = [6]byte{1, 2, 3, 4, 5, 6}
	*frm.DestinationHardwareAddr() = BroadcastAddr()
	frm.SetEtherType(et)
	copy(frm.Payload(), payload)
	return buf
}

func TestRxDispatchesToRegisteredListener(t *testing.T) {
	rx := NewRx()
	var got []byte
	rx.Register(TypeIPv4, func(now int64, payload []byte) error {
		got = append([]byte(nil), payload...)
		return nil
	})
	want := []byte{0xaa, 0xbb, 0xcc}
	if err := rx.Recv(0, buildFrame(t, TypeIPv4, want)); err != nil {
		t.Fatalf("Recv: %s", err)
	}
	if string(got) != string(want) {
		t.Errorf("want payload %v, got %v", want, got)
	}
}

func TestRxNoListenerForUnregisteredType(t *testing.T) {
	rx := NewRx()
	err := rx.Recv(0, buildFrame(t, TypeARP, nil))
	var rxErr *etherstack.RxError
	if !errors.As(err, &rxErr) || rxErr.Kind != etherstack.RxNoListener {
		t.Fatalf("want RxNoListener, got %v", err)
	}
}

func TestRxDeregister(t *testing.T) {
	rx := NewRx()
	rx.Register(TypeIPv4, func(now int64, payload []byte) error { return nil })
	rx.Deregister(TypeIPv4)
	err := rx.Recv(0, buildFrame(t, TypeIPv4, nil))
	var rxErr *etherstack.RxError
	if !errors.As(err, &rxErr) || rxErr.Kind != etherstack.RxNoListener {
		t.Fatalf("want RxNoListener after Deregister, got %v", err)
	}
}

func TestRxRegisterDuplicatePanics(t *testing.T) {
	rx := NewRx()
	rx.Register(TypeIPv4, func(now int64, payload []byte) error { return nil })
	defer func() {
		if recover() == nil {
			t.Error("want panic on duplicate registration")
		}
	}()
	rx.Register(TypeIPv4, func(now int64, payload []byte) error { return nil })
}

func TestRxRejectsShortFrame(t *testing.T) {
	rx := NewRx()
	err := rx.Recv(0, make([]byte, 4))
	var rxErr *etherstack.RxError
	if !errors.As(err, &rxErr) || rxErr.Kind != etherstack.RxInvalidLength {
		t.Fatalf("want RxInvalidLength, got %v", err)
	}
}
