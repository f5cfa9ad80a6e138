package arp

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"
)

func TestTablePeekMiss(t *testing.T) {
	tbl := NewTable()
	if _, ok := tbl.Peek(netip.MustParseAddr("10.0.0.1")); ok {
		t.Error("want miss on empty table")
	}
}

func TestTableInsertThenPeek(t *testing.T) {
	tbl := NewTable()
	ip := netip.MustParseAddr("10.0.0.1")
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	tbl.Insert(ip, mac)
	got, ok := tbl.Peek(ip)
	if !ok || got != mac {
		t.Errorf("want %v, true; got %v, %v", mac, got, ok)
	}
}

func TestTableGetReturnsImmediatelyOnCacheHit(t *testing.T) {
	tbl := NewTable()
	ip := netip.MustParseAddr("10.0.0.1")
	mac := [6]byte{9, 9, 9, 9, 9, 9}
	tbl.Insert(ip, mac)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := tbl.Get(ctx, ip)
	if err != nil {
		t.Fatalf("Get: %s", err)
	}
	if got != mac {
		t.Errorf("want %v, got %v", mac, got)
	}
}

func TestTableGetBlocksUntilInsert(t *testing.T) {
	tbl := NewTable()
	ip := netip.MustParseAddr("10.0.0.2")
	mac := [6]byte{1, 1, 1, 1, 1, 1}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result := make(chan [6]byte, 1)
	go func() {
		got, err := tbl.Get(ctx, ip)
		if err != nil {
			t.Error(err)
			return
		}
		result <- got
	}()

	time.Sleep(20 * time.Millisecond)
	tbl.Insert(ip, mac)

	select {
	case got := <-result:
		if got != mac {
			t.Errorf("want %v, got %v", mac, got)
		}
	case <-time.After(time.Second):
		t.Fatal("Get did not unblock after Insert")
	}
}

func TestTableGetCancelledByContext(t *testing.T) {
	tbl := NewTable()
	ip := netip.MustParseAddr("10.0.0.3")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := tbl.Get(ctx, ip)
	if err == nil {
		t.Error("want error when context expires before Insert")
	}
}

func TestTableGetFanOutToManyWaiters(t *testing.T) {
	tbl := NewTable()
	ip := netip.MustParseAddr("10.0.0.4")
	mac := [6]byte{7, 7, 7, 7, 7, 7}

	const n = 100
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([][6]byte, n)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tbl.Get(ctx, ip)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	tbl.Insert(ip, mac)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d: %s", i, errs[i])
		}
		if results[i] != mac {
			t.Fatalf("waiter %d: want %v, got %v", i, mac, results[i])
		}
	}
}

func TestTableDelete(t *testing.T) {
	tbl := NewTable()
	ip := netip.MustParseAddr("10.0.0.5")
	tbl.Insert(ip, [6]byte{1, 2, 3, 4, 5, 6})
	tbl.Delete(ip)
	if _, ok := tbl.Peek(ip); ok {
		t.Error("want miss after Delete")
	}
}
