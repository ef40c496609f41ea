package mpi

import (
	"bytes"
	"testing"
	"time"
)

func TestLocalCommIsSingleRank(t *testing.T) {
	c := NewLocal()
	defer c.Close()
	if c.Rank() != 0 || c.Size() != 1 {
		t.Fatalf("Local rank/size = %d/%d, want 0/1", c.Rank(), c.Size())
	}
	payload := []byte("catalog")
	if err := c.Bcast(Root(1), &payload); err != nil {
		t.Fatalf("Bcast: %v", err)
	}
	if string(payload) != "catalog" {
		t.Fatalf("Local.Bcast should leave the payload untouched")
	}
}

func TestRoot(t *testing.T) {
	if Root(4) != 3 {
		t.Fatalf("Root(4) = %d, want 3", Root(4))
	}
}

func TestRPCCommBroadcastsToWorkers(t *testing.T) {
	const size = 3
	root, err := ListenRoot(size, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenRoot: %v", err)
	}
	defer root.Close()

	addr := root.listener.Addr().String()

	workers := make([]*RPCComm, 0, size-1)
	for rank := 0; rank < size-1; rank++ {
		w, err := DialWorker(rank, size, addr)
		if err != nil {
			t.Fatalf("DialWorker(%d): %v", rank, err)
		}
		defer w.Close()
		workers = append(workers, w)
	}

	want := []byte("the catalog")
	results := make(chan []byte, len(workers))
	for _, w := range workers {
		w := w
		go func() {
			payload := []byte(nil)
			if err := w.Bcast(Root(size), &payload); err != nil {
				t.Errorf("worker Bcast: %v", err)
				results <- nil
				return
			}
			results <- payload
		}()
	}

	time.Sleep(20 * time.Millisecond) // let workers block in Fetch before the root publishes
	payload := append([]byte(nil), want...)
	if err := root.Bcast(Root(size), &payload); err != nil {
		t.Fatalf("root Bcast: %v", err)
	}

	for i := 0; i < len(workers); i++ {
		got := <-results
		if !bytes.Equal(got, want) {
			t.Fatalf("worker received %q, want %q", got, want)
		}
	}
}
