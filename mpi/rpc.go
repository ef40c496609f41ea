/*
Copyright © 2018 the cfpipe authors.
This file is part of cfpipe.

cfpipe is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cfpipe is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cfpipe.  If not, see <http://www.gnu.org/licenses/>.
*/

package mpi

import (
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"sync"
)

// catalogService is the RPC-exposed side of the root rank: it holds
// the most recently broadcast payload and blocks Fetch callers until
// one is available.
type catalogService struct {
	mu      sync.Mutex
	payload []byte
	ready   chan struct{}
	once    sync.Once
}

// Fetch blocks until the root has broadcast a payload, then returns
// it. The *rpc.Client doesn't care about the argument; net/rpc
// requires one regardless.
func (s *catalogService) Fetch(_ struct{}, reply *[]byte) error {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	*reply = s.payload
	return nil
}

// RPCComm is a same-trust-domain, unauthenticated Comm built on
// net/rpc: the highest-numbered rank serves an RPC endpoint that every
// other rank dials to fetch the broadcast catalog. It carries no write
// path and is not a general-purpose RPC surface.
type RPCComm struct {
	rank int
	size int

	service  *catalogService // non-nil only on the root
	listener net.Listener

	client *rpc.Client // non-nil only on non-root ranks
}

// ListenRoot starts the root rank's RPC endpoint on addr (e.g.
// "0.0.0.0:9901") and returns the communicator for rank Root(size).
func ListenRoot(size int, addr string) (*RPCComm, error) {
	svc := &catalogService{ready: make(chan struct{})}
	server := rpc.NewServer()
	if err := server.RegisterName("Catalog", svc); err != nil {
		return nil, fmt.Errorf("mpi: rpc comm: register: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mpi: rpc comm: listen %s: %w", addr, err)
	}
	go http.Serve(l, mux)

	return &RPCComm{rank: Root(size), size: size, service: svc, listener: l}, nil
}

// DialWorker connects a non-root rank to the root rank's RPC endpoint
// at rootAddr.
func DialWorker(rank, size int, rootAddr string) (*RPCComm, error) {
	if rank == Root(size) {
		return nil, fmt.Errorf("mpi: rpc comm: rank %d is the root, use ListenRoot", rank)
	}
	client, err := rpc.DialHTTP("tcp", rootAddr)
	if err != nil {
		return nil, fmt.Errorf("mpi: rpc comm: dial %s: %w", rootAddr, err)
	}
	return &RPCComm{rank: rank, size: size, client: client}, nil
}

func (c *RPCComm) Rank() int { return c.rank }
func (c *RPCComm) Size() int { return c.size }

// Bcast on the root rank publishes *payload to every waiting worker
// and returns immediately. On a worker rank it blocks until the root
// has published a payload, then overwrites *payload with it.
func (c *RPCComm) Bcast(root int, payload *[]byte) error {
	if root != Root(c.size) {
		return fmt.Errorf("mpi: rpc comm: root must be rank %d, got %d", Root(c.size), root)
	}
	if c.rank == root {
		if c.service == nil {
			return fmt.Errorf("mpi: rpc comm: this communicator does not own the root endpoint")
		}
		c.service.mu.Lock()
		c.service.payload = *payload
		c.service.mu.Unlock()
		c.service.once.Do(func() { close(c.service.ready) })
		return nil
	}
	if c.client == nil {
		return fmt.Errorf("mpi: rpc comm: this worker is not connected to the root")
	}
	var reply []byte
	if err := c.client.Call("Catalog.Fetch", struct{}{}, &reply); err != nil {
		return fmt.Errorf("mpi: rpc comm: fetch from root: %w", err)
	}
	*payload = reply
	return nil
}

// Close shuts down the root's listener or disconnects the worker's
// client, as appropriate.
func (c *RPCComm) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.listener != nil {
		return c.listener.Close()
	}
	return nil
}
