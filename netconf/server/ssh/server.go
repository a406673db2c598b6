// Package ssh serves the netconf SSH subsystem (RFC 6242).
package ssh

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Subsystem is the SSH subsystem name requested by NETCONF clients.
const Subsystem = "netconf"

// Server accepts SSH connections and hands netconf subsystem channels to a Handler.
type Server struct {
	listener net.Listener
	config   *ssh.ServerConfig
	factory  HandlerFactory
	trace    *Trace

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Handler is the interface that is implemented to handle an SSH channel.
type Handler interface {
	// Handle serves i/o on the channel. The channel is closed when Handle returns.
	Handle(ch ssh.Channel)
}

// HandlerFactory is a function that will deliver an Handler.
type HandlerFactory func(conn *ssh.ServerConn) Handler

// NewServer delivers a Server listening on address:port; port 0 selects an ephemeral port.
// Connections are accepted in the background until Close is called.
func NewServer(ctx context.Context, address string, port int, cfg *ssh.ServerConfig, factory HandlerFactory) (*Server, error) {
	s := &Server{config: cfg, factory: factory, trace: ContextTrace(ctx), conns: map[net.Conn]struct{}{}}

	var err error
	listenAddress := fmt.Sprintf("%s:%d", address, port)
	s.listener, err = net.Listen("tcp", listenAddress)
	s.trace.Listened(listenAddress, err)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.acceptConnections()
	return s, nil
}

// Port delivers the tcp port number on which the server is listening.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close stops accepting connections, closes the active ones and waits for their handlers.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	_ = s.listener.Close()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	s.trace.StartAccepting()
	for {
		nConn, err := s.listener.Accept()
		s.trace.Accepted(nConn, err)
		if err != nil {
			return
		}
		if !s.track(nConn) {
			_ = nConn.Close()
			return
		}
		s.wg.Add(1)
		go s.serveConn(nConn)
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}

func (s *Server) serveConn(nConn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(nConn)

	svrconn, chch, reqch, err := ssh.NewServerConn(nConn, s.config)
	s.trace.NewServerConn(nConn, err)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqch)

	var handlers sync.WaitGroup
	for newChannel := range chch {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := newChannel.Accept()
		s.trace.SSHChannelAccept(nConn, err)
		if err != nil {
			continue
		}
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			s.serveChannel(svrconn, ch, requests)
		}()
	}
	handlers.Wait()
}

// serveChannel starts the handler once the netconf subsystem has been requested.
func (s *Server) serveChannel(svrconn *ssh.ServerConn, ch ssh.Channel, requests <-chan *ssh.Request) {
	started := false
	done := make(chan struct{})
	for req := range requests {
		ok := !started && req.Type == "subsystem" && subsystemName(req.Payload) == Subsystem
		err := req.Reply(ok, nil)
		s.trace.SubsystemRequestReply(req.Type, ok, err)
		if ok && err == nil {
			started = true
			go func() {
				defer close(done)
				defer ch.Close()
				s.factory(svrconn).Handle(ch)
			}()
		}
	}
	if started {
		<-done
	} else {
		_ = ch.Close()
	}
}

func subsystemName(payload []byte) string {
	var msg struct {
		Name string
	}
	if err := ssh.Unmarshal(payload, &msg); err != nil {
		return ""
	}
	return msg.Name
}
