package admin

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/logging"
	"github.com/CreasolTech/DomBusGateway/internal/module"
	"github.com/CreasolTech/DomBusGateway/internal/publisher"
	"github.com/CreasolTech/DomBusGateway/internal/txqueue"
)

// BusStatus is what showbus reports about one configured serial bus
// (spec.md §4.7 "showbus" listing).
type BusStatus struct {
	Path      string
	Connected bool
}

// BusLister supplies the set of configured buses, decoupling the admin
// server from internal/serialbus/internal/gateway the same way
// publisher.Broker decouples the Publisher from the MQTT client.
type BusLister interface {
	Buses() map[uint8]BusStatus
}

// welcomeBanner greets a new telnet-style connection (spec.md §6 "Admin
// TCP interface"), worded after original_source/dombusgateway.py's
// handleConnection welcome line.
const welcomeBanner = "Welcome to DomBusGateway telnet interface\r\nType help to get a list of commands\r\n"

const prompt = "> "

// Server is the Admin Command Processor: it accepts line-oriented TCP
// connections and dispatches each line to a command handler, with
// per-session state for the selected bus and module (spec.md §4.7).
type Server struct {
	catalog   *catalog.Catalog
	registry  *module.Registry
	txq       *txqueue.Queue
	publisher *publisher.Publisher
	buses     BusLister
	logger    *logging.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New wires an admin Server over the shared gateway state.
func New(cat *catalog.Catalog, reg *module.Registry, txq *txqueue.Queue, pub *publisher.Publisher, buses BusLister, logger *logging.Logger) *Server {
	return &Server{
		catalog:   cat,
		registry:  reg,
		txq:       txq,
		publisher: pub,
		buses:     buses,
		logger:    logger,
	}
}

// ListenAndServe binds addr and accepts connections until the listener is
// closed by Close, or AcceptTCP returns a non-transient error (spec.md §7
// "cannot bind admin port" is process-fatal — ListenAndServe's bind error
// is returned directly so main can treat it that way).
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("admin: listen %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("admin interface listening", "addr", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections. In-flight sessions run to
// completion on their own (spec.md §5 "telnet client disconnect tears
// down that session only").
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	s.logger.Info("admin connection opened", "remote", conn.RemoteAddr())

	sess := &session{selectedBus: 1}
	w := conn
	io.WriteString(w, welcomeBanner+prompt)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) != "" {
			s.dispatch(sess, line, w)
		}
		io.WriteString(w, "\r\n"+prompt)
	}
	s.logger.Info("admin connection closed", "remote", conn.RemoteAddr())
}

// session holds the per-connection state spec.md §4.7 names: "selected
// bus, selected module".
type session struct {
	selectedBus    uint8
	selectedModule uint16
}

// dispatch splits line into a command name and a raw argument tail
// (mirrors original_source/dombusgateway.py's handleCmd: "message.split(
// maxsplit=2)", i.e. at most a command word plus one remaining argument
// string that setport itself re-splits on commas).
func (s *Server) dispatch(sess *session, line string, w io.Writer) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	name := fields[0]
	var rest string
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(w, "Invalid command %q: please type \"help\" for a list of commands\r\n", name)
		return
	}
	cmd.run(s, sess, rest, w)
}
