// Package statsexport serves a tlsf instance's Stats and Check report as
// JSON over HTTP/3, for dashboards or health probes that want a cheap
// periodic snapshot without instrumenting the host process any further.
package statsexport

import (
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
)

// Snapshotter is the subset of *tlsf.T this package depends on.
type Snapshotter interface {
	Stats() tlsf.Stats
	Check() error
}

// Document is the JSON body served at GET /stats.
type Document struct {
	Stats   tlsf.Stats `json:"stats"`
	Healthy bool       `json:"healthy"`
	Problem string     `json:"problem,omitempty"`
}

// Server wraps an http3.Server lifecycle around a single /stats
// endpoint: a TLS config forced to 1.3+, a non-blocking first-error
// channel, and a Stop that tears down the underlying packet conn.
type Server struct {
	target Snapshotter

	pc    net.PacketConn
	srv   *http3.Server
	close func() error
	errC  chan error
	addr  string
}

// New builds a Server bound to addr, serving target's Stats/Check
// report. tlsCfg is upgraded to TLS 1.3+ with "h3" negotiated if it does
// not already specify one, matching the minimum QUIC requires.
func New(addr string, tlsCfg *tls.Config, target Snapshotter) *Server {
	tlsCfg = requireTLS13(tlsCfg)

	s := &Server{target: target, addr: addr, errC: make(chan error, 1)}

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)

	s.srv = &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: mux}

	return s
}

func requireTLS13(tlsCfg *tls.Config) *tls.Config {
	if tlsCfg == nil {
		return &tls.Config{MinVersion: tls.VersionTLS13, NextProtos: []string{"h3"}}
	}

	if tlsCfg.MinVersion != 0 && tlsCfg.MinVersion >= tls.VersionTLS13 {
		return tlsCfg
	}

	c := tlsCfg.Clone()
	c.MinVersion = tls.VersionTLS13

	if len(c.NextProtos) == 0 {
		c.NextProtos = []string{"h3"}
	}

	return c
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	doc := Document{Stats: s.target.Stats(), Healthy: true}

	if err := s.target.Check(); err != nil {
		doc.Healthy = false
		doc.Problem = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")

	if !doc.Healthy {
		w.WriteHeader(http.StatusInternalServerError)
	}

	_ = json.NewEncoder(w).Encode(doc)
}

// Start begins serving on s.addr, which may end in ":0" to bind an
// ephemeral port; the bound address is returned.
func (s *Server) Start() (string, error) {
	var err error

	s.pc, err = net.ListenPacket("udp", s.addr)
	if err != nil {
		return "", err
	}

	realAddr := s.pc.LocalAddr().String()
	done := make(chan struct{})

	go func() {
		if err := s.srv.Serve(s.pc); err != nil {
			select {
			case s.errC <- err:
			default:
			}
		}

		close(done)
	}()

	s.close = func() error {
		_ = s.pc.Close()

		select {
		case <-done:
		case <-time.After(time.Second):
		}

		return nil
	}

	return realAddr, nil
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	if s.close != nil {
		return s.close()
	}

	return nil
}

// Error returns the non-blocking channel that receives the first serve
// error, if any.
func (s *Server) Error() <-chan error {
	return s.errC
}
