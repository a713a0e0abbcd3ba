package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tilesim.dev/internal/protocol"
	"tilesim.dev/internal/sim/runner"
	"tilesim.dev/internal/sim/world"
	"tilesim.dev/internal/sim/world/logic/rates"
)

type Options struct {
	// Queue is the per-session frame queue length.
	Queue int
	// ShiftMax SHIFT requests per ShiftWindow ticks, per session.
	ShiftWindow uint64
	ShiftMax    int
}

type Server struct {
	run  *runner.Runner
	log  *log.Logger
	opts Options

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(r *runner.Runner, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Queue <= 0 {
		opts.Queue = 8
	}
	return &Server{
		run:  r,
		log:  logger,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

// Handler routes the bootstrap and websocket endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", s.WSHandler())
	return mux
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.run.Bootstrap())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.Validate(msg)
		if err != nil || base.Type != protocol.TypeSubscribe {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		var sub protocol.SubscribeMsg
		_ = json.Unmarshal(msg, &sub)

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		dataOut := make(chan []byte, s.opts.Queue)
		ctrlOut := make(chan []byte, 8)

		select {
		case s.run.Join() <- runner.JoinRequest{SessionID: sid, Out: dataOut, Sub: sub}:
		default:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		s.log.Printf("observer %s connected from %s", sid, r.RemoteAddr)
		defer func() {
			select {
			case s.run.Leave() <- sid:
			default:
				// Runner is stopping; nothing else to do.
			}
			s.log.Printf("observer %s disconnected", sid)
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. Only it writes data frames to conn.
		writeErr := make(chan error, 1)
		go func() {
			for {
				var b []byte
				var ok bool
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok = <-dataOut:
				case b, ok = <-ctrlOut:
				}
				if !ok {
					writeErr <- nil
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}()

		shiftLimit := rates.Limiter{Window: s.opts.ShiftWindow, Max: s.opts.ShiftMax}

		// Reader loop: SUBSCRIBE updates and SHIFT requests.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.Validate(msg)
			if err != nil {
				s.sendError(ctrlOut, protocol.ErrProtoBadRequest, err.Error())
				continue
			}
			switch base.Type {
			case protocol.TypeSubscribe:
				var sub protocol.SubscribeMsg
				_ = json.Unmarshal(msg, &sub)
				select {
				case s.run.Subscribe() <- runner.SubscribeRequest{SessionID: sid, Sub: sub}:
				default:
					// Drop updates under load; the client may resend.
				}
			case protocol.TypeShift:
				if ok, retry := shiftLimit.Allow(s.run.CurrentTick()); !ok {
					s.sendError(ctrlOut, protocol.ErrRateLimit, fmt.Sprintf("retry in %d ticks", retry))
					continue
				}
				var sh protocol.ShiftMsg
				_ = json.Unmarshal(msg, &sh)
				if code, err := s.shift(sh); err != nil {
					s.sendError(ctrlOut, code, err.Error())
				}
			default:
				s.sendError(ctrlOut, protocol.ErrBadRequest, "unexpected "+base.Type)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) shift(sh protocol.ShiftMsg) (string, error) {
	reply := make(chan error, 1)
	select {
	case s.run.Shift() <- runner.ShiftRequest{DX: sh.DX, DY: sh.DY, Layer: sh.Layer, Reply: reply}:
	default:
		return protocol.ErrBusy, errors.New("shift queue full")
	}
	select {
	case err := <-reply:
		return shiftCode(err), err
	case <-time.After(5 * time.Second):
		return protocol.ErrBusy, errors.New("shift timed out")
	}
}

func shiftCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrLayerOutOfRange):
		return protocol.ErrLayerRange
	case errors.Is(err, world.ErrNotLoaded):
		return protocol.ErrNotLoaded
	}
	return protocol.ErrInternal
}

func (s *Server) sendError(ch chan []byte, code, msg string) {
	b, err := json.Marshal(protocol.NewError(code, msg))
	if err != nil {
		return
	}
	select {
	case ch <- b:
	default:
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
