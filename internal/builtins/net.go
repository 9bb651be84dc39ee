package builtins

import (
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"grotsky/internal/errors"
	"grotsky/internal/value"
)

// newNetModule builds spec.md §6's `net` module (listenTcp/accept/read/
// write/close) plus SPEC_FULL.md's websocket extension (listenWs), giving
// the Native "baggage" resource-handle contract a second concrete shape
// beyond raw net.Conn.
func newNetModule() value.Value {
	return nativeModule(map[string]value.Value{
		"listenTcp": nativeFn("listenTcp", func(args []value.Value) (value.Value, error) {
			addr, err := requireString(args, 0, "listenTcp")
			if err != nil {
				return value.Value{}, err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "listenTcp: %v", err)
			}
			return newListenerHandle(ln), nil
		}),
		"listenWs": nativeFn("listenWs", func(args []value.Value) (value.Value, error) {
			addr, err := requireString(args, 0, "listenWs")
			if err != nil {
				return value.Value{}, err
			}
			return newWsListenerHandle(addr)
		}),
	})
}

func newListenerHandle(ln net.Listener) value.Value {
	id := uuid.New().String()
	closed := false
	native := &value.NativeObj{
		Baggage: ln,
		OnRelease: func(baggage interface{}) {
			baggage.(net.Listener).Close()
		},
	}
	native.Properties = map[string]value.Value{
		"id":      value.String(id),
		"address": value.String(ln.Addr().String()),
		"close": nativeFn("close", func(args []value.Value) (value.Value, error) {
			closed = true
			return value.Nil(), ln.Close()
		}),
		"accept": nativeFn("accept", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "accept: listener %s is closed", id)
			}
			conn, err := ln.Accept()
			if err != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "accept: %v", err)
			}
			return newConnHandle(conn), nil
		}),
	}
	return value.NewNative(native)
}

func newConnHandle(conn net.Conn) value.Value {
	id := uuid.New().String()
	closed := false
	native := &value.NativeObj{
		Baggage: conn,
		OnRelease: func(baggage interface{}) {
			baggage.(net.Conn).Close()
		},
	}
	native.Properties = map[string]value.Value{
		"id":      value.String(id),
		"address": value.String(conn.RemoteAddr().String()),
		"close": nativeFn("close", func(args []value.Value) (value.Value, error) {
			closed = true
			return value.Nil(), conn.Close()
		}),
		"read": nativeFn("read", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "read: connection %s is closed", id)
			}
			buf := make([]byte, 4096)
			n, err := conn.Read(buf)
			if n == 0 && err != nil {
				return value.Nil(), nil
			}
			return value.Bytes(buf[:n]), nil
		}),
		"write": nativeFn("write", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "write: connection %s is closed", id)
			}
			var payload []byte
			if len(args) > 0 {
				switch args[0].Kind {
				case value.KindString:
					payload = []byte(value.AsString(args[0]))
				case value.KindBytes:
					payload = value.AsBytes(args[0])
				}
			}
			n, err := conn.Write(payload)
			if err != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "write: %v", err)
			}
			return value.Number(float64(n)), nil
		}),
	}
	return value.NewNative(native)
}

// newWsListenerHandle runs a minimal HTTP server on addr that upgrades
// every request to a websocket connection and queues it for `.accept()`
// — the websocket counterpart of listenTcp/accept.
func newWsListenerHandle(addr string) (value.Value, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "listenWs: %v", err)
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conns := make(chan *websocket.Conn)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	})
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)

	id := uuid.New().String()
	closed := false
	native := &value.NativeObj{
		Baggage: ln,
		OnRelease: func(baggage interface{}) {
			srv.Close()
		},
	}
	native.Properties = map[string]value.Value{
		"id":      value.String(id),
		"address": value.String(ln.Addr().String()),
		"close": nativeFn("close", func(args []value.Value) (value.Value, error) {
			closed = true
			return value.Nil(), srv.Close()
		}),
		"accept": nativeFn("accept", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "accept: listener %s is closed", id)
			}
			conn := <-conns
			return newWsConnHandle(conn), nil
		}),
	}
	return value.NewNative(native), nil
}

func newWsConnHandle(conn *websocket.Conn) value.Value {
	id := uuid.New().String()
	closed := false
	native := &value.NativeObj{
		Baggage: conn,
		OnRelease: func(baggage interface{}) {
			baggage.(*websocket.Conn).Close()
		},
	}
	native.Properties = map[string]value.Value{
		"id":      value.String(id),
		"address": value.String(conn.RemoteAddr().String()),
		"close": nativeFn("close", func(args []value.Value) (value.Value, error) {
			closed = true
			return value.Nil(), conn.Close()
		}),
		"read": nativeFn("read", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "read: connection %s is closed", id)
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				return value.Nil(), nil
			}
			return value.Bytes(data), nil
		}),
		"write": nativeFn("write", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "write: connection %s is closed", id)
			}
			var payload []byte
			if len(args) > 0 {
				switch args[0].Kind {
				case value.KindString:
					payload = []byte(value.AsString(args[0]))
				case value.KindBytes:
					payload = value.AsBytes(args[0])
				}
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "write: %v", err)
			}
			return value.Number(float64(len(payload))), nil
		}),
	}
	return value.NewNative(native)
}
