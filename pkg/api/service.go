// Package api exposes a scanner session over HTTP and a WebSocket console.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Server struct {
	scanner  *uniden.Scanner
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
}

func NewServer(scanner *uniden.Scanner) *Server {
	s := &Server{
		scanner: scanner,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux:     http.NewServeMux(),
		clients: make(map[*websocket.Conn]bool),
	}

	s.mux.HandleFunc("GET /{$}", s.handleStatus)
	s.mux.HandleFunc("GET /identity", s.handleIdentity)
	s.mux.HandleFunc("GET /volume", s.handleGetLevel(scanner.Volume))
	s.mux.HandleFunc("PUT /volume", s.handleSetLevel(scanner.SetVolume))
	s.mux.HandleFunc("GET /squelch", s.handleGetLevel(scanner.Squelch))
	s.mux.HandleFunc("PUT /squelch", s.handleSetLevel(scanner.SetSquelch))
	s.mux.HandleFunc("GET /channels/{id}", s.handleChannel)
	s.mux.HandleFunc("GET /screen", s.handleScreen)
	s.mux.HandleFunc("GET /ws", s.handleConsole)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// CloseClients drops every open console connection.
func (s *Server) CloseClients() {
	s.clientsMu.Lock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.clientsMu.Unlock()

	for _, client := range clients {
		client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		client.Close()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Message:   "Uniden Scanner API",
		Status:    "running",
		Connected: s.scanner.Connected(),
		Mode:      s.scanner.Mode().String(),
	})
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	if !s.scanner.Connected() {
		writeError(w, fmt.Errorf("identity: %w", uniden.ErrNotConnected))
		return
	}
	writeJSON(w, http.StatusOK, s.scanner.Identity())
}

func (s *Server) handleGetLevel(get func() (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := get()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, LevelResponse{Value: v})
	}
}

func (s *Server) handleSetLevel(set func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, fmt.Errorf("decode body: %w", err))
			return
		}
		if req.Value == nil {
			writeBadRequest(w, errors.New("missing value"))
			return
		}
		if err := set(*req.Value); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, LevelResponse{Value: *req.Value})
	}
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		writeBadRequest(w, fmt.Errorf("invalid channel %q", r.PathValue("id")))
		return
	}
	fields, err := s.scanner.Channel(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChannelResponse{Channel: id, Fields: fields})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	fields, err := s.scanner.Screen()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScreenResponse{Fields: fields})
}

// handleConsole runs one command per text message. A client that leaves the
// scanner in program mode gets an EPG sent on its behalf when it goes away.
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	s.addClient(conn)
	defer s.removeClient(conn)

	remote := conn.RemoteAddr().String()
	log.Info().Str("remote", remote).Msg("Console client connected")

	enteredProgram := false
	defer func() {
		if !enteredProgram || s.scanner.Mode() != uniden.ModeProgram {
			return
		}
		if err := s.scanner.ExitProgramMode(); err != nil {
			log.Error().Err(err).Str("remote", remote).Msg("Failed to leave program mode after console disconnect")
		}
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("remote", remote).Msg("Console connection error")
			} else {
				log.Info().Str("remote", remote).Msg("Console client disconnected")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		reply := s.runConsoleLine(string(message))
		if reply.OK {
			switch uniden.Mnemonic(reply.Command) {
			case uniden.EnterProgram:
				enteredProgram = true
			case uniden.ExitProgram:
				enteredProgram = false
			}
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply.ToJsonBytes()); err != nil {
			log.Warn().Err(err).Str("remote", remote).Msg("Failed to write console reply")
			return
		}
	}
}

func (s *Server) runConsoleLine(line string) *ConsoleReply {
	cmd, err := uniden.ParseCommandLine(line)
	if err != nil {
		return &ConsoleReply{Command: string(cmd.Mnemonic), Error: err.Error(), Kind: "input"}
	}

	reply := &ConsoleReply{Command: string(cmd.Mnemonic)}
	res, err := s.scanner.Execute(cmd.Mnemonic, cmd.Params...)
	if err != nil {
		reply.Error = err.Error()
		if kind := uniden.KindOf(err); kind != 0 {
			reply.Kind = kind.String()
		}
		var cmdErr *uniden.CommandError
		if errors.As(err, &cmdErr) {
			reply.Payload = cmdErr.Fields
		}
		return reply
	}
	reply.OK = true
	reply.Payload = res.Payload
	return reply
}

func (s *Server) addClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()
	conn.Close()
}

// StatusFor maps a session error to the HTTP status the API answers with.
func StatusFor(err error) int {
	switch uniden.KindOf(err) {
	case uniden.KindProtocol:
		return http.StatusBadGateway
	case uniden.KindModeInvalid:
		return http.StatusConflict
	case uniden.KindTransport:
		return http.StatusServiceUnavailable
	case uniden.KindUnsupported:
		return http.StatusNotImplemented
	}
	if errors.Is(err, uniden.ErrNotConnected) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	if kind := uniden.KindOf(err); kind != 0 {
		resp.Kind = kind.String()
	}
	if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Int("status", status).Msg("Scanner request failed")
	}
	writeJSON(w, status, resp)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "input"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
