// Package httpremote is the minimal HTTP remote-control surface over
// the IR command service: a command listing page and a single JSON
// action endpoint.
package httpremote

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"smartmirror.dev/smarterr"
)

// CommandSender is the IR Command Service surface this facade needs.
type CommandSender interface {
	ListCommands() ([]string, error)
	SendCommand(name string) error
}

// Server wires CommandSender behind GET /, POST /send_command, and
// GET /healthz.
type Server struct {
	commands CommandSender
	router   chi.Router
}

// New returns a Server routing against commands.
func New(commands CommandSender) *Server {
	s := &Server{commands: commands, router: chi.NewRouter()}
	s.router.Get("/", s.handleIndex)
	s.router.Post("/send_command", s.handleSendCommand)
	s.router.Get("/healthz", s.handleHealthz)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><title>SmartMirror Remote</title></head>
<body>
<h1>SmartMirror Remote</h1>
<ul>
{{range .}}<li>{{.}}</li>
{{end}}
</ul>
</body></html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := s.commands.ListCommands()
	if err != nil {
		writeError(w, err)
		return
	}
	sort.Strings(names)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTmpl.Execute(w, names)
}

type sendCommandRequest struct {
	Command string `json:"command"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	var req sendCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "malformed request body"})
		return
	}

	if err := s.commands.SendCommand(req.Command); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, smarterr.ErrUnknownCommand) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, statusResponse{Status: "error", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
