// Package rpcserver implements dockertree's programmatic surface (spec
// §6.5, part of C12): the same typed operations the CLI exposes, offered
// as JSON-RPC-style requests framed one per line over stdin/stdout, for
// callers that want to drive dockertree without shelling out to the
// binary's text/--json CLI output. It reuses the orchestrator and its
// collaborators directly rather than duplicating their logic, the same
// "adapters behind typed operations" principle internal/orchestrator's
// own doc comment describes.
package rpcserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// Request is one line of stdin: a method name plus its JSON params, which
// must embed WorkingDirectory (spec §6.5's mandatory field).
type Request struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is one line of stdout, structurally identical to the CLI's
// --json envelope (internal/output.Envelope) minus the operation/timestamp
// fields, which the caller already knows from having sent the request.
type Response struct {
	ID      string     `json:"id,omitempty"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo mirrors internal/output.ErrorInfo.
type ErrorInfo struct {
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// handlerFunc executes one RPC method against its raw params and returns
// the response payload.
type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Server dispatches Requests read from in to handlers, writing one
// Response per line to out.
type Server struct {
	handlers map[string]handlerFunc
}

// New builds a Server with every method this package implements
// registered.
func New() *Server {
	s := &Server{handlers: map[string]handlerFunc{}}
	s.registerLifecycleMethods()
	s.registerInspectionMethods()
	return s
}

// Serve reads newline-delimited JSON requests from in until EOF or ctx is
// done, dispatching each to its handler and writing a newline-delimited
// JSON response to out before reading the next line. A malformed line
// yields an error response rather than terminating the loop.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = encoder.Encode(Response{Success: false, Error: &ErrorInfo{
				Code: "MALFORMED_REQUEST", Message: err.Error(),
			}})
			continue
		}

		resp := s.dispatch(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	handler, ok := s.handlers[req.Method]
	if !ok {
		return Response{ID: req.ID, Success: false, Error: &ErrorInfo{
			Code: "UNKNOWN_METHOD", Message: "no such method: " + req.Method,
		}}
	}
	data, err := handler(ctx, req.Params)
	if err != nil {
		return Response{ID: req.ID, Success: false, Error: errorInfoFrom(err)}
	}
	return Response{ID: req.ID, Success: true, Data: data}
}

func errorInfoFrom(err error) *ErrorInfo {
	if dtErr, ok := dterrors.As(err); ok {
		return &ErrorInfo{Code: dtErr.Code, Message: dtErr.Message, Details: dtErr.Details}
	}
	return &ErrorInfo{Message: err.Error()}
}
