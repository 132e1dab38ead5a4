package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestServeUnknownMethod(t *testing.T) {
	s := New()
	in := strings.NewReader(`{"id":"1","method":"no-such-method","params":{}}` + "\n")
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false for an unknown method")
	}
	if resp.Error == nil || resp.Error.Code != "UNKNOWN_METHOD" {
		t.Errorf("expected UNKNOWN_METHOD error, got %+v", resp.Error)
	}
}

func TestServeMalformedRequest(t *testing.T) {
	s := New()
	in := strings.NewReader("not json\n")
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false for a malformed request line")
	}
	if resp.Error == nil || resp.Error.Code != "MALFORMED_REQUEST" {
		t.Errorf("expected MALFORMED_REQUEST error, got %+v", resp.Error)
	}
}

func TestHandleCreateRequiresWorkingDirectory(t *testing.T) {
	s := New()
	raw := json.RawMessage(`{"branch":"feature-x"}`)
	_, err := s.handleCreate(context.Background(), raw)
	if err == nil {
		t.Fatal("expected an error when working_directory is missing")
	}
}

func TestHandleListRejectsUnresolvableWorkingDirectory(t *testing.T) {
	s := New()
	raw := json.RawMessage(`{"working_directory":"/nonexistent/path/for/dockertree/tests"}`)
	_, err := s.handleList(context.Background(), raw)
	if err == nil {
		t.Fatal("expected an error resolving a working_directory with no .dockertree/config.yml")
	}
}
