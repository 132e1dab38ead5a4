package output

import (
	"encoding/json"
	"time"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// Envelope is the structured response every command emits under --json,
// per spec §6.1: {success, operation, data, error, timestamp}.
type Envelope struct {
	Success   bool        `json:"success"`
	Operation string      `json:"operation"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ErrorInfo is the error.{code,message,details} shape spec §6.1 requires.
type ErrorInfo struct {
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteResult renders a command's outcome: a JSON envelope under --json,
// or a human success/error line otherwise. It returns the process exit
// code the caller should use (dterrors.ExitCode's convention), and takes
// the timestamp as a parameter so that its output is reproducible in tests.
func WriteResult(operation string, data interface{}, err error, now time.Time) int {
	if IsJSON() {
		env := Envelope{
			Success:   err == nil,
			Operation: operation,
			Data:      data,
			Timestamp: now.UTC().Format(time.RFC3339),
		}
		if err != nil {
			env.Error = errorInfoFrom(err)
		}
		enc := json.NewEncoder(Writer())
		enc.SetIndent("", "  ")
		_ = enc.Encode(env)
		return dterrors.ExitCode(err)
	}

	if err != nil {
		formatErrorText(err)
		return dterrors.ExitCode(err)
	}
	return 0
}

func errorInfoFrom(err error) *ErrorInfo {
	if dtErr, ok := dterrors.As(err); ok {
		return &ErrorInfo{Code: dtErr.Code, Message: dtErr.Message, Details: dtErr.Details}
	}
	return &ErrorInfo{Message: err.Error()}
}
