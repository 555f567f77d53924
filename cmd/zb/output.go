package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matsen/zotbib/internal/config"
	"github.com/matsen/zotbib/internal/zotero"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitWithAPIError reports a Zotero client failure and exits with ExitAPIError.
func exitWithAPIError(err error) {
	code := apiErrorCode(err)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	} else {
		outputJSON(APIErrorResponse{Error: APIErrorDetail{Code: code, Message: err.Error()}})
	}
	os.Exit(ExitAPIError)
}

// apiErrorCode classifies a client error for JSON output.
func apiErrorCode(err error) string {
	switch {
	case zotero.IsNotFound(err):
		return "not_found"
	case zotero.IsAuthError(err):
		return "auth_error"
	case zotero.IsRateLimited(err):
		return "rate_limited"
	case errors.Is(err, zotero.ErrNetworkError):
		return "network_error"
	case errors.Is(err, zotero.ErrInvalidResponse):
		return "invalid_response"
	}
	return "api_error"
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// APIErrorResponse is the JSON error response for Zotero API failures.
type APIErrorResponse struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail carries a machine-readable code with the message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExportResponse summarizes an export written to a file.
type ExportResponse struct {
	Output   string   `json:"output"`
	Entries  int      `json:"entries"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Warnings []string `json:"warnings,omitempty"`
	Dump     string   `json:"dump,omitempty"`
	Cached   int      `json:"cached,omitempty"`
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Path      string              `json:"path"`
	Config    config.GlobalConfig `json:"config"`
	Library   string              `json:"library,omitempty"`
	CachePath string              `json:"cache_path"`
	KeySource string              `json:"key_source"`
}

// CacheResponse is the response for cache commands.
type CacheResponse struct {
	Library string `json:"library"`
	Path    string `json:"path"`
	Items   int    `json:"items"`
}
