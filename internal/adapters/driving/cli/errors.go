package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// errorPayload is the JSON shape of a failed command run with --json.
type errorPayload struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

// userMessage turns pipeline errors into the messages users act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyIndex):
		return "no code content indexed yet. Add PDF files to the data directory or run 'codecite ingest'"
	case errors.Is(err, domain.ErrGeneration) && errors.Is(err, domain.ErrLLMUnavailable):
		return "could not generate an answer right now: no LLM provider configured. Run 'codecite settings llm'"
	case errors.Is(err, domain.ErrGeneration):
		return "could not generate an answer right now"
	default:
		return err.Error()
	}
}

// failJSON writes err as an error payload and returns it so the exit code
// stays non-zero.
func failJSON(cmd *cobra.Command, err error) error {
	data, marshalErr := json.MarshalIndent(errorPayload{
		Error:     userMessage(err),
		ErrorKind: domain.ErrorKind(err),
	}, "", "  ")
	if marshalErr != nil {
		return err
	}
	cmd.Println(string(data))
	return err
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
