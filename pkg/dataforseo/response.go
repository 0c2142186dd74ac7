package dataforseo

import (
	"encoding/json"
	"fmt"
)

// StatusOK is the provider's success code, in the envelope and in each task.
const StatusOK = 20000

// Response is the provider envelope.
type Response struct {
	Version       string  `json:"version"`
	StatusCode    int     `json:"status_code"`
	StatusMessage string  `json:"status_message"`
	Time          string  `json:"time"`
	Cost          float64 `json:"cost"`
	TasksCount    int     `json:"tasks_count"`
	TasksError    int     `json:"tasks_error"`
	Tasks         []Task  `json:"tasks"`
}

// Task is one element of the envelope's tasks array.
type Task struct {
	ID            string          `json:"id"`
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message"`
	Cost          float64         `json:"cost"`
	ResultCount   int             `json:"result_count"`
	Path          []string        `json:"path"`
	Result        json.RawMessage `json:"result"`
}

// failure returns the first non-success status in the envelope.
func (r *Response) failure(endpoint string, httpStatus int) *ProviderError {
	if r.StatusCode != StatusOK {
		return &ProviderError{Endpoint: endpoint, HTTPStatus: httpStatus, StatusCode: r.StatusCode, Message: r.StatusMessage}
	}
	for _, t := range r.Tasks {
		if t.StatusCode != StatusOK {
			return &ProviderError{Endpoint: endpoint, HTTPStatus: httpStatus, StatusCode: t.StatusCode, Message: t.StatusMessage}
		}
	}
	return nil
}

// DecodeResult unmarshals the first task's result array into []T.
func DecodeResult[T any](r *Response) ([]T, error) {
	if r == nil || len(r.Tasks) == 0 || len(r.Tasks[0].Result) == 0 || string(r.Tasks[0].Result) == "null" {
		return nil, ErrEmptyResult
	}
	var out []T
	if err := json.Unmarshal(r.Tasks[0].Result, &out); err != nil {
		return nil, fmt.Errorf("dataforseo: decode result: %w", err)
	}
	return out, nil
}
