package dataforseo

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/seoscope/pkg/quota"
)

var (
	ErrConfigurationMissing = errors.New("dataforseo: DATAFORSEO_URL or DATAFORSEO_PASSWORD is not set")
	ErrQuotaExceeded        = errors.New("dataforseo: usage quota exceeded")
	ErrProvider             = errors.New("dataforseo: provider returned an error")
	ErrTransport            = errors.New("dataforseo: request failed")
	ErrEmptyResult          = errors.New("dataforseo: response has no result")
)

// QuotaExceededError is returned when the usage gate denies a call. No request
// was sent to the provider.
type QuotaExceededError struct {
	Decision quota.Decision
}

func (e *QuotaExceededError) Error() string { return e.Decision.Message }

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded || target == quota.ErrLimitExceeded
}

// ProviderError is a failure reported by the provider: a non-2xx HTTP status
// or an envelope/task status_code other than 20000.
type ProviderError struct {
	Endpoint   string
	HTTPStatus int
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dataforseo %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dataforseo %s: http %d: %s", e.Endpoint, e.HTTPStatus, e.Message)
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// TransportError wraps network and protocol failures before a provider
// response could be read.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dataforseo %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
