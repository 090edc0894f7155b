package provider

import "fmt"

// UpstreamError cobre falha de rede, status não-2xx e payload malformado do
// provedor. 429 é retentado com backoff antes de virar erro; o resto só chega
// aqui depois do fallback de cache falhar.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrDailyLimitReached sinaliza que a flag de esgotamento diário está ativa e
// a chamada foi cortada antes de ir à rede
var ErrDailyLimitReached = &UpstreamError{Endpoint: "daily-limit", Err: fmt.Errorf("daily request limit reached")}
