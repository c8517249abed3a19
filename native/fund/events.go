package fund

import (
	"errors"
	"math/big"

	"github.com/google/uuid"
)

// auditID tags every emitted event so downstream audit sinks can correlate
// and de-duplicate at-least-once deliveries from the host.
func auditID() string {
	return uuid.NewString()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

func gaugeValue(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
