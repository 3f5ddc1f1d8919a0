package quote

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jewelquote/internal/logging"
)

// ParseQuantity parses a weight or carat value arriving as a string
// from a form. Parsing is strict: non-numeric or negative input is
// coerced to zero with a warning instead of propagating into downstream
// arithmetic. NaN poisoning must never reach a persisted price.
//
// An empty string is the common "field left blank" case and coerces to
// zero silently.
func ParseQuantity(field, raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		logging.Warn("non-numeric quantity coerced to zero",
			zap.String("field", field),
			zap.String("value", raw))
		return decimal.Zero
	}
	if value.IsNegative() {
		logging.Warn("negative quantity coerced to zero",
			zap.String("field", field),
			zap.String("value", raw))
		return decimal.Zero
	}
	return value
}
