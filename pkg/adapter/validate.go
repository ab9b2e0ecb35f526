package adapter

// Outcome reports the structural validation gate's verdict and, for a
// rejected record, the reasons. Following the teacher's collector-side
// validator, out-of-order timestamps are counted on the Validator
// (OutOfOrderCount), never rejected — market data anomalies (corrections,
// flash crashes) are real and must reach the codec, not be filtered out.
type Outcome struct {
	Valid  bool
	Errors []string
}

// Validator runs the structural sanity gate for one symbol's inbound
// adapter records (monotonic timestamps, non-negative sizes) before they
// are admitted to the wire codec.
type Validator struct {
	symbol        string
	lastTimestamp uint64
	haveLast      bool

	OutOfOrderCount uint64
}

// NewValidator returns a validator for symbol.
func NewValidator(symbol string) *Validator {
	return &Validator{symbol: symbol}
}

// ValidateTrade checks t for structural validity. A non-monotonic
// timestamp is counted but does not invalidate the record.
func (v *Validator) ValidateTrade(t Trade) Outcome {
	v.trackTimestamp(t.TimestampNs)

	var errs []string
	if t.PriceMantissa <= 0 {
		errs = append(errs, "trade price must be positive")
	}
	if t.VolumeMantissa < 0 {
		errs = append(errs, "trade volume must be non-negative")
	}
	return Outcome{Valid: len(errs) == 0, Errors: errs}
}

// ValidateQuote checks q for structural validity.
func (v *Validator) ValidateQuote(q Quote) Outcome {
	v.trackTimestamp(q.TimestampNs)

	var errs []string
	if q.BidPriceMantissa <= 0 {
		errs = append(errs, "bid price must be positive")
	}
	if q.AskPriceMantissa <= 0 {
		errs = append(errs, "ask price must be positive")
	}
	if q.BidVolumeMantissa < 0 {
		errs = append(errs, "bid volume must be non-negative")
	}
	if q.AskVolumeMantissa < 0 {
		errs = append(errs, "ask volume must be non-negative")
	}
	return Outcome{Valid: len(errs) == 0, Errors: errs}
}

// ValidatePoolEvent checks e for structural validity. Pool amounts are
// raw big-endian u128 magnitudes, so there is no sign to check — only
// that the event carries a timestamp and a non-zero pool address.
func (v *Validator) ValidatePoolEvent(e PoolEvent) Outcome {
	v.trackTimestamp(e.TimestampNs)

	var errs []string
	if e.TimestampNs == 0 {
		errs = append(errs, "pool event timestamp must be set")
	}
	if e.Pool == ([20]byte{}) {
		errs = append(errs, "pool address must be non-zero")
	}
	return Outcome{Valid: len(errs) == 0, Errors: errs}
}

func (v *Validator) trackTimestamp(ts uint64) {
	if v.haveLast && ts < v.lastTimestamp {
		v.OutOfOrderCount++
		// Don't reject: corrections and replays legitimately carry an
		// earlier timestamp than the previous record.
	}
	v.lastTimestamp = ts
	v.haveLast = true
}
