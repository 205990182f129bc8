package inference

import "encoding/json"

// DefaultMaxTokens bounds generation when the caller sets no limit.
const DefaultMaxTokens = 1000

// Options configures a generation call. Recognized keys get typed fields;
// anything else lands in Extra and is passed through to the runtime opaquely,
// so new runtime options work without a driver change.
type Options struct {
	// MaxTokens limits generated length. Zero means unset; WithDefaults
	// substitutes DefaultMaxTokens.
	MaxTokens int

	// Sampling parameters. Nil means "not specified": the runtime's own
	// default applies, which may differ from any value we could send.
	Temperature       *float64
	TopP              *float64
	TopK              *int
	RepetitionPenalty *float64

	// Extra holds unrecognized option keys verbatim.
	Extra map[string]any
}

// option keys with dedicated fields.
const (
	optMaxTokens         = "max_tokens"
	optTemperature       = "temperature"
	optTopP              = "top_p"
	optTopK              = "top_k"
	optRepetitionPenalty = "repetition_penalty"
)

// UnmarshalJSON routes recognized keys into typed fields and everything else
// into Extra.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = Options{}
	for key, val := range raw {
		switch key {
		case optMaxTokens:
			var n int
			if err := json.Unmarshal(val, &n); err != nil {
				return err
			}
			o.MaxTokens = n
		case optTemperature:
			if err := unmarshalFloat(val, &o.Temperature); err != nil {
				return err
			}
		case optTopP:
			if err := unmarshalFloat(val, &o.TopP); err != nil {
				return err
			}
		case optTopK:
			var n int
			if err := json.Unmarshal(val, &n); err != nil {
				return err
			}
			o.TopK = &n
		case optRepetitionPenalty:
			if err := unmarshalFloat(val, &o.RepetitionPenalty); err != nil {
				return err
			}
		default:
			if o.Extra == nil {
				o.Extra = make(map[string]any)
			}
			var v any
			if err := json.Unmarshal(val, &v); err != nil {
				return err
			}
			o.Extra[key] = v
		}
	}
	return nil
}

// MarshalJSON flattens typed fields and Extra back into one object, the shape
// the wire protocol and runtimes expect.
func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.ToMap())
}

// ToMap flattens the options into a plain key/value map. Typed fields win over
// Extra entries with the same key.
func (o Options) ToMap() map[string]any {
	m := make(map[string]any, len(o.Extra)+5)
	for k, v := range o.Extra {
		m[k] = v
	}
	if o.MaxTokens != 0 {
		m[optMaxTokens] = o.MaxTokens
	}
	if o.Temperature != nil {
		m[optTemperature] = *o.Temperature
	}
	if o.TopP != nil {
		m[optTopP] = *o.TopP
	}
	if o.TopK != nil {
		m[optTopK] = *o.TopK
	}
	if o.RepetitionPenalty != nil {
		m[optRepetitionPenalty] = *o.RepetitionPenalty
	}
	return m
}

// WithDefaults returns a copy with defaults applied for unset fields.
func (o Options) WithDefaults() Options {
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

func unmarshalFloat(data json.RawMessage, dst **float64) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*dst = &f
	return nil
}
