package etherstack

import "errors"

// ValidateFlags tunes which optional checks a Validator performs.
type ValidateFlags uint8

const (
	// ValidateEvilBit enables rejection of IPv4 packets carrying the evil bit (RFC 3514).
	ValidateEvilBit ValidateFlags = 1 << iota
	// ValidateAllowMultiErrs makes a Validator accumulate every error seen instead of only the first.
	ValidateAllowMultiErrs
)

// Validator accumulates validation errors across one or more ValidateSize/ValidateExceptCRC
// calls on wire-format frames. The zero value rejects on the first error seen; set
// ValidateAllowMultiErrs to accumulate every error instead.
type Validator struct {
	flags ValidateFlags
	accum []error
}

// NewValidator returns a Validator configured with the given flags.
func NewValidator(flags ValidateFlags) Validator {
	return Validator{flags: flags}
}

// Flags returns the configured ValidateFlags.
func (v *Validator) Flags() ValidateFlags { return v.flags }

// SetFlags overwrites the configured ValidateFlags.
func (v *Validator) SetFlags(flags ValidateFlags) { v.flags = flags }

// ResetErr clears all accumulated errors so the Validator can be reused.
func (v *Validator) ResetErr() {
	v.accum = v.accum[:0]
}

// HasError reports whether any error has been recorded since the last ResetErr.
func (v *Validator) HasError() bool { return len(v.accum) != 0 }

// Err returns the accumulated validation error, or nil if none were recorded.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// AddError records a validation failure. If ValidateAllowMultiErrs is unset only the
// first error recorded since the last ResetErr is kept.
func (v *Validator) AddError(err error) {
	if len(v.accum) != 0 && v.flags&ValidateAllowMultiErrs == 0 {
		return
	}
	v.accum = append(v.accum, err)
}
