// Package wizard drives the CV upload wizard: upload, parse, review, apply.
package wizard

import (
	"errors"
	"fmt"
)

// Step is the wizard's current panel.
type Step string

const (
	StepUpload   Step = "upload"
	StepParsing  Step = "parsing"
	StepReview   Step = "review"
	StepApplying Step = "applying"
	StepComplete Step = "complete"
)

var (
	ErrInvalidTransition = errors.New("invalid wizard step transition")
	ErrSessionNotFound   = errors.New("wizard session not found")
	ErrUnknownSection    = errors.New("unknown review section")
	ErrIndexOutOfRange   = errors.New("review item index out of range")
	ErrInvalidItem       = errors.New("invalid review item")
	ErrReviewInvalid     = errors.New("review data failed validation")
)

// forward lists the forward transitions. Reset to StepUpload is always allowed
// and is handled separately.
var forward = map[Step][]Step{
	StepUpload:   {StepParsing},
	StepParsing:  {StepReview, StepUpload},
	StepReview:   {StepApplying},
	StepApplying: {StepComplete},
}

// CanAdvance reports whether the machine may move from s to next without a reset.
func (s Step) CanAdvance(next Step) bool {
	for _, allowed := range forward[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func transitionError(from, to Step) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
