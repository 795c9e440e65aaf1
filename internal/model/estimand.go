package model

import (
	"fmt"
	"strings"
)

// Kind names an identification strategy.
type Kind string

const (
	// Backdoor identifies the effect by adjusting for a set that blocks
	// all backdoor paths.
	Backdoor Kind = "backdoor"
	// Frontdoor identifies the effect through a mediator set.
	Frontdoor Kind = "frontdoor"
	// IV identifies the effect through an instrumental variable.
	IV Kind = "iv"
)

// Estimand is an identified target quantity: the strategy plus the
// variable sets it relies on. An estimator turns it into a number.
type Estimand struct {
	Kind        Kind
	Treatment   string
	Outcome     string
	Adjustment  []string // Backdoor
	Mediators   []string // Frontdoor
	Instruments []string // IV
}

func setOrNone(s []string) string {
	if len(s) == 0 {
		return "{}"
	}
	return "{" + strings.Join(s, ", ") + "}"
}

// Summary renders the estimand as the multi-line block printed by the
// CLI and API.
func (e Estimand) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimand name: %s\n", e.Kind)
	switch e.Kind {
	case Backdoor:
		fmt.Fprintf(&b, "Estimand expression: E[%s | do(%s)] = sum over %s of P(z) * E[%s | %s, z]\n",
			e.Outcome, e.Treatment, setOrNone(e.Adjustment), e.Outcome, e.Treatment)
		if len(e.Adjustment) == 0 {
			fmt.Fprintf(&b, "Estimand assumption: no backdoor paths from %s to %s\n", e.Treatment, e.Outcome)
		} else {
			fmt.Fprintf(&b, "Estimand assumption: %s blocks all backdoor paths from %s to %s and contains no descendant of %s\n",
				setOrNone(e.Adjustment), e.Treatment, e.Outcome, e.Treatment)
		}
	case Frontdoor:
		fmt.Fprintf(&b, "Estimand expression: E[%s | do(%s)] identified through mediators %s\n",
			e.Outcome, e.Treatment, setOrNone(e.Mediators))
		fmt.Fprintf(&b, "Estimand assumption: %s intercepts all directed paths %s -> %s; no unblocked backdoor from %s to %s; backdoor paths from %s to %s blocked by %s\n",
			setOrNone(e.Mediators), e.Treatment, e.Outcome, e.Treatment, setOrNone(e.Mediators),
			setOrNone(e.Mediators), e.Outcome, e.Treatment)
	case IV:
		fmt.Fprintf(&b, "Estimand expression: E[%s | do(%s)] = cov(%s, %s) / cov(%s, %s)\n",
			e.Outcome, e.Treatment, e.Instruments[0], e.Outcome, e.Instruments[0], e.Treatment)
		fmt.Fprintf(&b, "Estimand assumption: %s affects %s, and affects %s only through %s, with no common cause of %s and %s\n",
			setOrNone(e.Instruments), e.Treatment, e.Outcome, e.Treatment, setOrNone(e.Instruments), e.Outcome)
	}
	return b.String()
}
