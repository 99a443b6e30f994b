// Package qualify decides whether a chat user or a marketplace player is worth
// reporting. Every function here is pure: the caller collects the signals and
// passes the current time in.
package qualify

import (
	"fmt"
	"log/slog"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// Verdict is the outcome of a gate sequence. A rejection always names the gate.
type Verdict struct {
	Admit  bool
	Gate   types.Gate
	Reason string
}

// Admit returns an admitting verdict
func Admit() Verdict {
	return Verdict{Admit: true}
}

// Reject returns a rejecting verdict attributed to gate
func Reject(gate types.Gate, format string, args ...any) Verdict {
	return Verdict{Gate: gate, Reason: fmt.Sprintf(format, args...)}
}

func (v Verdict) String() string {
	if v.Admit {
		return "ADMIT"
	}
	return fmt.Sprintf("REJECT(%s: %s)", v.Gate, v.Reason)
}

// LogValue implements slog.LogValuer
func (v Verdict) LogValue() slog.Value {
	if v.Admit {
		return slog.GroupValue(slog.Bool("admit", true))
	}
	return slog.GroupValue(
		slog.Bool("admit", false),
		slog.String("gate", v.Gate.String()),
		slog.String("reason", v.Reason),
	)
}
