// Package printer renders bb84sim output for humans.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

// MaxKeyBits is the number of sifted bits Result shows before truncating.
var MaxKeyBits = 64

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error prints a formatted error with title, explanation and suggestions to
// stderr, and returns a plain error carrying only the title for Cobra.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// Result writes the sifted keys, QBER and verdict of r to w.
func Result(w io.Writer, r *bb84.Result) {
	fmt.Fprintf(w, "Run:          %s\n", r.RunID)
	fmt.Fprintf(w, "Qubits:       %d\n", r.Qubits)
	fmt.Fprintf(w, "Eavesdropper: %t\n", r.Eavesdropper)
	if r.Seeded {
		fmt.Fprintf(w, "Seed:         %d\n", r.Seed)
	}
	fmt.Fprintf(w, "Sifted:       %d bits\n", r.Sifted.Len())
	fmt.Fprintf(w, "Sender key:   %s\n", Key(r.Sifted.Sender.String()))
	fmt.Fprintf(w, "Receiver key: %s\n", Key(r.Sifted.Receiver.String()))
	fmt.Fprintf(w, "Keys agree:   %t\n", r.Sifted.Agree())
	fmt.Fprintf(w, "QBER:         %.4f (threshold %.4f)\n", r.QBER, r.Threshold)
	fmt.Fprintf(w, "Verdict:      %s\n", Verdict(r.Detection))
}

// Key shortens a rendered key to MaxKeyBits characters.
func Key(bits string) string {
	if bits == "" {
		return "(empty)"
	}
	if len(bits) <= MaxKeyBits {
		return bits
	}
	return fmt.Sprintf("%s... (+%d)", bits[:MaxKeyBits], len(bits)-MaxKeyBits)
}

// Verdict colors d: green when the channel looks clean, red otherwise.
func Verdict(d bb84.Detection) string {
	if d == bb84.EavesdroppingSuspected {
		return red.Sprint(d.String())
	}
	return green.Sprint(d.String())
}
