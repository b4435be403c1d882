package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/strayline/corral/internal/present"
)

func drainStdin() {
	if present.IsInputTTY() {
		return
	}
	_, _ = io.Copy(io.Discard, os.Stdin)
}

// readStdinContent returns piped input, or an empty string on a TTY.
func readStdinContent() string {
	if present.IsInputTTY() {
		return ""
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
