package test

import (
	"os"
	"strings"

	"github.com/jspipe/jspipe/internal/logger"
	"github.com/kylelemons/godebug/diff"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorDim   = "\033[37m"
)

// Line-by-line diff. Removed lines start with "-" and added lines with "+".
func Diff(old string, new string, color bool) string {
	text := diff.Diff(old, new)
	if !color {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "-"):
			lines[i] = colorRed + line + colorReset
		case strings.HasPrefix(line, "+"):
			lines[i] = colorGreen + line + colorReset
		default:
			lines[i] = colorDim + line + colorReset
		}
	}
	return strings.Join(lines, "\n")
}

func useColor() bool {
	return logger.GetTerminalInfo(os.Stderr).UseColorEscapes
}
