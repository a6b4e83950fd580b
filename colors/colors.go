package colors

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
)

// Prefix returns a colored "[label] " log prefix.
func Prefix(colorFn func(a ...interface{}) string, label string) string {
	return colorFn(fmt.Sprintf("[%s] ", label))
}
