package util

import (
	"strings"
	"time"
)

// processWaitDelay bounds how long Wait waits for output pipes to close after
// a cancelled command has been killed.
const processWaitDelay = 5 * time.Second

// CommandString renders an argument vector for logs, quoting arguments that
// contain whitespace or quotes.
func CommandString(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			quoted[i] = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
