package utils

import "strings"

// secretFlags are flag names whose following argument must never be echoed.
var secretFlags = map[string]struct{}{
	"--admin-password": {},
	"--password":       {},
	"-p":               {},
}

// MaskCommandLine renders a command and its arguments for display, with
// password values replaced so they never reach logs or the terminal.
func MaskCommandLine(command string, args ...string) string {
	display := make([]string, 0, len(args)+1)
	display = append(display, command)

	maskNext := false
	for _, arg := range args {
		switch {
		case maskNext:
			display = append(display, "********")
			maskNext = false
		case hasSecretFlag(arg):
			display = append(display, arg)
			maskNext = true
		case strings.HasPrefix(arg, "-p") && len(arg) > 2 && !strings.HasPrefix(arg, "--"):
			// mysql-style inline password (-pSECRET).
			display = append(display, "-p********")
		default:
			display = append(display, arg)
		}
	}

	return strings.Join(display, " ")
}

func hasSecretFlag(arg string) bool {
	_, ok := secretFlags[arg]
	return ok
}
