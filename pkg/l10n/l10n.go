// Package l10n holds the user-facing strings printed by the CLI.
//
// The table is static English for now; keys are stable so translated
// tables can be swapped in without touching callers.
package l10n

import "fmt"

var messages = map[string]string{
	"apps.list.header":        "Installed apps:",
	"apps.list.empty":         "No apps installed.",
	"apps.enabled":            "App %q enabled.",
	"apps.disabled":           "App %q disabled.",
	"apps.not_found":          "App %q is not installed.",
	"apps.sync.recorded":      "Recorded %d new app install(s).",
	"apps.sync.clean":         "App install state is up to date.",
	"extensions.list.header":  "Loaded extensions:",
	"extensions.list.empty":   "No extensions loaded.",
	"catalog.search.empty":    "No apps found for %q.",
	"catalog.search.header":   "Search results for %q:",
	"catalog.show.not_found":  "No catalog entry for %q.",
	"catalog.unavailable":     "The app catalog is currently unavailable. Try again later.",
	"serve.starting":          "Starting Atrium DAV server on %s",
	"serve.shutting_down":     "Shutting down...",
	"birthday.calendar.name":  "Contact birthdays",
	"birthday.event.birthday": "%s's birthday",
}

// T returns the message for key, formatted with args. Unknown keys are
// returned verbatim so a missing entry never hides program output.
func T(key string, args ...any) string {
	msg, ok := messages[key]
	if !ok {
		msg = key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
