package tagview

import (
	"log"
)

// DebugLoggingEnabled switches DebugLog output on. Set from the --debug flag.
var DebugLoggingEnabled bool

// InfoLog logs informational messages with timestamps
func InfoLog(format string, v ...any) {
	log.Printf(format, v...)
}

func ErrorLog(format string, v ...any) {
	log.Printf("[ERROR] "+format, v...)
}

// DebugLog logs only when DebugLoggingEnabled is set
func DebugLog(format string, v ...any) {
	if DebugLoggingEnabled {
		log.Printf("[DEBUG] "+format, v...)
	}
}
