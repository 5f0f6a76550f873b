package cdpengine

import "strings"

// ErrAborted is the net error code of a navigation cancelled by the page or the user.
const ErrAborted = -3

var netErrorCodes = map[string]int{
	"ERR_FAILED":                   -2,
	"ERR_ABORTED":                  ErrAborted,
	"ERR_FILE_NOT_FOUND":           -6,
	"ERR_TIMED_OUT":                -7,
	"ERR_ACCESS_DENIED":            -10,
	"ERR_BLOCKED_BY_CLIENT":        -20,
	"ERR_BLOCKED_BY_RESPONSE":      -27,
	"ERR_CONNECTION_CLOSED":        -100,
	"ERR_CONNECTION_RESET":         -101,
	"ERR_CONNECTION_REFUSED":       -102,
	"ERR_CONNECTION_ABORTED":       -103,
	"ERR_CONNECTION_FAILED":        -104,
	"ERR_NAME_NOT_RESOLVED":        -105,
	"ERR_INTERNET_DISCONNECTED":    -106,
	"ERR_SSL_PROTOCOL_ERROR":       -107,
	"ERR_ADDRESS_UNREACHABLE":      -109,
	"ERR_CONNECTION_TIMED_OUT":     -118,
	"ERR_NAME_RESOLUTION_FAILED":   -137,
	"ERR_CERT_COMMON_NAME_INVALID": -200,
	"ERR_CERT_DATE_INVALID":        -201,
	"ERR_CERT_AUTHORITY_INVALID":   -202,
	"ERR_CERT_INVALID":             -207,
	"ERR_INVALID_URL":              -300,
	"ERR_DISALLOWED_URL_SCHEME":    -301,
	"ERR_UNKNOWN_URL_SCHEME":       -302,
	"ERR_TOO_MANY_REDIRECTS":       -310,
	"ERR_INVALID_RESPONSE":         -320,
	"ERR_EMPTY_RESPONSE":           -324,
}

// NetErrorCode maps a DevTools error text such as "net::ERR_NAME_NOT_RESOLVED"
// to the Chromium net error code. Unknown texts map to ERR_FAILED.
func NetErrorCode(text string) int {
	name := strings.TrimSpace(text)
	name = strings.TrimPrefix(name, "net::")
	if idx := strings.IndexAny(name, " ("); idx >= 0 {
		name = name[:idx]
	}
	if code, ok := netErrorCodes[name]; ok {
		return code
	}
	return netErrorCodes["ERR_FAILED"]
}
