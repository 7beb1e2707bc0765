// Package device classifies user agents into a coarse device taxonomy.
package device

import (
	"regexp"
	"strings"

	"github.com/shortloop/shortloop/internal/model"
)

// Tablet detection runs before the generic mobile check because many tablet
// user agents also contain mobile-like substrings (e.g. Android tablets).
var (
	tabletRegex        = regexp.MustCompile(`(?i)ipad|tablet|playbook|silk`)
	androidRegex       = regexp.MustCompile(`(?i)android`)
	androidMobileRegex = regexp.MustCompile(`(?i)android.*mobile`)
	mobileRegex        = regexp.MustCompile(`(?i)mobile|iphone|ipod|android|blackberry|opera mini|windows phone`)
)

// Detect classifies a User-Agent string.
// An absent UA is unknown; anything that is neither tablet nor mobile is
// desktop.
func Detect(userAgent string) model.DeviceType {
	if strings.TrimSpace(userAgent) == "" {
		return model.DeviceUnknown
	}

	if tabletRegex.MatchString(userAgent) {
		return model.DeviceTablet
	}
	if androidRegex.MatchString(userAgent) && !androidMobileRegex.MatchString(userAgent) {
		return model.DeviceTablet
	}

	if mobileRegex.MatchString(userAgent) {
		return model.DeviceMobile
	}

	return model.DeviceDesktop
}
