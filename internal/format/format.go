// Package format holds small display helpers shared by the CLI renderers.
package format

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TimeAgo renders the age of t relative to now in the compact form used in
// listings: "now", "5m", "3h", "2d", "4w".
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < time.Minute {
		return "now"
	}
	minutes := int(d / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}
	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dw", days/7)
}

// Domain returns the host of link without a leading "www.", or "" when link
// is not an absolute URL.
func Domain(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
