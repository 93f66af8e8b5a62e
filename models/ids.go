// ABOUTME: Identifier generation for hand-entered leads and client sessions
// ABOUTME: Uses uuid for random suffixes and ULIDs for sortable session ids
package models

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	ManualPrefix = "manual_"
	SocialPrefix = "fb_"
)

// NewManualID returns manual_<ms>_<suffix>.
func NewManualID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", ManualPrefix, now.UnixMilli(), randomSuffix())
}

// NewSocialID returns fb_<ms>_<suffix>.
func NewSocialID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", SocialPrefix, now.UnixMilli(), randomSuffix())
}

// randomSuffix is nine lowercase alphanumerics taken from a v4 uuid.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
}

// NewSessionID returns a new ULID identifying this client instance.
func NewSessionID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// IsHandEntered reports whether the id was generated locally rather than by the search provider.
func IsHandEntered(id string) bool {
	return strings.HasPrefix(id, ManualPrefix) || strings.HasPrefix(id, SocialPrefix)
}
