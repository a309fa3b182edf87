package session

import (
	"fmt"
	"time"
)

// SecurityLevel is the policy tier controlling expiration and extension
// bounds. Levels form a strictly descending order of permissiveness:
// standard >= enhanced >= maximum for every bound.
type SecurityLevel string

const (
	// LevelStandard is the default tier with the most permissive bounds.
	LevelStandard SecurityLevel = "standard"
	// LevelEnhanced tightens expiration and extension bounds.
	LevelEnhanced SecurityLevel = "enhanced"
	// LevelMaximum is the most restrictive tier.
	LevelMaximum SecurityLevel = "maximum"
)

// Levels lists all security levels from most to least permissive.
func Levels() []SecurityLevel {
	return []SecurityLevel{LevelStandard, LevelEnhanced, LevelMaximum}
}

// ParseSecurityLevel parses a security level name.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	switch SecurityLevel(s) {
	case LevelStandard, LevelEnhanced, LevelMaximum:
		return SecurityLevel(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSecurityLevel, s)
	}
}

// DataClassification is the sensitivity tier of the governed content. It
// imposes an expiration ceiling independent of the security level; the
// stricter of the two always wins.
type DataClassification string

const (
	// ClassPublic content carries no extra expiration ceiling.
	ClassPublic DataClassification = "public"
	// ClassInternal content expires within 72 hours.
	ClassInternal DataClassification = "internal"
	// ClassConfidential content expires within 48 hours.
	ClassConfidential DataClassification = "confidential"
	// ClassRestricted content expires within 12 hours.
	ClassRestricted DataClassification = "restricted"
)

// ParseDataClassification parses a data classification name.
func ParseDataClassification(s string) (DataClassification, error) {
	switch DataClassification(s) {
	case ClassPublic, ClassInternal, ClassConfidential, ClassRestricted:
		return DataClassification(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidClassification, s)
	}
}

// Bounds collects the per-level policy table entries.
type Bounds struct {
	// MaxExpiration is the hard expiration ceiling from creation time.
	// No extension may push a session past createdAt + MaxExpiration.
	MaxExpiration time.Duration

	// DefaultExpiration is used when a caller requests no specific hours.
	DefaultExpiration time.Duration

	// ExtensionGrant is the default duration added by an extension.
	ExtensionGrant time.Duration

	// MaxExtensions is the extension ceiling.
	MaxExtensions int

	// GracePeriod is the post-expiry grace window.
	GracePeriod time.Duration
}

// levelBounds is the policy table. Every bound is non-increasing as the
// level moves standard -> enhanced -> maximum.
var levelBounds = map[SecurityLevel]Bounds{
	LevelStandard: {
		MaxExpiration:     72 * time.Hour,
		DefaultExpiration: 24 * time.Hour,
		ExtensionGrant:    12 * time.Hour,
		MaxExtensions:     5,
		GracePeriod:       30 * time.Minute,
	},
	LevelEnhanced: {
		MaxExpiration:     24 * time.Hour,
		DefaultExpiration: 8 * time.Hour,
		ExtensionGrant:    6 * time.Hour,
		MaxExtensions:     3,
		GracePeriod:       15 * time.Minute,
	},
	LevelMaximum: {
		MaxExpiration:     8 * time.Hour,
		DefaultExpiration: 4 * time.Hour,
		ExtensionGrant:    2 * time.Hour,
		MaxExtensions:     1,
		GracePeriod:       5 * time.Minute,
	},
}

// classificationCeilings caps expiration per classification, independent of
// the security level. Zero means no ceiling.
var classificationCeilings = map[DataClassification]time.Duration{
	ClassPublic:       0,
	ClassInternal:     72 * time.Hour,
	ClassConfidential: 48 * time.Hour,
	ClassRestricted:   12 * time.Hour,
}

// LevelBounds returns the policy table entry for a security level.
// Unknown levels get the maximum (most restrictive) bounds, failing closed.
func LevelBounds(level SecurityLevel) Bounds {
	if b, ok := levelBounds[level]; ok {
		return b
	}
	return levelBounds[LevelMaximum]
}

// MaxExtensions returns the extension ceiling for a security level.
func MaxExtensions(level SecurityLevel) int {
	return LevelBounds(level).MaxExtensions
}

// GracePeriodDuration returns the grace window for a security level.
func GracePeriodDuration(level SecurityLevel) time.Duration {
	return LevelBounds(level).GracePeriod
}

// ClassificationCeiling returns the expiration ceiling for a classification.
// Zero means the classification imposes no ceiling.
func ClassificationCeiling(class DataClassification) time.Duration {
	return classificationCeilings[class]
}

// ComputeExpiration computes the expiration instant for a new session.
// requestedHours <= 0 selects the level's default. The result never exceeds
// the level ceiling nor the classification ceiling; the stricter wins.
func ComputeExpiration(now time.Time, level SecurityLevel, class DataClassification, requestedHours int) time.Time {
	bounds := LevelBounds(level)

	d := bounds.DefaultExpiration
	if requestedHours > 0 {
		d = time.Duration(requestedHours) * time.Hour
	}
	if d > bounds.MaxExpiration {
		d = bounds.MaxExpiration
	}
	if ceiling := ClassificationCeiling(class); ceiling > 0 && d > ceiling {
		d = ceiling
	}

	return now.Add(d)
}

// MaxAllowedExpiration is the hard ceiling no extension may exceed,
// independent of classification.
func MaxAllowedExpiration(createdAt time.Time, level SecurityLevel) time.Time {
	return createdAt.Add(LevelBounds(level).MaxExpiration)
}
