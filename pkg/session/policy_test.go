package session

import (
	"testing"
	"time"
)

func TestParseSecurityLevel(t *testing.T) {
	for _, name := range []string{"standard", "enhanced", "maximum"} {
		if _, err := ParseSecurityLevel(name); err != nil {
			t.Errorf("ParseSecurityLevel(%q) returned error: %v", name, err)
		}
	}
	if _, err := ParseSecurityLevel("paranoid"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestParseDataClassification(t *testing.T) {
	for _, name := range []string{"public", "internal", "confidential", "restricted"} {
		if _, err := ParseDataClassification(name); err != nil {
			t.Errorf("ParseDataClassification(%q) returned error: %v", name, err)
		}
	}
	if _, err := ParseDataClassification("secret"); err == nil {
		t.Error("expected error for unknown classification")
	}
}

// Every bound must be non-increasing as the level tightens.
func TestLevelBounds_Monotonic(t *testing.T) {
	levels := Levels()
	for i := 1; i < len(levels); i++ {
		prev, cur := LevelBounds(levels[i-1]), LevelBounds(levels[i])
		if cur.MaxExpiration > prev.MaxExpiration {
			t.Errorf("%s MaxExpiration %v exceeds %s %v", levels[i], cur.MaxExpiration, levels[i-1], prev.MaxExpiration)
		}
		if cur.DefaultExpiration > prev.DefaultExpiration {
			t.Errorf("%s DefaultExpiration %v exceeds %s %v", levels[i], cur.DefaultExpiration, levels[i-1], prev.DefaultExpiration)
		}
		if cur.ExtensionGrant > prev.ExtensionGrant {
			t.Errorf("%s ExtensionGrant %v exceeds %s %v", levels[i], cur.ExtensionGrant, levels[i-1], prev.ExtensionGrant)
		}
		if cur.MaxExtensions > prev.MaxExtensions {
			t.Errorf("%s MaxExtensions %d exceeds %s %d", levels[i], cur.MaxExtensions, levels[i-1], prev.MaxExtensions)
		}
		if cur.GracePeriod > prev.GracePeriod {
			t.Errorf("%s GracePeriod %v exceeds %s %v", levels[i], cur.GracePeriod, levels[i-1], prev.GracePeriod)
		}
	}
}

func TestLevelBounds_UnknownFailsClosed(t *testing.T) {
	got := LevelBounds(SecurityLevel("bogus"))
	if got != levelBounds[LevelMaximum] {
		t.Errorf("unknown level bounds = %+v, want maximum bounds", got)
	}
}

func TestComputeExpiration(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		level     SecurityLevel
		class     DataClassification
		requested int
		want      time.Duration
	}{
		{"standard default", LevelStandard, ClassPublic, 0, 24 * time.Hour},
		{"standard explicit", LevelStandard, ClassPublic, 48, 48 * time.Hour},
		{"standard capped by level", LevelStandard, ClassPublic, 200, 72 * time.Hour},
		{"enhanced default", LevelEnhanced, ClassPublic, 0, 8 * time.Hour},
		{"maximum capped by level", LevelMaximum, ClassPublic, 24, 8 * time.Hour},
		{"confidential ceiling wins", LevelStandard, ClassConfidential, 72, 48 * time.Hour},
		{"restricted ceiling wins", LevelStandard, ClassRestricted, 24, 12 * time.Hour},
		{"restricted under ceiling", LevelStandard, ClassRestricted, 6, 6 * time.Hour},
		{"level stricter than internal", LevelMaximum, ClassInternal, 48, 8 * time.Hour},
		{"negative requested uses default", LevelStandard, ClassPublic, -3, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeExpiration(now, tt.level, tt.class, tt.requested)
			if want := now.Add(tt.want); !got.Equal(want) {
				t.Errorf("ComputeExpiration() = %v, want %v", got, want)
			}
		})
	}
}

func TestMaxAllowedExpiration(t *testing.T) {
	created := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := MaxAllowedExpiration(created, LevelEnhanced); !got.Equal(created.Add(24 * time.Hour)) {
		t.Errorf("MaxAllowedExpiration = %v", got)
	}
}
