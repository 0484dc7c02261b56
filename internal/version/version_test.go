package version

import "testing"

func TestIsDev(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	tests := []struct {
		version  string
		expected bool
	}{
		{"dev", true},
		{"1.0.0", false},
		{"v1.2.3", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			Version = tt.version
			if got := IsDev(); got != tt.expected {
				t.Errorf("IsDev() with Version=%q = %v, want %v", tt.version, got, tt.expected)
			}
		})
	}
}

func TestFull(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"dev", "none", "unknown", "erpdesk version dev (built from source)"},
		{"1.2.3", "none", "unknown", "erpdesk version 1.2.3"},
		{"1.2.3", "abc1234", "unknown", "erpdesk version 1.2.3 (abc1234)"},
		{"1.2.3", "abc1234", "2026-10-01", "erpdesk version 1.2.3 (abc1234, 2026-10-01)"},
	}
	for _, tt := range tests {
		Version, Commit, Date = tt.version, tt.commit, tt.date
		if got := Full(); got != tt.want {
			t.Errorf("Full() = %q, want %q", got, tt.want)
		}
	}
}

func TestUserAgent(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "0.4.0"
	if got, want := UserAgent(), "erpdesk/0.4.0 (+https://github.com/erpdesk/erpdesk)"; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
