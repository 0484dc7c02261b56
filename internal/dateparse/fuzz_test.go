package dateparse

import (
	"testing"
	"time"
)

// FuzzParseFrom checks that ParseFrom never panics and that whatever it
// claims to have resolved is a real date.
func FuzzParseFrom(f *testing.F) {
	for _, s := range []string{
		"today", "besok", "kemarin", "lusa", "senin", "jum'at", "minggu depan",
		"akhir bulan", "+1", "+-1", "+", "in 3 days", "2 minggu lagi",
		"2024-01-15", "31/12/2024", "99/99/9999", "", " ", "next",
	} {
		f.Add(s)
	}

	ref := time.Date(2024, 6, 12, 10, 30, 0, 0, time.UTC)
	f.Fuzz(func(t *testing.T, input string) {
		out := ParseFrom(input, ref)
		if isoPattern.MatchString(out) && out != input {
			if _, err := time.Parse(Layout, out); err != nil {
				t.Errorf("ParseFrom(%q) = %q, not a valid date", input, out)
			}
		}
	})
}
