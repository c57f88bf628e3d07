package virtual

import (
	"testing"
	"time"

	"github.com/trezcool/mahadhurio/core"
)

var (
	schedStart = time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	schedEnd   = time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
)

func newTestVerifier() *Verifier {
	conf := &core.Config{
		Virtual: core.VirtualConfig{
			GraceBefore: 15 * time.Minute,
			GraceAfter:  15 * time.Minute,
			MinOverlap:  0.7,
		},
	}
	return NewVerifier(conf)
}

func TestVerifyStart(t *testing.T) {
	v := newTestVerifier()
	link := "https://meet.example.com/abc-defg-hij"

	tests := []struct {
		name         string
		link         string
		now          time.Time
		wantVerified bool
		wantLink     bool
		wantWindow   bool
	}{
		{name: "on time with valid link", link: link, now: schedStart, wantVerified: true, wantLink: true, wantWindow: true},
		{name: "within grace before", link: link, now: schedStart.Add(-10 * time.Minute), wantVerified: true, wantLink: true, wantWindow: true},
		{name: "within grace after", link: link, now: schedEnd.Add(14 * time.Minute), wantVerified: true, wantLink: true, wantWindow: true},
		{name: "too early", link: link, now: schedStart.Add(-16 * time.Minute), wantLink: true},
		{name: "too late", link: link, now: schedEnd.Add(time.Hour), wantLink: true},
		{name: "empty link on time", link: "", now: schedStart, wantWindow: true},
		{name: "empty link too late", link: "", now: schedEnd.Add(time.Hour)},
		{name: "not a url", link: "not a url", now: schedStart, wantWindow: true},
		{name: "missing scheme", link: "meet.example.com/abc", now: schedStart, wantWindow: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.VerifyStart(tt.link, schedStart, schedEnd, tt.now, "Mozilla/5.0", "10.0.0.1")
			if res.Verified != tt.wantVerified {
				t.Errorf("VerifyStart() verified = %v, want %v (errors %v)", res.Verified, tt.wantVerified, res.Errors)
			}
			if res.MeetingLinkVerified != tt.wantLink {
				t.Errorf("VerifyStart() link verified = %v, want %v", res.MeetingLinkVerified, tt.wantLink)
			}
			if res.TimeWindowVerified != tt.wantWindow {
				t.Errorf("VerifyStart() window verified = %v, want %v", res.TimeWindowVerified, tt.wantWindow)
			}
			if res.DeviceFingerprint == "" {
				t.Error("VerifyStart() returned empty fingerprint")
			}
			if !tt.wantVerified && len(res.Errors) == 0 {
				t.Error("VerifyStart() failed without reporting sub-checks")
			}
		})
	}
}

func TestVerifyDuration(t *testing.T) {
	v := newTestVerifier()

	tests := []struct {
		name         string
		start, end   time.Time
		wantVerified bool
	}{
		{name: "full session", start: schedStart, end: schedEnd, wantVerified: true},
		{name: "70 percent overlap", start: schedStart, end: schedStart.Add(84 * time.Minute), wantVerified: true},
		{name: "just under threshold", start: schedStart, end: schedStart.Add(83 * time.Minute)},
		{name: "started early ended late", start: schedStart.Add(-time.Hour), end: schedEnd.Add(time.Hour), wantVerified: true},
		{name: "end before start", start: schedEnd, end: schedStart},
		{name: "end equals start", start: schedStart, end: schedStart},
		{name: "immediately ended", start: schedStart, end: schedStart.Add(time.Minute)},
		{name: "outside the slot entirely", start: schedEnd.Add(time.Hour), end: schedEnd.Add(3 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.VerifyDuration(tt.start, tt.end, schedStart, schedEnd)
			if res.Verified != tt.wantVerified {
				t.Errorf("VerifyDuration() verified = %v, want %v (overlap %f)", res.Verified, tt.wantVerified, res.OverlapFraction)
			}
		})
	}
}

func TestFingerprintStable(t *testing.T) {
	fp1 := Fingerprint("Mozilla/5.0", "10.0.0.1")
	fp2 := Fingerprint("Mozilla/5.0", "10.0.0.1")
	if fp1 != fp2 {
		t.Errorf("Fingerprint() not stable: %s != %s", fp1, fp2)
	}
	if fp3 := Fingerprint("Mozilla/5.0", "10.0.0.2"); fp3 == fp1 {
		t.Error("Fingerprint() identical for different devices")
	}
}
