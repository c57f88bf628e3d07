package virtual

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/trezcool/mahadhurio/core"
)

// Sub-check tags surfaced in StartResult.Errors so callers can tell the
// lecturer which part of the claim failed.
const (
	CheckMeetingLink = "meeting_link"
	CheckTimeWindow  = "time_window"
)

type (
	StartResult struct {
		Verified            bool     `json:"verified"`
		TimeWindowVerified  bool     `json:"time_window_verified"`
		MeetingLinkVerified bool     `json:"meeting_link_verified"`
		Errors              []string `json:"errors,omitempty"`

		// DeviceFingerprint is derived for storage, not verification.
		DeviceFingerprint string `json:"device_fingerprint"`
	}

	DurationResult struct {
		Verified        bool    `json:"verified"`
		OverlapFraction float64 `json:"overlap_fraction"`
	}

	// Verifier validates virtual-session attendance claims against the
	// scheduled slot. Pure; safe for concurrent use.
	Verifier struct {
		graceBefore time.Duration
		graceAfter  time.Duration
		minOverlap  float64
	}
)

func NewVerifier(conf *core.Config) *Verifier {
	return &Verifier{
		graceBefore: conf.Virtual.GraceBefore,
		graceAfter:  conf.Virtual.GraceAfter,
		minOverlap:  conf.Virtual.MinOverlap,
	}
}

// VerifyStart validates the session-start claim: the meeting link must be a
// syntactically valid URL and `now` must fall within the scheduled slot
// extended by the grace periods.
func (v *Verifier) VerifyStart(meetingLink string, scheduledStart, scheduledEnd, now time.Time, userAgent, ipAddress string) StartResult {
	res := StartResult{
		MeetingLinkVerified: validMeetingLink(meetingLink),
		DeviceFingerprint:   Fingerprint(userAgent, ipAddress),
	}

	windowStart := scheduledStart.Add(-v.graceBefore)
	windowEnd := scheduledEnd.Add(v.graceAfter)
	res.TimeWindowVerified = !now.Before(windowStart) && !now.After(windowEnd)

	if !res.MeetingLinkVerified {
		res.Errors = append(res.Errors, CheckMeetingLink)
	}
	if !res.TimeWindowVerified {
		res.Errors = append(res.Errors, CheckTimeWindow)
	}
	res.Verified = res.MeetingLinkVerified && res.TimeWindowVerified
	return res
}

// VerifyDuration checks that the actual session overlapped the scheduled slot
// for at least the minimum fraction of the scheduled length. Guards against
// sessions started and immediately ended to game the record.
func (v *Verifier) VerifyDuration(sessionStart, sessionEnd, scheduledStart, scheduledEnd time.Time) DurationResult {
	scheduled := scheduledEnd.Sub(scheduledStart)
	if scheduled <= 0 {
		return DurationResult{}
	}

	overlap := overlapDuration(sessionStart, sessionEnd, scheduledStart, scheduledEnd)
	fraction := float64(overlap) / float64(scheduled)
	return DurationResult{
		Verified:        fraction >= v.minOverlap,
		OverlapFraction: fraction,
	}
}

// Fingerprint derives a stable device fingerprint from request metadata.
func Fingerprint(userAgent, ipAddress string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + ipAddress))
	return hex.EncodeToString(sum[:])
}

func validMeetingLink(link string) bool {
	if link == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func overlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}
