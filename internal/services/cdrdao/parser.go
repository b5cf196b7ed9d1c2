package cdrdao

import (
	"regexp"
	"strconv"
	"strings"
)

// parseState is shared by the matchers of one Classifier.
type parseState struct {
	// totalFrames is the disc length learned from the leadout row of the
	// TOC table cdrdao prints before copying.
	totalFrames int
}

// matcher recognises one family of output lines. A match with a zero Kind
// means the line was consumed without producing an event.
type matcher func(line string, st *parseState) (Event, bool)

// Classifier turns cdrdao output lines into events. It is not safe for
// concurrent use; each rip owns one.
type Classifier struct {
	matchers    []matcher
	state       parseState
	lastPercent float64
	reported    bool
}

// NewClassifier returns a classifier with the read-cd matchers installed.
func NewClassifier() *Classifier {
	return &Classifier{
		matchers: []matcher{
			matchFatal,
			matchWarning,
			matchRecoveredError,
			matchLeadout,
			matchTrackStart,
			matchPosition,
			matchPercent,
		},
	}
}

// Classify interprets one line. Progress is clamped to [0,100] and values at
// or below the last reported percent are dropped so progress never moves
// backwards.
func (c *Classifier) Classify(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}
	for _, match := range c.matchers {
		ev, ok := match(line, &c.state)
		if !ok {
			continue
		}
		if ev.Kind == 0 {
			return Event{}, false
		}
		if ev.Kind == EventProgress {
			ev.Percent = clampPercent(ev.Percent)
			if c.reported && ev.Percent <= c.lastPercent {
				return Event{}, false
			}
			c.lastPercent = ev.Percent
			c.reported = true
		}
		return ev, true
	}
	return Event{}, false
}

// LastPercent returns the highest progress reported so far.
func (c *Classifier) LastPercent() float64 {
	return c.lastPercent
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

var (
	fatalPattern     = regexp.MustCompile(`^ERROR:\s*(.*)$`)
	warningPattern   = regexp.MustCompile(`^WARNING:\s*(.*)$`)
	recoveredPattern = regexp.MustCompile(`(?i)(\bretry(ing)?\b|\b\d+\s+(C2|L-EC)\s+errors?\b)`)
	leadoutPattern   = regexp.MustCompile(`^Leadout\s+.*?(\d{1,3}:\d{2}:\d{2})(?:\(\s*(\d+)\))?`)
	trackPattern     = regexp.MustCompile(`^(?:Copying (?:data track|audio tracks?)|Track) (\d+)\b`)
	positionPattern  = regexp.MustCompile(`^(\d{1,3}:\d{2}:\d{2})$`)
	percentPattern   = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z ]*:\s*)?(\d{1,3}(?:\.\d+)?)\s*%$`)
)

func matchFatal(line string, _ *parseState) (Event, bool) {
	m := fatalPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	message := strings.TrimSpace(m[1])
	if message == "" {
		message = "unspecified error"
	}
	return Event{Kind: EventFatal, Message: message, Class: classifyFatal(message)}, true
}

func classifyFatal(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "medium not present", "no disc", "not ready", "tray open"):
		return ClassDiscAbsent
	case containsAny(lower, "busy"):
		return ClassDeviceBusy
	case containsAny(lower, "cannot open", "cannot setup device", "no such device", "permission denied"):
		return ClassDeviceUnavailable
	case containsAny(lower, "read error", "unrecoverable", "l-ec", "sector"):
		return ClassUnreadableSector
	default:
		return ClassDeviceError
	}
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func matchWarning(line string, _ *parseState) (Event, bool) {
	m := warningPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	message := strings.TrimSpace(m[1])
	if message == "" {
		return Event{}, true
	}
	return Event{Kind: EventWarning, Message: message}, true
}

func matchRecoveredError(line string, _ *parseState) (Event, bool) {
	if !recoveredPattern.MatchString(line) {
		return Event{}, false
	}
	return Event{Kind: EventWarning, Message: line}, true
}

func matchLeadout(line string, st *parseState) (Event, bool) {
	m := leadoutPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	frames := 0
	if m[2] != "" {
		frames, _ = strconv.Atoi(m[2])
	}
	if frames <= 0 {
		frames, _ = ParseMSF(m[1])
	}
	if frames > 0 {
		st.totalFrames = frames
	}
	return Event{}, true
}

func matchTrackStart(line string, _ *parseState) (Event, bool) {
	m := trackPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return Event{}, false
	}
	return Event{Kind: EventTrackStarted, Track: n}, true
}

// matchPosition converts a bare "mm:ss:ff" read position into a percentage
// of the disc length. Positions seen before the leadout are consumed.
func matchPosition(line string, st *parseState) (Event, bool) {
	m := positionPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	frames, err := ParseMSF(m[1])
	if err != nil || st.totalFrames <= 0 {
		return Event{}, true
	}
	return Event{Kind: EventProgress, Percent: float64(frames) * 100 / float64(st.totalFrames)}, true
}

func matchPercent(line string, _ *parseState) (Event, bool) {
	m := percentPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Event{}, false
	}
	return Event{Kind: EventProgress, Percent: p}, true
}
