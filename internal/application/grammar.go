package application

import (
	"regexp"
	"strings"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/domain"
)

// The hub answers to "hey mu". Continuous recognition mangles short
// names freely, so the variants below are the misrecognitions observed
// often enough to register. Matched anywhere in the utterance.
var wakePhrases = []string{
	"hey mu",
	"hey mew",
	"hey moo",
	"hey new",
	"amu",
}

// A command that leads with an imperative verb counts as a wake trigger
// on its own, so "turn off the heater" works without the wake word.
var imperativePrefixes = []string{
	"turn",
	"switch",
	"start",
	"stop",
	"shut",
	"shutdown",
}

// Per-relay trigger words: ordinal name, spoken/digit number, and the
// room label. Checked relay 0 through relay 3; the first relay whose
// list matches wins, so ambiguous utterances resolve to the lowest id.
var relayPhrases = [domain.RelayCount][]string{
	{"relay 1", "relay one", "first", "one", "living room"},
	{"relay 2", "relay two", "second", "two", "bedroom"},
	{"relay 3", "relay three", "third", "three", "kitchen"},
	{"relay 4", "relay four", "fourth", "four", "heater"},
}

// Off-intent is tested before on-intent: an utterance containing both
// resolves to off.
var (
	offWords = []string{"off", "stop", "kill", "deactivate", "shutdown"}
	onWords  = []string{"on", "start", "active", "enable", "engage"}
)

var (
	relayMatchers [domain.RelayCount][]*regexp.Regexp
	offMatcher    *regexp.Regexp
	onMatcher     *regexp.Regexp
)

func init() {
	for i, phrases := range relayPhrases {
		for _, p := range phrases {
			relayMatchers[i] = append(relayMatchers[i], wordMatcher(p))
		}
	}
	offMatcher = regexp.MustCompile(`\b(` + strings.Join(offWords, "|") + `)\b`)
	onMatcher = regexp.MustCompile(`\b(` + strings.Join(onWords, "|") + `)\b`)
}

func wordMatcher(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// normalizeUtterance lowers and trims recognized text before matching.
func normalizeUtterance(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// isWakeTrigger reports whether normalized text should (re)arm the
// awake window: either a wake-phrase variant appears anywhere, or the
// utterance leads with an imperative verb.
func isWakeTrigger(text string) bool {
	for _, w := range wakePhrases {
		if strings.Contains(text, w) {
			return true
		}
	}
	for _, p := range imperativePrefixes {
		if text == p || strings.HasPrefix(text, p+" ") {
			return true
		}
	}
	return false
}

// ParseCommand extracts a relay command from normalized text. Both a
// relay reference and an action word must be present; otherwise the
// utterance yields nothing and is silently dropped.
func ParseCommand(text string) (domain.VoiceCommand, bool) {
	relay := -1
	for i, matchers := range relayMatchers {
		for _, m := range matchers {
			if m.MatchString(text) {
				relay = i
				break
			}
		}
		if relay >= 0 {
			break
		}
	}
	if relay < 0 {
		return domain.VoiceCommand{}, false
	}

	switch {
	case offMatcher.MatchString(text):
		return domain.VoiceCommand{Relay: relay, Action: domain.ActionOff}, true
	case onMatcher.MatchString(text):
		return domain.VoiceCommand{Relay: relay, Action: domain.ActionOn}, true
	default:
		return domain.VoiceCommand{}, false
	}
}
