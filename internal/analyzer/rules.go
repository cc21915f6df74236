package analyzer

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule is a deterministic classifier tried before the external capability.
// It returns ("", 0) when it does not apply.
type Rule interface {
	Name() string
	Classify(pc ProbeContext, raw string) (Outcome, float64)
}

// DefaultRules returns the built-in rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		&DontKnowRule{},
		&ExpectedAnswerRule{},
	}
}

// runRules returns the first rule verdict, or ("", 0, "") if none applies.
func runRules(rules []Rule, pc ProbeContext, raw string) (Outcome, float64, string) {
	for _, r := range rules {
		if out, conf := r.Classify(pc, raw); out != "" {
			return out, conf, r.Name()
		}
	}
	return "", 0, ""
}

var dontKnowPhrases = map[string]bool{
	"idk":            true,
	"i dont know":    true,
	"i don't know":   true,
	"i do not know":  true,
	"dont know":      true,
	"don't know":     true,
	"no idea":        true,
	"not sure":       true,
	"i'm not sure":   true,
	"im not sure":    true,
	"?":              true,
	"??":             true,
	"pass":           true,
	"skip":           true,
	"i give up":      true,
	"no clue":        true,
	"i have no idea": true,
}

// DontKnowRule treats an explicit "I don't know" as a gap.
type DontKnowRule struct{}

func (r *DontKnowRule) Name() string { return SourceRuleDontKnow }

func (r *DontKnowRule) Classify(_ ProbeContext, raw string) (Outcome, float64) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ".!")
	if dontKnowPhrases[s] {
		return Gap, 0.9
	}
	return "", 0
}

// ExpectedAnswerRule compares the response to the node's canonical answer.
// A match is mastery. A mismatch is a gap.
type ExpectedAnswerRule struct{}

func (r *ExpectedAnswerRule) Name() string { return SourceRuleExpected }

func (r *ExpectedAnswerRule) Classify(pc ProbeContext, raw string) (Outcome, float64) {
	if pc.ExpectedAnswer == "" || strings.TrimSpace(raw) == "" {
		return "", 0
	}
	if normalizeAnswer(raw) == normalizeAnswer(pc.ExpectedAnswer) {
		return Mastered, 0.95
	}
	return Gap, 0.85
}

// normalizeAnswer canonicalizes an answer for comparison:
//   - whitespace is trimmed and case folded
//   - thousands separators are dropped ("1,000" matches "1000")
//   - integers lose leading zeros ("007" matches "7")
//   - decimals lose trailing zeros ("3.50" matches "3.5")
//   - fractions reduce to lowest terms ("2/4" matches "1/2")
//   - quotient/remainder answers collapse spacing ("9 R 2" matches "9r2")
//
// Anything else is compared as folded text.
func normalizeAnswer(answer string) string {
	s := strings.ToLower(strings.TrimSpace(answer))
	s = strings.TrimSuffix(s, ".")
	if digitsWithCommas(s) {
		s = strings.ReplaceAll(s, ",", "")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if num, den, err := parseFraction(s); err == nil && den != 0 {
		if den < 0 {
			num, den = -num, -den
		}
		g := gcd(abs(num), den)
		return fmt.Sprintf("%d/%d", num/g, den/g)
	}
	if q, rem, ok := parseRemainder(s); ok {
		return fmt.Sprintf("%dr%d", q, rem)
	}
	return strings.Join(strings.Fields(s), " ")
}

func digitsWithCommas(s string) bool {
	if !strings.Contains(s, ",") {
		return false
	}
	for _, c := range s {
		if c != ',' && c != '.' && c != '-' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func parseFraction(s string) (int64, int64, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid fraction format: %q", s)
	}
	num, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid numerator: %w", err)
	}
	den, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid denominator: %w", err)
	}
	return num, den, nil
}

// parseRemainder parses "q r n" / "q R n" / "qrn".
func parseRemainder(s string) (int64, int64, bool) {
	compact := strings.Join(strings.Fields(s), "")
	q, rem, found := strings.Cut(compact, "r")
	if !found {
		return 0, 0, false
	}
	qn, err := strconv.ParseInt(q, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	rn, err := strconv.ParseInt(rem, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return qn, rn, true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
