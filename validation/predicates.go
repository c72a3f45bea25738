package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	formversion "github.com/goliatone/go-formversion"
)

const (
	wholeNumberPattern   = `[0-9]+`
	decimalNumberPattern = `[0-9]*\.[0-9]+`
	decimalUpTo6Pattern  = `[0-9]+(\.[0-9]{1,6})?`
	isoDateLayout        = "2006-01-02"
	emptyMultiSelect     = "[]"
	requiredDisabled     = "false"
)

var lineBreaks = regexp.MustCompile(`\r\n|\r|\n`)

var plainInteger = regexp.MustCompile(`^[0-9]+$`)

// patternCache holds the compiled rule expressions of one Validator. Rules
// come from templates and repeat across every answer of a form.
type patternCache struct {
	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
}

func newPatternCache() *patternCache {
	return &patternCache{compiled: make(map[string]*regexp.Regexp)}
}

func (c *patternCache) fullMatch(pattern, value string) (bool, error) {
	c.mu.RLock()
	re, ok := c.compiled[pattern]
	c.mu.RUnlock()
	if !ok {
		var err error
		re, err = regexp.Compile(`^(?:` + pattern + `)$`)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		c.mu.Lock()
		c.compiled[pattern] = re
		c.mu.Unlock()
	}
	return re.MatchString(value), nil
}

func (c *patternCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.compiled)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func parseIntRule(rule string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(rule), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rule %q is not an integer: %w", rule, err)
	}
	return n, nil
}

func visibleLength(answer string) int {
	return utf8.RuneCountInString(lineBreaks.ReplaceAllString(answer, ""))
}

func required(answer, rule string) (bool, error) {
	if strings.TrimSpace(rule) == requiredDisabled {
		return true, nil
	}
	return !isBlank(answer) && strings.TrimSpace(answer) != emptyMultiSelect, nil
}

func maxSize(answer, rule string) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	limit, err := parseIntRule(rule)
	if err != nil {
		return false, err
	}
	return int64(visibleLength(answer)) <= limit, nil
}

func minSize(answer, rule string) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	limit, err := parseIntRule(rule)
	if err != nil {
		return false, err
	}
	return int64(visibleLength(answer)) >= limit, nil
}

func compareValue(answer, rule string, ok func(value, limit int64) bool) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	limit, err := parseIntRule(rule)
	if err != nil {
		return false, err
	}
	if !plainInteger.MatchString(answer) {
		return false, nil
	}
	value, err := strconv.ParseInt(answer, 10, 64)
	if err != nil {
		return false, nil
	}
	return ok(value, limit), nil
}

func maxValue(answer, rule string) (bool, error) {
	return compareValue(answer, rule, func(value, limit int64) bool { return value <= limit })
}

func minValue(answer, rule string) (bool, error) {
	return compareValue(answer, rule, func(value, limit int64) bool { return value >= limit })
}

func patternOrDefault(rule, fallback string) string {
	if strings.TrimSpace(rule) == "" {
		return fallback
	}
	return rule
}

func (c *patternCache) wholeNumber(answer, rule string) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	return c.fullMatch(patternOrDefault(rule, wholeNumberPattern), answer)
}

func (c *patternCache) decimalNumber(answer, rule string) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	if plainInteger.MatchString(answer) {
		return true, nil
	}
	return c.fullMatch(patternOrDefault(rule, decimalNumberPattern), answer)
}

func (c *patternCache) decimalNumberUpTo6Decimals(answer, rule string) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	return c.fullMatch(patternOrDefault(rule, decimalUpTo6Pattern), answer)
}

func maxCarriageReturn(answer, rule string) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	limit, err := parseIntRule(rule)
	if err != nil {
		return false, err
	}
	return int64(len(lineBreaks.FindAllStringIndex(answer, -1))) <= limit, nil
}

func parseDate(answer string) (time.Time, bool) {
	d, err := time.Parse(isoDateLayout, strings.TrimSpace(answer))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func date(answer, _ string) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	_, ok := parseDate(answer)
	return ok, nil
}

// lowerDateBoundary accepts dates on or after submitted + rule days.
func lowerDateBoundary(answer, rule string, submitted time.Time) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	days, err := parseIntRule(rule)
	if err != nil {
		return false, err
	}
	d, ok := parseDate(answer)
	if !ok {
		return false, nil
	}
	return submitted.AddDate(0, 0, int(days)-1).Before(d), nil
}

// upperDateBoundary accepts dates on or before submitted + rule days.
func upperDateBoundary(answer, rule string, submitted time.Time) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	days, err := parseIntRule(rule)
	if err != nil {
		return false, err
	}
	d, ok := parseDate(answer)
	if !ok {
		return false, nil
	}
	return submitted.AddDate(0, 0, int(days)+1).After(d), nil
}

func optionSet(q formversion.MergedFormQuestion) map[string]struct{} {
	texts := q.OptionTexts()
	set := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		set[norm.NFC.String(text)] = struct{}{}
	}
	return set
}

func selectOne(answer string, q formversion.MergedFormQuestion) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	_, ok := optionSet(q)[norm.NFC.String(answer)]
	return ok, nil
}

func selectOneOrMany(answer string, q formversion.MergedFormQuestion) (bool, error) {
	if isBlank(answer) {
		return true, nil
	}
	var selected []string
	if err := json.Unmarshal([]byte(answer), &selected); err != nil || selected == nil {
		return false, nil
	}
	options := optionSet(q)
	for _, s := range selected {
		if _, ok := options[norm.NFC.String(s)]; !ok {
			return false, nil
		}
	}
	return true, nil
}
