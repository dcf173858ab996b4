package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Entity keys produced by ExtractEntities.
const (
	EntityNumber     = "number"
	EntityNumbers    = "numbers"
	EntityExpression = "expression"
	EntityTime       = "time"
	EntityDate       = "date"
	EntityDuration   = "duration"
	EntityComponent  = "component"
	EntityTopic      = "topic"
)

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40,
	"fifty": 50, "sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	"hundred": 100, "thousand": 1000,
}

// mathWords may appear inside a spoken arithmetic expression.
var mathWords = map[string]bool{
	"plus": true, "minus": true, "times": true, "x": true, "multiplied": true,
	"divided": true, "by": true, "over": true, "of": true, "percent": true,
	"+": true, "-": true, "*": true, "/": true, "×": true, "÷": true, "%": true,
	"(": true, ")": true,
}

var componentWords = map[string]string{
	"battery": "battery", "charge": "battery", "charging": "battery", "charged": "battery",
	"power": "battery", "wifi": "network", "wi-fi": "network", "network": "network",
	"internet": "network", "connection": "network", "connected": "network", "signal": "network",
	"online": "network", "offline": "network", "bluetooth": "bluetooth", "storage": "storage",
	"disk": "storage", "space": "storage", "memory": "memory", "ram": "memory",
	"volume": "volume", "brightness": "brightness",
}

var dateWords = map[string]bool{
	"today": true, "tomorrow": true, "yesterday": true, "tonight": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true, "weekend": true,
}

var (
	clockPattern    = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b|\b(\d{1,2}:\d{2})\b|\b(noon|midnight)\b`)
	durationPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?|a|an|one|two|three|four|five|ten|fifteen|twenty|thirty|forty|sixty)\s+(second|minute|hour|day|week)s?\b`)
	topicPatterns   = []struct {
		topic   string
		pattern *regexp.Regexp
	}{
		{"identity", regexp.MustCompile(`\b(who are you|your name|what are you)\b`)},
		{"capabilities", regexp.MustCompile(`\b(what can you do|help|how do you work)\b`)},
		{"privacy", regexp.MustCompile(`\b(privacy|my data|listening|record(ing)?)\b`)},
		{"version", regexp.MustCompile(`\b(version|update)\b`)},
	}
)

// parseNumber accepts digits ("42", "3.5") and single number words ("seven").
func parseNumber(tok string) (float64, bool) {
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return v, true
	}
	if v, ok := numberWords[tok]; ok {
		return float64(v), true
	}
	return 0, false
}

// ExtractEntities runs over the normalized tokens and returns the named slots
// it recognizes. It never fails; unrecognized input yields an empty map.
func ExtractEntities(n Normalized) Entities {
	entities := make(Entities)
	if n.Empty() {
		return entities
	}

	var numbers []string
	for _, tok := range n.Tokens {
		if v, ok := parseNumber(tok); ok {
			numbers = append(numbers, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	if len(numbers) > 0 {
		entities[EntityNumber] = numbers[0]
		entities[EntityNumbers] = strings.Join(numbers, ",")
	}

	if expr := longestExpression(n.Tokens); expr != "" {
		entities[EntityExpression] = expr
	}

	if m := clockPattern.FindString(n.Text); m != "" {
		entities[EntityTime] = m
	}
	if m := durationPattern.FindString(n.Text); m != "" {
		entities[EntityDuration] = m
	}
	for _, tok := range n.Tokens {
		if dateWords[tok] {
			entities[EntityDate] = tok
			break
		}
	}
	for _, tok := range n.Tokens {
		if c, ok := componentWords[tok]; ok {
			entities[EntityComponent] = c
			break
		}
	}
	for _, tp := range topicPatterns {
		if tp.pattern.MatchString(n.Text) {
			entities[EntityTopic] = tp.topic
			break
		}
	}
	return entities
}

// longestExpression returns the longest run of numbers and arithmetic words
// that contains at least two numbers and one operator.
func longestExpression(tokens []string) string {
	best := ""
	bestLen := 0
	for start := 0; start < len(tokens); start++ {
		end := start
		for end < len(tokens) && isExpressionToken(tokens[end]) {
			end++
		}
		// Trailing connectors ("of", "by") belong to the next clause.
		for end > start && (tokens[end-1] == "by" || tokens[end-1] == "of") {
			end--
		}
		if end-start <= bestLen {
			continue
		}
		nums, ops := 0, 0
		for _, tok := range tokens[start:end] {
			if _, ok := parseNumber(tok); ok {
				nums++
			} else if tok != "by" && tok != "(" && tok != ")" {
				ops++
			}
		}
		if nums >= 2 && ops >= 1 {
			best = strings.Join(tokens[start:end], " ")
			bestLen = end - start
		}
	}
	return best
}

func isExpressionToken(tok string) bool {
	if _, ok := parseNumber(tok); ok {
		return true
	}
	return mathWords[tok]
}
