package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderPrefix   = "<"
	choicePlaceholderSuffix   = ">"
	choiceSeparatorLiteral    = "|"
	choiceListSeparator       = ", "
	choiceUsageEmptyTemplate  = "`%s`"
	choiceUsageFullTemplate   = "`%s` %s"
	unsupportedChoiceTemplate = "unsupported %s %q (expected one of %s)"
)

// ChoiceSet is a closed list of values accepted by a string flag, one of which is the default.
// Values are compared case-insensitively and keep the spelling they were registered with.
type ChoiceSet struct {
	subject       string
	defaultChoice string
	choices       []string
}

// NewChoiceSet trims choices and drops blank or repeated entries.
func NewChoiceSet(subject string, defaultChoice string, choices []string) ChoiceSet {
	uniqueChoices := make([]string, 0, len(choices))
	seenChoices := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		if len(trimmedChoice) == 0 {
			continue
		}
		normalizedChoice := strings.ToLower(trimmedChoice)
		if _, seen := seenChoices[normalizedChoice]; seen {
			continue
		}
		seenChoices[normalizedChoice] = struct{}{}
		uniqueChoices = append(uniqueChoices, trimmedChoice)
	}

	return ChoiceSet{
		subject:       subject,
		defaultChoice: strings.TrimSpace(defaultChoice),
		choices:       uniqueChoices,
	}
}

// Choices returns the accepted values in registration order.
func (set ChoiceSet) Choices() []string {
	return append([]string(nil), set.choices...)
}

// Usage renders the choices as a placeholder with the default capitalized, followed by description.
func (set ChoiceSet) Usage(description string) string {
	placeholder := set.placeholder()
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

// Resolve returns the registered spelling of candidate. A blank candidate resolves to the default.
func (set ChoiceSet) Resolve(candidate string) (string, error) {
	normalizedCandidate := strings.ToLower(strings.TrimSpace(candidate))
	if len(normalizedCandidate) == 0 && len(set.defaultChoice) > 0 {
		normalizedCandidate = strings.ToLower(set.defaultChoice)
	}

	for _, choice := range set.choices {
		if strings.ToLower(choice) == normalizedCandidate {
			return choice, nil
		}
	}
	return "", fmt.Errorf(unsupportedChoiceTemplate, set.subject, candidate, strings.Join(set.choices, choiceListSeparator))
}

func (set ChoiceSet) placeholder() string {
	normalizedDefault := strings.ToLower(set.defaultChoice)
	displayedChoices := make([]string, 0, len(set.choices))
	for _, choice := range set.choices {
		if len(normalizedDefault) > 0 && strings.ToLower(choice) == normalizedDefault {
			displayedChoices = append(displayedChoices, strings.ToUpper(choice))
			continue
		}
		displayedChoices = append(displayedChoices, choice)
	}
	return choicePlaceholderPrefix + strings.Join(displayedChoices, choiceSeparatorLiteral) + choicePlaceholderSuffix
}
