// Package render replaces literal placeholder tokens in template text.
package render

import (
	"fmt"
	"strings"
)

// Substitution pairs a literal token with the value that replaces it.
type Substitution struct {
	Token string
	Value string
}

// TokenCount reports how many times a token was found by its substitution step.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// ResidualTokensError is returned when tokens remain in the rendered text.
type ResidualTokensError struct {
	Tokens []string
}

func (e *ResidualTokensError) Error() string {
	return fmt.Sprintf("tokens left unreplaced: %s", strings.Join(e.Tokens, ", "))
}

// Apply replaces every occurrence of each token with its value. Pairs are
// applied in order, each one to the output of the previous step, so a value
// containing a later token is replaced again.
func Apply(text string, subs []Substitution) string {
	result := text
	for _, sub := range subs {
		if sub.Token == "" {
			continue
		}
		result = strings.ReplaceAll(result, sub.Token, sub.Value)
	}
	return result
}

// Count walks the same steps as Apply and records how many occurrences each
// step replaced.
func Count(text string, subs []Substitution) []TokenCount {
	counts := make([]TokenCount, 0, len(subs))
	current := text
	for _, sub := range subs {
		if sub.Token == "" {
			counts = append(counts, TokenCount{Token: sub.Token})
			continue
		}
		counts = append(counts, TokenCount{
			Token: sub.Token,
			Count: strings.Count(current, sub.Token),
		})
		current = strings.ReplaceAll(current, sub.Token, sub.Value)
	}
	return counts
}

// Residual returns the tokens that still appear in text, in the order given.
func Residual(text string, tokens []string) []string {
	var left []string
	for _, token := range tokens {
		if token != "" && strings.Contains(text, token) {
			left = append(left, token)
		}
	}
	return left
}

// Tokens extracts the token column of a substitution list.
func Tokens(subs []Substitution) []string {
	tokens := make([]string, len(subs))
	for i, sub := range subs {
		tokens[i] = sub.Token
	}
	return tokens
}
