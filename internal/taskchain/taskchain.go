// Package taskchain maps the engine's internal task chain tokens to the
// stable slugs used as task kinds by the task store and the UI.
package taskchain

import (
	"errors"
	"fmt"
)

// ErrUnknownToken is returned when a chain token or slug has no mapping.
var ErrUnknownToken = errors.New("taskchain: unknown chain token")

// tokens is the canonical token -> slug table.
var tokens = map[string]string{
	"StartUp":   "startup",
	"Fight":     "fight",
	"Recruit":   "recruit",
	"Infrast":   "infrast",
	"Visit":     "visit",
	"Mall":      "mall",
	"Award":     "award",
	"Roguelike": "rogue",
}

// slugs is the reverse of tokens, built once at init.
var slugs = func() map[string]string {
	m := make(map[string]string, len(tokens))
	for token, slug := range tokens {
		m[slug] = token
	}
	return m
}()

// Translate returns the slug for an engine chain token ("Roguelike" -> "rogue").
func Translate(token string) (string, error) {
	slug, ok := tokens[token]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	return slug, nil
}

// Token returns the engine task type for a slug ("rogue" -> "Roguelike").
func Token(slug string) (string, error) {
	token, ok := slugs[slug]
	if !ok {
		return "", fmt.Errorf("%w: no token for slug %q", ErrUnknownToken, slug)
	}
	return token, nil
}

// IsEngineTask reports whether a task kind is executed by the native engine.
// Kinds such as "emulator" and "shutdown" are handled outside the engine.
func IsEngineTask(slug string) bool {
	_, ok := slugs[slug]
	return ok
}
