package taskchain

import (
	"errors"
	"testing"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"StartUp", "startup"},
		{"Fight", "fight"},
		{"Recruit", "recruit"},
		{"Infrast", "infrast"},
		{"Visit", "visit"},
		{"Mall", "mall"},
		{"Award", "award"},
		{"Roguelike", "rogue"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := Translate(tt.token)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Translate(%q) = %q, want %q", tt.token, got, tt.want)
			}

			back, err := Token(got)
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if back != tt.token {
				t.Errorf("Token(%q) = %q, want %q", got, back, tt.token)
			}
		})
	}
}

func TestTranslate_Unknown(t *testing.T) {
	for _, token := range []string{"", "Debug", "startup", "roguelike"} {
		if _, err := Translate(token); !errors.Is(err, ErrUnknownToken) {
			t.Errorf("Translate(%q) error = %v, want ErrUnknownToken", token, err)
		}
	}
}

func TestToken_Unknown(t *testing.T) {
	if _, err := Token("emulator"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("Token(emulator) error = %v, want ErrUnknownToken", err)
	}
}

func TestIsEngineTask(t *testing.T) {
	tests := map[string]bool{
		"startup":  true,
		"rogue":    true,
		"emulator": false,
		"game":     false,
		"shutdown": false,
	}
	for slug, want := range tests {
		if got := IsEngineTask(slug); got != want {
			t.Errorf("IsEngineTask(%q) = %v, want %v", slug, got, want)
		}
	}
}
