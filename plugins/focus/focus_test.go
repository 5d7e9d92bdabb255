package focus

import (
	"testing"
)

func TestParseFocusArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		minutes int
		tag     string
		commit  bool
		wantErr bool
	}{
		{name: "no args uses default", args: nil, minutes: 25, tag: "", commit: true},
		{name: "minutes only", args: []string{"45"}, minutes: 45, tag: "", commit: true},
		{name: "minutes and tag", args: []string{"30", "deep", "work"}, minutes: 30, tag: "deep work", commit: true},
		{name: "explicit phone", args: []string{"30", "reading", "phone"}, minutes: 30, tag: "reading", commit: true},
		{name: "nophone opts out", args: []string{"30", "calls", "nophone"}, minutes: 30, tag: "calls", commit: false},
		{name: "nophone without tag", args: []string{"15", "nophone"}, minutes: 15, tag: "", commit: false},
		{name: "phone token is case-insensitive", args: []string{"15", "NOPHONE"}, minutes: 15, tag: "", commit: false},
		{name: "zero minutes", args: []string{"0"}, wantErr: true},
		{name: "too long", args: []string{"241"}, wantErr: true},
		{name: "not a number", args: []string{"soon"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			minutes, tag, commit, err := parseFocusArgs(tc.args, 25)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d %q %v", minutes, tag, commit)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFocusArgs: %v", err)
			}
			if minutes != tc.minutes || tag != tc.tag || commit != tc.commit {
				t.Fatalf("got %d %q %v, want %d %q %v",
					minutes, tag, commit, tc.minutes, tc.tag, tc.commit)
			}
		})
	}
}
