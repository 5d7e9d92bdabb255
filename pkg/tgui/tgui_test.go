package tgui

import (
	"strings"
	"testing"
)

func TestEscAndTags(t *testing.T) {
	t.Parallel()

	if got := Esc("<b> & stuff").String(); got != "&lt;b&gt; &amp; stuff" {
		t.Errorf("Esc = %q", got)
	}
	if got := B("x<y").String(); got != "<b>x&lt;y</b>" {
		t.Errorf("B = %q", got)
	}
	if got := Code("a&b").String(); got != "<code>a&amp;b</code>" {
		t.Errorf("Code = %q", got)
	}
	if got := Pre("line1\n<tag>").String(); got != "<pre>line1\n&lt;tag&gt;</pre>" {
		t.Errorf("Pre = %q", got)
	}
	if got := Link("a<b", "https://example.com/?q=1&r=2").String(); !strings.Contains(got, "&amp;r=2") || !strings.Contains(got, "a&lt;b") {
		t.Errorf("Link = %q", got)
	}
}

func TestJoinHSkipsBlank(t *testing.T) {
	t.Parallel()

	got := JoinH("\n", B("a"), "", Esc("b"), H("  ")).String()
	if got != "<b>a</b>\nb" {
		t.Errorf("JoinH = %q", got)
	}
	if JoinH(",") != "" {
		t.Error("empty JoinH should be empty")
	}
}

func TestCallbackData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		plugin, action, payload string
		want                    string
	}{
		{"focus", "pfree", "1:42", "focus:pfree:1:42"},
		{"focus", "pfree", "", "focus:pfree"},
		{" sys ", " ping ", "", "sys:ping"},
	}
	for _, tc := range tests {
		if got := Data(tc.plugin, tc.action, tc.payload); got != tc.want {
			t.Errorf("Data(%q,%q,%q) = %q, want %q", tc.plugin, tc.action, tc.payload, got, tc.want)
		}
	}

	plugin, action, payload := SplitData("focus:pfree:1:42")
	if plugin != "focus" || action != "pfree" || payload != "1:42" {
		t.Errorf("SplitData = %q %q %q", plugin, action, payload)
	}
	plugin, action, payload = SplitData("sys:ping")
	if plugin != "sys" || action != "ping" || payload != "" {
		t.Errorf("SplitData = %q %q %q", plugin, action, payload)
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"héllo", 3, "hé…"},
		{"hello", 1, "…"},
		{"", 3, ""},
		{"abc", 0, ""},
	}
	for _, tc := range tests {
		if got := TruncRunes(tc.in, tc.n); got != tc.want {
			t.Errorf("TruncRunes(%q,%d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestWrapWords(t *testing.T) {
	t.Parallel()

	got := WrapWords("the quick brown fox jumps", 10)
	want := []string{"the quick", "brown fox", "jumps"}
	if len(got) != len(want) {
		t.Fatalf("WrapWords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("WrapWords = %v, want %v", got, want)
		}
	}

	if got := WrapWords("", 10); len(got) != 1 || got[0] != "" {
		t.Errorf("empty input = %v", got)
	}
	if got := WrapWords("supercalifragilistic", 5); len(got) != 1 {
		t.Errorf("long word should stay on one line: %v", got)
	}
}

func TestInlineBuilder(t *testing.T) {
	t.Parallel()

	rm := NewInline().
		Row(Btn("A", "p:a"), Btn("B", "p:b")).
		Row(Btn("C", "p:c")).
		Markup()
	if rm == nil {
		t.Fatal("nil markup")
	}
	if len(rm.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(rm.InlineKeyboard))
	}
	if len(rm.InlineKeyboard[0]) != 2 || len(rm.InlineKeyboard[1]) != 1 {
		t.Fatalf("row sizes = %d/%d", len(rm.InlineKeyboard[0]), len(rm.InlineKeyboard[1]))
	}
}
