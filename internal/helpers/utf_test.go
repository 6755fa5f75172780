package helpers

import "testing"

func TestUTF16RoundTrip(t *testing.T) {
	for _, text := range []string{"", "abc", "café", " ", "\U0001F600x"} {
		units := StringToUTF16(text)
		if got := UTF16ToString(units); got != text {
			t.Fatalf("UTF16ToString(StringToUTF16(%q)) = %q", text, got)
		}
		if !UTF16EqualsString(units, text) {
			t.Fatalf("UTF16EqualsString failed for %q", text)
		}
	}

	if got := len(StringToUTF16("\U0001F600")); got != 2 {
		t.Fatalf("expected a surrogate pair, got %d code units", got)
	}
}

func TestUTF16LoneSurrogate(t *testing.T) {
	lone := []uint16{'a', 0xD800, 'b'}
	if got := UTF16ToString(lone); got != "a\xed\xa0\x80b" {
		t.Fatalf("unexpected WTF-8 encoding %q", got)
	}
	if !UTF16EqualsString(lone, "a\xed\xa0\x80b") {
		t.Fatal("expected the WTF-8 form to compare equal")
	}
	if UTF16EqualsString(lone, "ab") || UTF16EqualsString([]uint16{'a'}, "ab") {
		t.Fatal("expected a mismatch")
	}
	if !UTF16EqualsUTF16(lone, []uint16{'a', 0xD800, 'b'}) || UTF16EqualsUTF16(lone, lone[:2]) {
		t.Fatal("unexpected UTF16EqualsUTF16 result")
	}
}
