package formatter

import "testing"

func TestFormatWordForWordFullPass(t *testing.T) {
	got := FormatWordForWord("Pt: the patient reports pain at C 5 C 6 period", DefaultWordForWordConfig())
	want := "The patient reports pain at C5-C6."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatWordForWordSpokenCommands(t *testing.T) {
	got := FormatWordForWord("no swelling comma no redness period", DefaultWordForWordConfig())
	want := "No swelling, no redness."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatWordForWordDoctorTitle(t *testing.T) {
	got := FormatWordForWord("seen by Doctor Tremblay", DefaultWordForWordConfig())
	want := "Seen by Dr. Tremblay"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatWordForWordPassesCanBeDisabled(t *testing.T) {
	cfg := WordForWordConfig{}
	input := "Pt: pain period"
	if got := FormatWordForWord(input, cfg); got != input {
		t.Errorf("all passes off should leave text untouched, got %q", got)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	got := NormalizeWhitespace("Line one.  \n\n\n\n  Line   two.\t\n")
	want := "Line one.\n\nLine two."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
