package formatter

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestMode1VerbatimBlockIsProtected(t *testing.T) {
	f := NewMode1Formatter()
	result := f.Format("début verbatim\nle texte exact\nfin verbatim", Mode1Options{
		Language:         "fr",
		PreserveVerbatim: true,
	})

	if len(result.VerbatimBlocks) != 1 {
		t.Fatalf("blocks = %+v", result.VerbatimBlocks)
	}
	if result.VerbatimBlocks[0].Content != "le texte exact" {
		t.Errorf("content = %q", result.VerbatimBlocks[0].Content)
	}
	if result.VerbatimBlocks[0].Type != "basic" {
		t.Errorf("type = %q", result.VerbatimBlocks[0].Type)
	}
	if !strings.Contains(result.Formatted, VerbatimStart) || !strings.Contains(result.Formatted, VerbatimEnd) {
		t.Errorf("formatted lost verbatim markers: %q", result.Formatted)
	}
	if strings.Contains(result.Formatted, "début verbatim") {
		t.Errorf("open command leaked into output: %q", result.Formatted)
	}
}

func TestMode1CustomVerbatimTypes(t *testing.T) {
	f := NewMode1Formatter()
	result := f.Format("rapport radiologique\nfracture non déplacée C5\nfin rapport", Mode1Options{
		Language:         "fr",
		PreserveVerbatim: true,
	})

	if len(result.VerbatimBlocks) != 1 {
		t.Fatalf("blocks = %+v", result.VerbatimBlocks)
	}
	if result.VerbatimBlocks[0].Type != "radiology" {
		t.Errorf("type = %q", result.VerbatimBlocks[0].Type)
	}
}

func TestMode1AccentInsensitiveCommands(t *testing.T) {
	f := NewMode1Formatter()
	// "debut verbatim" without the accent still opens a block.
	result := f.Format("debut verbatim\ntexte\nfin verbatim", Mode1Options{Language: "fr"})
	if len(result.VerbatimBlocks) != 1 {
		t.Fatalf("accentless command not detected, blocks = %+v", result.VerbatimBlocks)
	}
}

func TestMode1CoreCommandsNeverReachOutput(t *testing.T) {
	f := NewMode1Formatter()
	result := f.Format("du texte\nsauvegarder\nla suite", Mode1Options{Language: "fr"})

	if strings.Contains(result.Formatted, "sauvegarder") {
		t.Errorf("command text leaked: %q", result.Formatted)
	}
	if strings.Contains(result.Formatted, "[SAVE]") {
		t.Errorf("command marker leaked: %q", result.Formatted)
	}
	if !strings.Contains(result.Formatted, "du texte") || !strings.Contains(result.Formatted, "la suite") {
		t.Errorf("dictated text lost: %q", result.Formatted)
	}
}

func TestMode1ConcurrentCallsDoNotShareState(t *testing.T) {
	f := NewMode1Formatter()
	opts := Mode1Options{Language: "fr", PreserveVerbatim: true}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			content := fmt.Sprintf("contenu du soignant %d", g)
			transcript := "début verbatim\n" + content + "\nfin verbatim"
			for i := 0; i < 50; i++ {
				result := f.Format(transcript, opts)
				if len(result.VerbatimBlocks) != 1 {
					t.Errorf("goroutine %d: blocks = %+v", g, result.VerbatimBlocks)
					return
				}
				if result.VerbatimBlocks[0].Content != content {
					t.Errorf("goroutine %d: foreign content %q", g, result.VerbatimBlocks[0].Content)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestMode1SpokenPunctuation(t *testing.T) {
	f := NewMode1Formatter()
	result := f.Format("no swelling comma no redness period", Mode1Options{Language: "en"})
	if result.Formatted != "no swelling, no redness." {
		t.Errorf("formatted = %q", result.Formatted)
	}
}

func TestMode1SmartQuotes(t *testing.T) {
	f := NewMode1Formatter()
	result := f.Format(`he said "stop" to me`, Mode1Options{Language: "en", QuoteStyle: "smart"})
	if !strings.Contains(result.Formatted, "“stop”") {
		t.Errorf("smart quotes not applied: %q", result.Formatted)
	}
}
