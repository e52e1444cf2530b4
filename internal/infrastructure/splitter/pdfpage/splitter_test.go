package pdfpage

import (
	"strings"
	"testing"
)

func TestMeetsTextThresholdCountsRunes(t *testing.T) {
	s := NewSplitter(nil, 100, nil)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"ascii below", strings.Repeat("a", 99), false},
		{"ascii at threshold", strings.Repeat("a", 100), true},
		// 99 Cyrillic characters are 198 bytes; byte counting would wrongly
		// keep this page on the text path.
		{"multibyte below", strings.Repeat("д", 99), false},
		{"multibyte at threshold", strings.Repeat("д", 100), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.meetsTextThreshold(tt.text); got != tt.want {
				t.Errorf("meetsTextThreshold(%d runes) = %v, want %v",
					len([]rune(tt.text)), got, tt.want)
			}
		})
	}
}

func TestNewSplitterDefaultsThreshold(t *testing.T) {
	s := NewSplitter(nil, 0, nil)
	if s.meetsTextThreshold(strings.Repeat("a", 99)) {
		t.Error("99 characters passed the default 100-character threshold")
	}
	if !s.meetsTextThreshold(strings.Repeat("a", 100)) {
		t.Error("100 characters failed the default threshold")
	}
}
