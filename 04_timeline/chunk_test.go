package timeline

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkExample(t *testing.T) {
	got := Chunk("the quick brown fox jumps", 10)
	want := []string{"the quick", "brown fox", "jumps"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunkEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{"empty", "", 10, nil},
		{"whitespace only", "  \t\n ", 10, nil},
		{"collapses whitespace", "  a   b\tc  ", 10, []string{"a b c"}},
		{"exact fit", "abcde fghij", 11, []string{"abcde fghij"}},
		{"one over", "abcde fghij", 10, []string{"abcde", "fghij"}},
		{"long word alone", "hi supercalifragilistic yo", 5, []string{"hi", "supercalifragilistic", "yo"}},
		{"long first word", "supercalifragilistic a b", 5, []string{"supercalifragilistic", "a b"}},
		{"korean counts runes", "옛날 옛적에 호랑이가 살았어요", 9, []string{"옛날 옛적에", "호랑이가 살았어요"}},
		{"korean splits", "옛날 옛적에 호랑이가 살았어요", 8, []string{"옛날 옛적에", "호랑이가", "살았어요"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text, tt.maxChars)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Chunk(%q, %d) = %q, want %q", tt.text, tt.maxChars, got, tt.want)
			}
		})
	}
}

func TestChunkPreservesWordsAndBudget(t *testing.T) {
	text := "욕심쟁이 형 놀부에게 매몰차게 쫓겨난 흥부는, 쌀 한 톨 없이 빈손으로 터덜터덜 집을 나설 수밖에 없었답니다. " +
		"찬바람이 쌩쌩 부는 가을날이었지요. an extraordinarilylongwordthatdoesnotfit and more"

	for _, maxChars := range []int{1, 3, 8, 15, 40, 200} {
		chunks := Chunk(text, maxChars)

		var rejoined []string
		for _, c := range chunks {
			if c == "" {
				t.Fatalf("maxChars=%d: empty chunk in %q", maxChars, chunks)
			}
			words := strings.Fields(c)
			if utf8.RuneCountInString(c) > maxChars && len(words) != 1 {
				t.Errorf("maxChars=%d: chunk %q exceeds budget with %d words", maxChars, c, len(words))
			}
			rejoined = append(rejoined, words...)
		}

		if !reflect.DeepEqual(rejoined, strings.Fields(text)) {
			t.Errorf("maxChars=%d: words changed after chunking", maxChars)
		}
	}
}
