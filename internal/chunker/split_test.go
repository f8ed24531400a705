package chunker

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextIsOnePart(t *testing.T) {
	parts := Split("hello", 4000)
	if len(parts) != 1 || parts[0] != "hello" {
		t.Fatalf("Split = %v, want [hello]", parts)
	}
}

func TestSplit_NoLineBreaksForcesHardCuts(t *testing.T) {
	text := strings.Repeat("a", 9000)
	parts := Split(text, 4000)

	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	if len(parts[0]) != 4000 || len(parts[1]) != 4000 || len(parts[2]) != 1000 {
		t.Fatalf("part lengths = %d/%d/%d, want 4000/4000/1000",
			len(parts[0]), len(parts[1]), len(parts[2]))
	}
	if strings.Join(parts, "") != text {
		t.Error("hard-cut parts should concatenate back to the input")
	}
}

func TestSplit_PrefersLineBoundary(t *testing.T) {
	line := strings.Repeat("x", 30)
	text := strings.Join([]string{line, line, line}, "\n") // 92 bytes

	parts := Split(text, 40)
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3: %q", len(parts), parts)
	}
	for i, p := range parts {
		if p != line {
			t.Errorf("part %d = %q, want a full line", i, p)
		}
		if len(p) > 40 {
			t.Errorf("part %d length %d exceeds ceiling", i, len(p))
		}
	}
	// The dropped line breaks restore the original.
	if strings.Join(parts, "\n") != text {
		t.Error("line-cut parts joined with \\n should reproduce the input")
	}
}

func TestSplit_EveryPartWithinCeiling(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 5000),
		strings.Repeat("line one\nline two\n", 800),
		strings.Repeat("\n", 100),
		"",
	}
	for _, text := range inputs {
		for _, max := range []int{1, 7, 100, 4000} {
			for i, p := range Split(text, max) {
				if len(p) > max {
					t.Fatalf("max=%d part=%d length %d exceeds ceiling", max, i, len(p))
				}
			}
		}
	}
}

func TestLabel_SinglePartUnlabeled(t *testing.T) {
	parts := Label([]string{"only"})
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	p := parts[0]
	if p.Index != 1 || p.Total != 1 {
		t.Errorf("Index/Total = %d/%d, want 1/1", p.Index, p.Total)
	}
	if p.Text != "only" {
		t.Errorf("single part should carry no label, got %q", p.Text)
	}
}

func TestLabel_StampsPositionOutOfTotal(t *testing.T) {
	parts := Label([]string{"first", "second", "third"})
	want := []string{"Part 1/3:\nfirst", "Part 2/3:\nsecond", "Part 3/3:\nthird"}

	for i, p := range parts {
		if p.Index != i+1 || p.Total != 3 {
			t.Errorf("part %d Index/Total = %d/%d", i, p.Index, p.Total)
		}
		if p.Text != want[i] {
			t.Errorf("part %d text = %q, want %q", i, p.Text, want[i])
		}
	}
}

func TestLabel_SequenceIsGapFree(t *testing.T) {
	raw := Split(strings.Repeat("z", 15000), 4000)
	parts := Label(raw)

	for i, p := range parts {
		if p.Index != i+1 {
			t.Fatalf("part at offset %d has Index %d", i, p.Index)
		}
		if p.Total != len(parts) {
			t.Fatalf("part %d Total = %d, want %d", p.Index, p.Total, len(parts))
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := EscapeMarkdown("*bold* _it_ [x](y) 2+2=4. done!")
	want := `\*bold\* \_it\_ \[x\]\(y\) 2\+2\=4\. done\!`
	if got != want {
		t.Errorf("EscapeMarkdown = %q, want %q", got, want)
	}
}

func TestEscapeMarkdown_PlainTextUntouched(t *testing.T) {
	in := "just words and spaces 123"
	if got := EscapeMarkdown(in); got != in {
		t.Errorf("EscapeMarkdown(%q) = %q", in, got)
	}
}

func TestEscapeMarkdown_SafePerPart(t *testing.T) {
	// Escaping after splitting must never re-escape: each part is escaped
	// exactly once, so unescaping all parts restores the raw split output.
	text := strings.Repeat("a*b.c\n", 2000)
	raw := Split(text, 100)

	for _, p := range raw {
		escaped := EscapeMarkdown(p)
		unescaped := strings.NewReplacer(`\*`, "*", `\.`, ".", `\\`, `\`).Replace(escaped)
		if unescaped != p {
			t.Fatalf("unescape(escape(part)) != part: %q -> %q", p, unescaped)
		}
	}
}
