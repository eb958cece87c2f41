package treefs

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

// Composed and decomposed spellings of "café". Escapes keep the byte
// sequences unambiguous in source.
const (
	cafeNFC = "caf\u00e9"
	cafeNFD = "caf\u0065\u0301"
)

func TestSanitizer_CollapseSeparators(t *testing.T) {
	s, err := newSanitizer(NormNone)
	if err != nil {
		t.Fatalf("newSanitizer error: %v", err)
	}

	cases := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/a", "/a"},
		{"/a/", "/a"},
		{"//a//b", "/a/b"},
		{"/a///b/c//", "/a/b/c"},
		{"///", "/"},
	}
	for _, c := range cases {
		if got := s.Clean(c.in); got != c.want {
			t.Errorf("Clean(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizer_NFD(t *testing.T) {
	s, err := newSanitizer(NormNFD)
	if err != nil {
		t.Fatalf("newSanitizer error: %v", err)
	}

	if got := s.Clean("/" + cafeNFC); got != "/"+cafeNFD {
		t.Errorf("Clean(%q) = %q, want %q", "/"+cafeNFC, got, "/"+cafeNFD)
	}
	if got := s.Clean("/" + cafeNFD); got != "/"+cafeNFD {
		t.Errorf("Clean(%q) = %q, want %q", "/"+cafeNFD, got, "/"+cafeNFD)
	}
}

func TestSanitizer_NFC(t *testing.T) {
	s, err := newSanitizer(NormNFC)
	if err != nil {
		t.Fatalf("newSanitizer error: %v", err)
	}

	if got := s.Clean("/" + cafeNFD); got != "/"+cafeNFC {
		t.Errorf("Clean(%q) = %q, want %q", "/"+cafeNFD, got, "/"+cafeNFC)
	}
}

func TestSanitizer_None(t *testing.T) {
	s, err := newSanitizer(NormNone)
	if err != nil {
		t.Fatalf("newSanitizer error: %v", err)
	}

	if got := s.Clean("/" + cafeNFC); got != "/"+cafeNFC {
		t.Errorf("Clean(%q) = %q, want unchanged", "/"+cafeNFC, got)
	}
	if got := s.Clean("/" + cafeNFD); got != "/"+cafeNFD {
		t.Errorf("Clean(%q) = %q, want unchanged", "/"+cafeNFD, got)
	}
}

func TestSanitizer_Idempotent(t *testing.T) {
	for _, form := range []string{NormNFC, NormNFD, NormNFKC, NormNFKD, NormNone} {
		s, err := newSanitizer(form)
		if err != nil {
			t.Fatalf("newSanitizer(%s) error: %v", form, err)
		}
		inputs := []string{"/", "//a//b/", "/" + cafeNFC + "/x", "/" + cafeNFD, "/ﬁle"}
		for _, in := range inputs {
			once := s.Clean(in)
			twice := s.Clean(once)
			if once != twice {
				t.Errorf("form %s: Clean(Clean(%q)) = %q, want %q", form, in, twice, once)
			}
		}
	}
}

func TestSanitizer_HostileBytes(t *testing.T) {
	s, err := newSanitizer(NormNFD)
	if err != nil {
		t.Fatalf("newSanitizer error: %v", err)
	}

	// Invalid UTF-8 must round-trip without being dropped or panicking.
	raw := "/dir/\xff\xfe名前"
	got := s.Clean(raw)
	if got == "" || got == "/" {
		t.Errorf("Clean(%q) = %q, want the path preserved", raw, got)
	}
	if got != s.Clean(raw) {
		t.Error("Clean is not stable on hostile bytes")
	}
}

func TestSanitizer_Memoized(t *testing.T) {
	s, err := newSanitizer(NormNFD)
	if err != nil {
		t.Fatalf("newSanitizer error: %v", err)
	}

	s.Clean("/a/b")
	s.Clean("/a/b")
	s.Clean("/a/b")

	cs := s.CacheStats()
	if cs.Hits != 2 {
		t.Errorf("expected 2 cache hits, got %d", cs.Hits)
	}
	if cs.Misses != 1 {
		t.Errorf("expected 1 cache miss, got %d", cs.Misses)
	}
}

func TestSanitizer_CleanName(t *testing.T) {
	s, err := newSanitizer(NormNFD)
	if err != nil {
		t.Fatalf("newSanitizer error: %v", err)
	}

	if got := s.CleanName(cafeNFC); got != cafeNFD {
		t.Errorf("CleanName(%q) = %q, want %q", cafeNFC, got, cafeNFD)
	}
	if !norm.NFD.IsNormalString(s.CleanName(cafeNFC)) {
		t.Error("CleanName output is not NFD-normal")
	}
}

func TestSanitizer_UnknownForm(t *testing.T) {
	if _, err := newSanitizer("NFX"); err == nil {
		t.Error("newSanitizer(NFX) succeeded, want error")
	}
}

func BenchmarkSanitizer_Clean(b *testing.B) {
	s, _ := newSanitizer(NormNFD)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Clean("/some/deeply/nested/path/" + cafeNFC + ".txt")
	}
}
