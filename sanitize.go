package treefs

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sanitizerCacheSize bounds the sanitizer's memoization map. Kernel
// workloads hammer a small working set of paths, so a modest LRU
// absorbs nearly all repeat normalization cost.
const sanitizerCacheSize = 8192

// Normalization form names accepted by the sanitizer. NormNone skips
// Unicode normalization entirely.
const (
	NormNFC  = "NFC"
	NormNFD  = "NFD"
	NormNFKC = "NFKC"
	NormNFKD = "NFKD"
	NormNone = "none"
)

// DefaultNormalization is the form applied when none is configured.
//
// NFD is the default because the macOS FUSE bridge delivers file names
// decomposed; matching a tree declared from a command-line enumeration
// requires aligning the two forms. The other forms exist for users
// diffing trees between platforms.
const DefaultNormalization = NormNFD

// sanitizer canonicalizes raw kernel paths into directory-index keys.
//
// The function is pure; the LRU exists only to bound CPU cost under
// repeated access, so cache consistency is trivial.
type sanitizer struct {
	form      norm.Form
	normalize bool
	cache     *lruCache
}

// newSanitizer creates a sanitizer for the named normalization form.
func newSanitizer(formName string) (*sanitizer, error) {
	s := &sanitizer{cache: newLRUCache(sanitizerCacheSize)}
	switch formName {
	case NormNFC:
		s.form, s.normalize = norm.NFC, true
	case NormNFD, "":
		s.form, s.normalize = norm.NFD, true
	case NormNFKC:
		s.form, s.normalize = norm.NFKC, true
	case NormNFKD:
		s.form, s.normalize = norm.NFKD, true
	case NormNone:
		s.normalize = false
	default:
		return nil, invalidConfigf("unknown normalization form %q", formName)
	}
	return s, nil
}

// Clean returns the canonical form of a raw path: the configured
// Unicode normalization applied, redundant separators collapsed, and a
// single trailing "/" stripped unless the path is the root itself.
// Results are memoized keyed by the raw input.
func (s *sanitizer) Clean(raw string) string {
	if v, ok := s.cache.Get(raw); ok {
		return v.(string)
	}
	out := s.clean(raw)
	s.cache.Put(raw, out)
	return out
}

// CleanName canonicalizes a single path component. Used by the loader,
// which composes index keys from individually normalized names.
func (s *sanitizer) CleanName(name string) string {
	if !s.normalize {
		return name
	}
	return s.form.String(name)
}

func (s *sanitizer) clean(raw string) string {
	p := raw
	if s.normalize {
		p = s.form.String(p)
	}

	if strings.Contains(p, "//") {
		var b strings.Builder
		b.Grow(len(p))
		prevSlash := false
		for i := 0; i < len(p); i++ {
			if p[i] == '/' {
				if prevSlash {
					continue
				}
				prevSlash = true
			} else {
				prevSlash = false
			}
			b.WriteByte(p[i])
		}
		p = b.String()
	}

	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	if p == "" {
		p = "/"
	}
	return p
}

// CacheStats exposes the memoization counters for diagnostics.
func (s *sanitizer) CacheStats() CacheStats {
	return s.cache.Stats()
}
