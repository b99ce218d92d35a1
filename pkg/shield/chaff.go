package shield

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Character classes a target format can belong to, narrowest first.
const (
	ClassDecimal      = "decimal"
	ClassLowerHex     = "lower-hex"
	ClassUpperHex     = "upper-hex"
	ClassBase58       = "base58"
	ClassAlphanumeric = "alphanumeric"
	ClassCustom       = "custom"
)

const (
	decimalAlphabet  = "0123456789"
	lowerHexAlphabet = "0123456789abcdef"
	upperHexAlphabet = "0123456789ABCDEF"
	base58Alphabet   = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	alnumAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var classAlphabets = []struct {
	class    string
	alphabet string
}{
	{ClassDecimal, decimalAlphabet},
	{ClassLowerHex, lowerHexAlphabet},
	{ClassUpperHex, upperHexAlphabet},
	{ClassBase58, base58Alphabet},
	{ClassAlphanumeric, alnumAlphabet},
}

// TargetFormat is the lexical shape of a target string: its length and
// character class. Chaff targets are generated to the same shape.
type TargetFormat struct {
	Length int    `json:"length"`
	Class  string `json:"class"`

	// Alphabet is set only for ClassCustom.
	Alphabet string `json:"alphabet,omitempty"`

	// LeadingZero records whether a decimal sample started with '0'.
	LeadingZero bool `json:"leading_zero,omitempty"`
}

// DefaultFormat is assumed for kinds with no observed targets: a 32-byte hash
// in hex, which covers txids, scripthashes and block hashes.
var DefaultFormat = TargetFormat{Length: chainhash.MaxHashStringSize, Class: ClassLowerHex}

// InferFormat returns the narrowest format that describes target.
func InferFormat(target string) TargetFormat {
	runes := []rune(target)
	f := TargetFormat{Length: len(runes)}

	for _, ca := range classAlphabets {
		if onlyFrom(runes, ca.alphabet) {
			f.Class = ca.class
			if ca.class == ClassDecimal && len(runes) > 0 {
				f.LeadingZero = runes[0] == '0'
			}
			return f
		}
	}

	f.Class = ClassCustom
	f.Alphabet = distinctRunes(runes)
	return f
}

// Matches reports whether target has this format.
func (f TargetFormat) Matches(target string) bool {
	runes := []rune(target)
	if len(runes) != f.Length {
		return false
	}
	if f.Class == ClassDecimal && len(runes) > 1 && !f.LeadingZero && runes[0] == '0' {
		return false
	}
	return onlyFrom(runes, f.alphabet())
}

func (f TargetFormat) key() string {
	return fmt.Sprintf("%s/%d/%s/%t", f.Class, f.Length, f.Alphabet, f.LeadingZero)
}

func (f TargetFormat) alphabet() string {
	for _, ca := range classAlphabets {
		if ca.class == f.Class {
			return ca.alphabet
		}
	}
	return f.Alphabet
}

// Generate synthesizes a random target of this format.
func (f TargetFormat) Generate(src Source) string {
	switch {
	case f.Length == chainhash.MaxHashStringSize && f.Class == ClassLowerHex:
		return randomHash(src).String()
	case f.Length == chainhash.MaxHashStringSize && f.Class == ClassUpperHex:
		return strings.ToUpper(randomHash(src).String())
	}

	alphabet := []rune(f.alphabet())
	if len(alphabet) == 0 || f.Length <= 0 {
		return ""
	}

	out := make([]rune, f.Length)
	for i := range out {
		out[i] = alphabet[src.IntN(len(alphabet))]
	}
	if f.Class == ClassDecimal && f.Length > 1 && !f.LeadingZero {
		out[0] = rune('1' + src.IntN(9))
	}
	return string(out)
}

func randomHash(src Source) chainhash.Hash {
	var h chainhash.Hash
	for i := 0; i < chainhash.HashSize; i += 8 {
		v := src.Uint64()
		for j := range 8 {
			h[i+j] = byte(v >> (8 * j))
		}
	}
	return h
}

func onlyFrom(runes []rune, alphabet string) bool {
	for _, r := range runes {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}

func distinctRunes(runes []rune) string {
	seen := make(map[rune]struct{}, len(runes))
	var out []rune
	for _, r := range runes {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return string(out)
}

// maxFormatsPerKind bounds how many distinct formats are kept for one kind.
const maxFormatsPerKind = 8

// FormatCorpus remembers the target formats observed for each kind across
// plans. Kinds are opaque and unbounded, so the corpus is an LRU over kinds.
type FormatCorpus struct {
	mu    sync.Mutex
	kinds *lru.Cache[Kind, []TargetFormat]
}

// NewFormatCorpus creates a corpus tracking at most maxKinds kinds.
func NewFormatCorpus(maxKinds int) (*FormatCorpus, error) {
	c, err := lru.New[Kind, []TargetFormat](maxKinds)
	if err != nil {
		return nil, err
	}
	return &FormatCorpus{kinds: c}, nil
}

// Observe records the format of a real target.
func (c *FormatCorpus) Observe(kind Kind, target string) {
	f := InferFormat(target)

	c.mu.Lock()
	defer c.mu.Unlock()

	formats, _ := c.kinds.Get(kind)
	for i, existing := range formats {
		if existing.key() == f.key() {
			// Move to the back so eviction drops the stalest format.
			formats = append(append(formats[:i:i], formats[i+1:]...), f)
			c.kinds.Add(kind, formats)
			return
		}
	}
	formats = append(formats, f)
	if len(formats) > maxFormatsPerKind {
		formats = formats[len(formats)-maxFormatsPerKind:]
	}
	c.kinds.Add(kind, formats)
}

// Sample returns a random observed format for kind.
func (c *FormatCorpus) Sample(kind Kind, src Source) (TargetFormat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	formats, ok := c.kinds.Get(kind)
	if !ok || len(formats) == 0 {
		return TargetFormat{}, false
	}
	return formats[src.IntN(len(formats))], true
}

// Kinds returns the kinds currently tracked, oldest first.
func (c *FormatCorpus) Kinds() []Kind {
	return c.kinds.Keys()
}

// chaffFactory builds decoys that imitate the real queries of one group.
type chaffFactory struct {
	src    Source
	corpus *FormatCorpus
}

// make synthesizes n decoys. Kinds follow the distribution of kinds in reals;
// with no reals, kinds are drawn from the known and observed kind set.
func (f *chaffFactory) make(reals []Query, n int) []Query {
	out := make([]Query, 0, n)
	for range n {
		var kind Kind
		var format TargetFormat

		if len(reals) > 0 {
			model := reals[f.src.IntN(len(reals))]
			kind = model.Kind
			format = InferFormat(model.Target)
		} else {
			kinds := f.kindSet()
			kind = kinds[f.src.IntN(len(kinds))]
			format = f.formatFor(kind)
		}

		out = append(out, Query{
			Kind:    kind,
			Target:  format.Generate(f.src),
			IsChaff: true,
			Index:   -1,
		})
	}
	return out
}

func (f *chaffFactory) kindSet() []Kind {
	kinds := append([]Kind(nil), KnownKinds...)
	if f.corpus == nil {
		return kinds
	}
	for _, k := range f.corpus.Kinds() {
		known := false
		for _, existing := range kinds {
			if existing == k {
				known = true
				break
			}
		}
		if !known {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (f *chaffFactory) formatFor(kind Kind) TargetFormat {
	if f.corpus != nil {
		if format, ok := f.corpus.Sample(kind, f.src); ok {
			return format
		}
	}
	return DefaultFormat
}
