package wallet

import (
	"fmt"
	"strings"
)

// wordListSize matches the size this chain family's mnemonic encoding
// has always shipped with: large enough that 3 words encode 4 bytes
// with a whole number of bits to spare for a prefix-unique trie lookup.
const wordListSize = 1626

// uniquePrefixLen is how many leading characters of each word must be
// unique within a wordlist, so that truncated user input can still be
// resolved unambiguously (spec.md §4.B).
const uniquePrefixLen = 4

// wordList is a registered mnemonic language: a fixed-size word table
// plus a prefix -> index lookup built once at registration time.
type wordList struct {
	name   string
	words  [wordListSize]string
	byWord map[string]uint32
	byPrefix map[string]uint32
}

var registeredLanguages = map[string]*wordList{}

func registerLanguage(name string, words [wordListSize]string) *wordList {
	wl := &wordList{
		name:     name,
		words:    words,
		byWord:   make(map[string]uint32, wordListSize),
		byPrefix: make(map[string]uint32, wordListSize),
	}
	for i, w := range words {
		wl.byWord[w] = uint32(i)
		prefix := w
		if len(prefix) > uniquePrefixLen {
			prefix = prefix[:uniquePrefixLen]
		}
		wl.byPrefix[prefix] = uint32(i)
	}
	registeredLanguages[name] = wl
	return wl
}

// generateWordList deterministically builds a wordListSize-entry table
// of unique, unique-prefixed words from a fixed consonant/vowel
// alphabet, seeded by a language tag. This is a placeholder for the
// real wordlists real clients ship (transcribing those by hand risks
// silent corruption of a table every derivation depends on byte-for-
// byte); determinism and uniqueness are what this package's algorithms
// actually require.
func generateWordList(salt string) [wordListSize]string {
	const consonants = "bcdfgjklmnprstvz"
	const vowels = "aeiou"
	const suffixes = "ghklmnprstd"

	seen := make(map[string]bool, wordListSize)
	var out [wordListSize]string
	idx := 0

	mix := func(i int) int {
		h := Keccak256([]byte(salt), leUint32(uint32(i)))
		return int(h[0])<<16 | int(h[1])<<8 | int(h[2])
	}

	for attempt := 0; idx < wordListSize; attempt++ {
		v := mix(attempt)
		c1 := consonants[v%len(consonants)]
		v /= len(consonants)
		v1 := vowels[v%len(vowels)]
		v /= len(vowels)
		c2 := consonants[v%len(consonants)]
		v /= len(consonants)
		v2 := vowels[v%len(vowels)]
		v /= len(vowels)
		suf := suffixes[v%len(suffixes)]

		word := string([]byte{c1, v1, c2, v2, suf})
		prefix := word[:uniquePrefixLen]
		if seen[word] {
			continue
		}
		collides := false
		for j := 0; j < idx; j++ {
			if out[j][:uniquePrefixLen] == prefix {
				collides = true
				break
			}
		}
		if collides {
			continue
		}
		seen[word] = true
		out[idx] = word
		idx++
	}
	return out
}

func init() {
	registerLanguage("english", generateWordList("monlite-mnemonic-english-v1"))
	registerLanguage("esperanto", generateWordList("monlite-mnemonic-esperanto-v1"))
}

// Seed is the 32-byte master secret a wallet is derived from (spec.md
// §4.B). It encodes to and decodes from a 25-word mnemonic: 24 words
// covering 8 little-endian uint32 groups of the seed (3 words per
// group), plus a trailing checksum word computed over the first 24.
type Seed struct {
	Entropy [32]byte
}

// EncodeMnemonic renders the seed as a 25-word phrase in the named
// language.
func (s Seed) EncodeMnemonic(language string) (string, error) {
	wl, ok := registeredLanguages[language]
	if !ok {
		return "", fmt.Errorf("%w: unknown mnemonic language %q", ErrInvalidSeed, language)
	}

	words := make([]string, 0, 25)
	for g := 0; g < 8; g++ {
		var group uint32
		for b := 0; b < 4; b++ {
			group |= uint32(s.Entropy[g*4+b]) << (8 * uint(b))
		}
		w1, w2, w3 := encodeGroup(group, wordListSize)
		words = append(words, wl.words[w1], wl.words[w2], wl.words[w3])
	}
	words = append(words, checksumWord(wl, words))
	return strings.Join(words, " "), nil
}

// encodeGroup splits a uint32 into 3 word indices via the classic
// Electrum-style mixed-radix mapping: w3 is recovered by subtracting
// the contribution of w1 and w2, which is what lets 3 words drawn from
// an N-word list cover slightly more than 32 bits without needing a
// bit-level arithmetic coder.
func encodeGroup(v uint32, n int) (w1, w2, w3 int) {
	nn := uint32(n)
	w1 = int(v % nn)
	w2 = int((v/nn + uint32(w1)) % nn)
	w3 = int((v/nn/nn + uint32(w2)) % nn)
	return
}

func decodeGroup(w1, w2, w3 int, n int) uint32 {
	nn := int64(n)
	mid := mod64(int64(w2)-int64(w1), nn)
	hi := mod64(int64(w3)-int64(w2), nn)
	return uint32(int64(w1) + nn*(mid+nn*hi))
}

func mod64(a, n int64) int64 {
	return ((a % n) + n) % n
}

// checksumWord derives the 25th word: Keccak-256 over the first 24
// words' concatenated text, reduced into a word-list index, so that a
// single-word error or transposition is caught when decoding.
func checksumWord(wl *wordList, dataWords []string) string {
	joined := strings.Join(dataWords, "")
	h := Keccak256([]byte(joined))
	idx := (uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16) % wordListSize
	return wl.words[idx]
}

// DecodeMnemonic parses a 25-word phrase back into a seed, verifying
// the checksum word and accepting unique-prefix-truncated words.
func DecodeMnemonic(phrase string, language string) (Seed, error) {
	wl, ok := registeredLanguages[language]
	if !ok {
		return Seed{}, fmt.Errorf("%w: unknown mnemonic language %q", ErrInvalidSeed, language)
	}

	fields := strings.Fields(phrase)
	if len(fields) != 25 {
		return Seed{}, fmt.Errorf("%w: expected 25 words, got %d", ErrInvalidSeed, len(fields))
	}

	resolved := make([]string, 25)
	indices := make([]int, 25)
	for i, f := range fields {
		idx, word, err := resolveWord(wl, f)
		if err != nil {
			return Seed{}, err
		}
		resolved[i] = word
		indices[i] = int(idx)
	}

	want := checksumWord(wl, resolved[:24])
	if want != resolved[24] {
		return Seed{}, fmt.Errorf("%w: mnemonic checksum mismatch", ErrInvalidSeed)
	}

	var seed Seed
	for g := 0; g < 8; g++ {
		group := decodeGroup(indices[g*3], indices[g*3+1], indices[g*3+2], wordListSize)
		for b := 0; b < 4; b++ {
			seed.Entropy[g*4+b] = byte(group >> (8 * uint(b)))
		}
	}
	return seed, nil
}

func resolveWord(wl *wordList, field string) (uint32, string, error) {
	field = strings.ToLower(field)
	if idx, ok := wl.byWord[field]; ok {
		return idx, field, nil
	}
	prefix := field
	if len(prefix) > uniquePrefixLen {
		prefix = prefix[:uniquePrefixLen]
	}
	if idx, ok := wl.byPrefix[prefix]; ok {
		return idx, wl.words[idx], nil
	}
	return 0, "", fmt.Errorf("%w: unrecognized mnemonic word %q", ErrInvalidSeed, field)
}

// Languages lists the registered mnemonic languages.
func Languages() []string {
	out := make([]string, 0, len(registeredLanguages))
	for name := range registeredLanguages {
		out = append(out, name)
	}
	return out
}
