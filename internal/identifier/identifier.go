// Package identifier implements the universal identifier system: a
// set of pure, stateless functions that derive a canonical key, a
// filesystem-safe filename, and a human-readable display name from a
// publication's known identifiers and title. Nothing here performs I/O.
package identifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Type is one of the recognized identifier kinds, in fallback priority
// order (PMID first, hash last).
type Type string

const (
	PMID  Type = "pmid"
	DOI   Type = "doi"
	PMC   Type = "pmc"
	ArXiv Type = "arxiv"
	Hash  Type = "hash"
)

// Publication is the minimal view of a publication the identifier package
// needs. Callers pass their own richer struct's fields in.
type Publication struct {
	PMID  string
	DOI   string
	PMCID string
	ArXiv string
	Title string
}

// Key is the derived universal identifier: a (type, value) pair.
type Key struct {
	Type  Type
	Value string
}

// String renders the key in its database form, "{type}:{value}", preserving
// the original value (e.g. DOI slashes are not escaped).
func (k Key) String() string {
	return string(k.Type) + ":" + k.Value
}

// ErrInvalidInput is returned when the publication carries neither an
// identifier nor a title — the only case canonical_key cannot be total for.
var ErrInvalidInput = fmt.Errorf("identifier: publication has no title and no identifiers")

var sanitizeRe = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

// CanonicalKey walks the fallback list PMID -> DOI -> PMC -> arXiv ->
// content-hash and returns the first populated identifier. It fails only
// when pub is entirely empty.
func CanonicalKey(pub Publication) (Key, error) {
	if v := strings.TrimSpace(pub.PMID); v != "" {
		return Key{Type: PMID, Value: v}, nil
	}
	if v := strings.TrimSpace(pub.DOI); v != "" {
		return Key{Type: DOI, Value: v}, nil
	}
	if v := strings.TrimSpace(pub.PMCID); v != "" {
		return Key{Type: PMC, Value: v}, nil
	}
	if v := strings.TrimSpace(pub.ArXiv); v != "" {
		return Key{Type: ArXiv, Value: v}, nil
	}
	title := strings.TrimSpace(pub.Title)
	if title == "" {
		return Key{}, ErrInvalidInput
	}
	return Key{Type: Hash, Value: hashTitle(title)}, nil
}

// hashTitle returns the first 16 hex characters of sha256(normalize(title)),
// deterministic for any two publications sharing a normalized title.
func hashTitle(title string) string {
	sum := sha256.Sum256([]byte(normalizeTitle(title)))
	return hex.EncodeToString(sum[:])[:16]
}

// normalizeTitle lowercases and collapses whitespace, so titles that differ
// only in case or spacing hash identically.
func normalizeTitle(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	return strings.Join(fields, " ")
}

// KeyString is CanonicalKey followed by String, the form used for database
// keys (identifier_key columns).
func KeyString(pub Publication) (string, error) {
	k, err := CanonicalKey(pub)
	if err != nil {
		return "", err
	}
	return k.String(), nil
}

// Filename derives the filesystem-safe PDF filename for pub:
// "{type}_{sanitized_value}.pdf", truncated to 100 characters before the
// extension.
func Filename(pub Publication) (string, error) {
	k, err := CanonicalKey(pub)
	if err != nil {
		return "", err
	}
	return filenameForKey(k), nil
}

func filenameForKey(k Key) string {
	sanitized := sanitize(k.Value)
	name := string(k.Type) + "_" + sanitized
	if len(name) > 100 {
		name = name[:100]
	}
	return name + ".pdf"
}

// sanitize replaces '/', ':', whitespace, and any character outside
// [A-Za-z0-9_-] with '_'.
func sanitize(value string) string {
	replaced := strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == ':':
			return '_'
		case r == ' ', r == '\t', r == '\n', r == '\r':
			return '_'
		}
		return r
	}, value)
	return sanitizeRe.ReplaceAllString(replaced, "_")
}

var filenameRe = regexp.MustCompile(`^(pmid|doi|pmc|arxiv|hash)_(.+)\.pdf$`)

// ParseFilename recovers a Key from a filename produced by Filename. It is
// the inverse of Filename for recognized types; note that sanitization is
// lossy (the original DOI slashes are not recoverable), so ParseFilename
// returns the sanitized value, not the original.
func ParseFilename(name string) (Key, error) {
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return Key{}, fmt.Errorf("identifier: %q is not a recognized filename", name)
	}
	return Key{Type: Type(m[1]), Value: m[2]}, nil
}

// DisplayName renders a human-readable label, e.g. "DOI 10.1234/abc" or
// "PMID 12345".
func DisplayName(pub Publication) (string, error) {
	k, err := CanonicalKey(pub)
	if err != nil {
		return "", err
	}
	switch k.Type {
	case PMID:
		return "PMID " + k.Value, nil
	case DOI:
		return "DOI " + k.Value, nil
	case PMC:
		return "PMC " + k.Value, nil
	case ArXiv:
		return "arXiv " + k.Value, nil
	default:
		return "Untitled (" + k.Value + ")", nil
	}
}

var geoIDRe = regexp.MustCompile(`^GSE\d+$`)
var geoPrefixRe = regexp.MustCompile(`^(GSE|GSM|GPL|GDS)\d+$`)

// IsGEOID reports whether s matches the core GEO series identifier pattern.
func IsGEOID(s string) bool {
	return geoIDRe.MatchString(strings.TrimSpace(s))
}

// IsGEOAccession reports whether s matches any recognized GEO accession
// prefix (GSE, GSM, GPL, GDS), used when classifying search queries.
func IsGEOAccession(s string) bool {
	return geoPrefixRe.MatchString(strings.TrimSpace(s))
}

var pmidRe = regexp.MustCompile(`^\d{1,9}$`)

// IsPMID reports whether s looks like a bare PubMed ID.
func IsPMID(s string) bool {
	return pmidRe.MatchString(strings.TrimSpace(s))
}
