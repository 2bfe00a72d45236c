package identifier

import "testing"

func TestCanonicalKeyFallbackOrder(t *testing.T) {
	cases := []struct {
		name string
		pub  Publication
		want Key
	}{
		{"pmid wins", Publication{PMID: "123", DOI: "10.1/x", Title: "x"}, Key{PMID, "123"}},
		{"doi when no pmid", Publication{DOI: "10.1/x", PMCID: "PMC1", Title: "x"}, Key{DOI, "10.1/x"}},
		{"pmc when no pmid/doi", Publication{PMCID: "PMC1", ArXiv: "2301.1", Title: "x"}, Key{PMC, "PMC1"}},
		{"arxiv when only arxiv", Publication{ArXiv: "2301.1", Title: "x"}, Key{ArXiv, "2301.1"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := CanonicalKey(c.pub)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("got %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestCanonicalKeyHashFallbackDeterministic(t *testing.T) {
	p1 := Publication{Title: "The Same Title"}
	p2 := Publication{Title: "the   same title"}
	k1, err := CanonicalKey(p1)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := CanonicalKey(p2)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatalf("expected equal hash keys, got %+v and %+v", k1, k2)
	}
	if k1.Type != Hash {
		t.Fatalf("expected hash type, got %s", k1.Type)
	}
	if len(k1.Value) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(k1.Value))
	}
}

func TestCanonicalKeyEmptyPublicationFails(t *testing.T) {
	_, err := CanonicalKey(Publication{})
	if err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFilenameRoundTrip(t *testing.T) {
	pub := Publication{DOI: "10.1371/journal.pone.0123456"}
	name, err := Filename(pub)
	if err != nil {
		t.Fatal(err)
	}
	want := "doi_10_1371_journal_pone_0123456.pdf"
	if name != want {
		t.Fatalf("got %q, want %q", name, want)
	}
	k, err := ParseFilename(name)
	if err != nil {
		t.Fatal(err)
	}
	canon, _ := CanonicalKey(pub)
	if k.Type != canon.Type {
		t.Fatalf("parsed type %q does not match canonical type %q", k.Type, canon.Type)
	}
}

func TestFilenameSanitizesAndTruncates(t *testing.T) {
	longDOI := "10.1000/" + make1000As()
	name, err := Filename(Publication{DOI: longDOI})
	if err != nil {
		t.Fatal(err)
	}
	if len(name) > 104 { // 100 + ".pdf"
		t.Fatalf("filename too long: %d chars", len(name))
	}
	for _, r := range name[:len(name)-4] {
		if !isFilenameSafe(r) {
			t.Fatalf("unsafe character %q in filename %q", r, name)
		}
	}
}

func isFilenameSafe(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		return true
	}
	return false
}

func make1000As() string {
	b := make([]byte, 1000)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestKeyStringPreservesDOISlashes(t *testing.T) {
	s, err := KeyString(Publication{DOI: "10.1371/journal.pone.0123456"})
	if err != nil {
		t.Fatal(err)
	}
	if s != "doi:10.1371/journal.pone.0123456" {
		t.Fatalf("got %q", s)
	}
}

func TestIsGEOID(t *testing.T) {
	if !IsGEOID("GSE12345") {
		t.Fatal("expected GSE12345 to match")
	}
	if IsGEOID("GSM12345") {
		t.Fatal("GSM should not match the series-only pattern")
	}
	if !IsGEOAccession("GSM12345") {
		t.Fatal("expected GSM12345 to match the broader accession pattern")
	}
}
