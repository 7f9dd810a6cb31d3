// Package judgment implements the judgment bounded context: the raw scraped
// document, the sections extracted from it, and the canonical JudgmentRecord
// produced by normalization.  Infrastructure concerns (persistence, caching,
// transport) are handled by adapters implementing the interfaces declared in
// repository.go.
package judgment

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// RawDocument is one scraped judgment page.  It is never modified after
// construction; every field is free text as delivered by the collector.
type RawDocument struct {
	// Title is the page title, possibly carrying a "(1 of 1) " prefix.
	Title string `json:"title"`

	// Identifier is the raw field that carries the application number.
	Identifier string `json:"ident"`

	// Text is the full judgment text.
	Text string `json:"text"`

	// URL is the source locator.
	URL string `json:"url"`

	// CaseDetails is the unstructured metadata block the sections are
	// extracted from.
	CaseDetails string `json:"case_details"`
}

// ContentHash returns a stable SHA-256 digest over all five fields.  Fields
// are length-prefixed so that moving text between adjacent fields changes the
// digest.
func (d RawDocument) ContentHash() string {
	h := sha256.New()
	for _, f := range []string{d.Title, d.Identifier, d.Text, d.URL, d.CaseDetails} {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(f)))
		h.Write(n[:])
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
