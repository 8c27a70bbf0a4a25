// Package normalisers provides implementations of the Normaliser interface
// for the document formats building codes ship in. Each normaliser knows how
// to extract per-page text from a specific MIME type.
//
// Normalisers are registered with the Registry at startup.
package normalisers
