// Package corpus finds the code documents in a data directory and watches
// it for changes so they can be re-ingested.
package corpus
