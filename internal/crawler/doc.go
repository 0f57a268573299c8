// Package crawler implements the pagination driver: it discovers the total
// record count, walks every result page in order, fetches and normalizes
// each record, hands it to the output sink, and pauses between pages.
package crawler
