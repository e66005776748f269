// Package quotes is the quote-request backend: it validates submitted
// payloads against the form definitions, stores accepted requests under a
// reference number and announces them to observers as CloudEvents.
package quotes
