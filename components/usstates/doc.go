// Package usstates provides the US state and territory list used by state
// select fields, search helpers, a forms option source and a small net/http
// handler that returns JSON options.
//
// The handler responds to GET and HEAD requests and supports query and limit
// parameters. The backing data is embedded from data/us_states.txt.
package usstates
