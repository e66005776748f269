// Package web serves the quote wizards as server-rendered HTML. Each browser
// gets a cookie-bound wizard session per form; every POST applies the posted
// step values, performs one action (next, back, submit, ...) and redirects
// back to the wizard page.
package web
