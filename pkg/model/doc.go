// Package model defines the typed quote-form definitions consumed by the
// wizard engine, the submission adapter and the renderers. A Form is an
// ordered list of Steps; each Step owns the Fields it renders and names the
// subset of them (Validate) that gates advancing past it. Constraints live on
// the Field so the same declaration is reused at step time and at submission
// time. Conditional disclosure is expressed with the `when` expression on a
// Field, evaluated by pkg/visibility against the current form values.
//
// Repeated records (vehicles, drivers, classifications) are FieldTypeGroup
// fields whose Item slice describes the shape of a single record. Values for
// group items are addressed with dotted paths such as `vehicles.1.vin`.
package model
