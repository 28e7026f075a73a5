/*
Package dispatch is the boundary between transports and the Engine.

A transport parses its wire format into a domain.Event once and calls Handle. The
Dispatcher runs the event against the Engine and returns the render instructions the
transport must deliver, in order. Handle never fails: every per-event error becomes a
domain.RenderError, so a broken payload or a store outage only affects the user who
sent it.

User-facing texts come from a Messages catalog of text/template strings. The
defaults are English; LoadMessages overlays a YAML file to localize them.
*/
package dispatch
