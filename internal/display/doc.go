// Package display defines the domain model for Screen Logic Core.
//
// A Display describes one networked screen and the protocol used to drive
// it. A Result is the single immutable record produced for a display by a
// dispatch call. These types are shared between the control core, the
// protocol bridges, and the API layer.
//
// Displays are owned by configuration: the core only reads them. Results
// are returned by value and never mutated after creation.
package display
