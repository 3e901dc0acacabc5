// Package registry holds the two lookup tables that bridge server rendering
// and client hydration.
//
// Store maps generated component ids to the props a component was rendered
// with. A server render pass owns a fresh Store and snapshots it into the
// document; the client runtime loads that snapshot and merges the snapshots
// of later page fetches into the same Store.
//
// Table maps component names to constructors. Page scripts register their
// constructors as a side effect of loading, and the hydrator resolves marked
// DOM nodes through the Constructors interface.
package registry
