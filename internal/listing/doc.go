// Package listing caches paginated listing results per filter signature.
//
// Cache is the single process-wide store. It hands out deep copies, applies
// pages strictly in cursor order (holding pages that arrive early and
// discarding pages from an outdated generation) and patches like state across
// every cached copy of an item in one step. Fetcher sits in front of it and
// talks to a Searcher, coalescing duplicate requests with singleflight.
//
// Stale entries keep their pages until the next Load or EnsurePage replaces
// them with a fresh first page.
package listing
