// Package api is the HTTP boundary to the Cinemoa service.
//
// Client implements listing.Searcher, like.Mutator and like.StatusChecker.
// Every response is an Envelope; a FAIL or ERROR state becomes a
// *ServerError regardless of the HTTP status. SearchURL maps each listing
// family to its endpoint:
//
//	search    GET /api/fundings/search      cursor param "nextCursor"
//	category  GET /api/fundings             cursor param "cursor"
//	home      GET /api/home/{section}
//	profile   GET /api/users/{viewer}/{section}
//
// The cursor parameter name is a transport detail and never reaches the
// listing cache.
package api
