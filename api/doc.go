// Package api exposes the coordinator's operations over HTTP with a fixed
// JSON contract (C11): /api/v1/maps, /api/v1/game/join,
// /api/v1/game/players, /api/v1/game/state, /api/v1/game/player/action,
// /api/v1/game/tick, /api/v1/game/records. Every error body has the shape
// {"code": "...", "message": "..."}. Handlers validate input, submit one
// task to the coordinator, and serialize its result -- the same
// validate/dispatch/respond shape the teacher's api/server.go used for its
// session endpoints, generalized to the fixed error contract this domain
// requires.
package api
