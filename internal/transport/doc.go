// Package transport serves a world over a websocket and provides the
// matching client, so an experiment can drive a world living in another
// process.
//
// Every message is a JSON object. The client sends a Request tagged with a
// fresh uuid and waits for the Response carrying the same id:
//
//	{"id":"…","op":"force","entity":"cube_0","link":"cube","force":[20,0,0],"duration":0.2}
//	{"id":"…","vector":[0,0,0]}
//
// Failures carry a Code which the client turns back into the matching
// world error, so errors.Is(err, world.ErrNotFound) holds on both sides.
//
// NewServer shares one world between all connections. NewSessionServer opens
// a world per connection and closes it when the client goes away.
package transport
