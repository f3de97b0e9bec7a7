// Package bridge implements the session.Client interface on top of an
// external browser-automation runner process.
//
// Each session gets its own runner (Node + whatsapp-web.js driving a
// headless browser), bound to the session's credential directory. The
// bridge and the runner speak newline-delimited JSON over the runner's
// stdio:
//
//	runner → core  {"event":"qr","payload":"1@..."}
//	               {"event":"authenticated"}
//	               {"event":"ready","info":{"number":"628...","name":"Alice"}}
//	               {"event":"auth_failure","payload":"reason"}
//	               {"event":"disconnected","payload":"reason"}
//	               {"event":"result","id":"<uuid>","ok":true}
//	core → runner  {"id":"<uuid>","action":"send","target":"628...@c.us","body":"hi"}
//
// A runner crash surfaces as a disconnected event; the bridge never
// restarts a runner, because session semantics demand teardown (the
// registry entry is removed) rather than silent recovery.
package bridge
