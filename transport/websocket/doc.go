// Package websocket streams live game state to browser and terminal clients.
//
// A central Hub tracks the clients watching each session. Every client has
// a read pump and a write pump goroutine; the hub's Run loop owns
// registration and fan-out.
//
// Message Protocol:
//
// Outgoing messages are JSON objects, one per frame:
//
//	{"session_id":"abc1","event":"tick","tick":42,"game_state":{...},"events":[...]}
//
// Events are "state_update" (a full snapshot), "tick" (a snapshot plus the
// events of the tick that produced it), "ack" and "error".
//
// Incoming messages steer a human entity:
//
//	{"type":"direction","entity":1,"direction":"north"}
//
// Commands are handed to the function installed with Hub.OnCommand, and the
// sender gets an ack or an error back.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	gameService.Subscribe(hub.BroadcastTick)
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
