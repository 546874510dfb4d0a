// Package monitor bridges a link to WebSocket clients. Telemetry, state
// transitions, transfer progress and warnings are wrapped in an Event
// envelope and broadcast as JSON:
//
//	{"type":"telemetry","timestamp":"2024-01-02T03:04:05Z","data":{"kind":"mtu","value":{"mtu":247}}}
//
// Typical wiring:
//
//	hub := monitor.NewHub(logger)
//	l := link.New(adapter, hub.LinkOptions()...)
//	hub.Attach(l, nil)
//	go http.ListenAndServe(":8080", hub.Handler())
package monitor
