// Package pulse implements the websocket gateway client: the concrete
// gateway.Client used against a panel gateway speaking the pulse wire
// protocol (hello/update pushes, correlated command results, typed error
// messages). The package also exports the wire types so the simulator can
// speak the same protocol.
package pulse
