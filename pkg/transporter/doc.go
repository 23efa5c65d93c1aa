// Package transporter correlates Redis commands with their replies over a
// connection.Conn and dispatches pub/sub pushes.
//
// A Transporter owns one primary connection and, in SeparateConnection
// mode, a secondary connection used only for subscriptions. One mutex
// serializes every state change and every command: a command holds it from
// the write until its reply is decoded, so concurrent callers are never
// interleaved on the wire.
//
// Pushed "message", "smessage" and "pmessage" arrays are decoded by a
// background dispatcher and delivered to the MessageHandler in arrival
// order on a goroutine that holds no transporter lock. Handlers may call
// back into the Transporter. The dispatcher reads the subscription
// connection under its own lock, so in SeparateConnection mode a command
// blocked on the primary does not delay pushes.
//
// A Handshake set with WithHandshake runs on each connection as it is
// opened, before any other command: the primary on Connect and Reconnect,
// the secondary when Subscribe or Reconnect opens it.
//
// Session state inferred from traffic is limited to the selected database:
// a successful "SELECT n" updates the index of the connection that carried
// it, and every connect, reconnect and disconnect resets it to 0.
package transporter
