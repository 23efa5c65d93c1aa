// Package pubsub fans pushed messages out to Go channels.
//
// A Router implements transporter.MessageHandler. Each Subscription
// listens on one or more channels, patterns or shard channels and
// receives matching messages on its C channel. Delivery never blocks the
// transporter: when a subscriber's buffer is full the message is dropped
// and counted.
//
// The Router only tracks local interest. Sending SUBSCRIBE and UNSUBSCRIBE
// to the server is the caller's job; Subscribe and Close report which
// names gained their first or lost their last local subscriber.
package pubsub
