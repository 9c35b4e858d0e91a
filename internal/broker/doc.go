// Package broker manages the RabbitMQ connection behind the AMQP sink.
//
// A Connection owns one AMQP connection and one channel. When the broker closes the
// connection it reconnects in the background following a reliability.RetryPolicy and
// re-runs the registered topology declarations on the new channel. Publishing while
// disconnected fails fast with ErrNotConnected instead of blocking the caller.
package broker
