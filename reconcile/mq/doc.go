// Package mq connects the reconciler to an AMQP broker. Item change
// events arrive on a durable queue with manual acknowledgement; a
// failed event is redelivered a bounded number of times, counted
// through the x-retry-count header, before being dropped.
package mq
