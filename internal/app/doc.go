// Package app assembles the forwarding pipeline: the bounded record buffer,
// the dispatcher that drains it into batches, the worker pool that sends
// them, and the lifecycle that sequences startup and shutdown around it all.
package app
