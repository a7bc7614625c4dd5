// Package alarm implements the gRPC control surface of the alarm clock daemon.
//
// The service descriptor is assembled by hand from protobuf well-known types,
// so no generated code is needed. The server adapts those messages to a
// business-service interface, and ControlClient is the matching stub.
package alarm
