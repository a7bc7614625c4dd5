// Package alerting escalates alarms that could not be armed to places a
// person will notice, such as Sentry or the MQTT warnings topic.
package alerting
