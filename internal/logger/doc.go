// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and extract the logger from it, so an alarm id
// or a playback session attached once shows up on every line below it.
package logger
