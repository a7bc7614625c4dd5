// Package playback turns an audio preference into sound.
//
// A Controller selects a Source by preference variant, waits a bounded time
// for it to become ready and starts it. A streaming preference that fails or
// times out falls back to its embedded local tone; a local tone that fails is
// terminal. Every transition is published, in order, through a Broadcaster.
//
// A session moves Idle, Preparing, then Playing or Error; fallback adds
// Error to Playing. Stop returns to Idle from any state and aborts an
// in-flight preparation.
package playback
