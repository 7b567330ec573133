// Package app wires the configured collaborators into a render engine run:
// ambient settings, the plugin registry, the asset resolver, the encoder,
// and the job document all meet here.
package app
