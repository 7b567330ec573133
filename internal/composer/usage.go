// Package composer turns timeline entries plus resolved assets into the
// continuous audio buffer and the lazy frame stream a render backend
// consumes. Both composers report per-entry asset usage for the manifest.
package composer

import "github.com/vk/modmotion/internal/timeline"

// Usage records what one timeline entry actually consumed. Substituted is
// set when the entry's sample did not resolve and a silence/placeholder
// stand-in filled its window.
type Usage struct {
	Entry       timeline.Entry
	Asset       string
	Substituted bool
}
