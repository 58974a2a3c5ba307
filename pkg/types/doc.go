// Package types defines the shared types that flow between the config
// normalizer, the plugin registry, and command execution: descriptors,
// handler keys, the Command and Plugin contracts, and the execution
// context threaded through every Apply call.
package types
