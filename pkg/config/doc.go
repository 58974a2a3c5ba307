// Package config normalizes declarative host-configuration documents
// into one canonical ordered command sequence. Three interchangeable
// formats are accepted (JSON, YAML, TOML); whatever the authoring
// grammar, the output is the same ordered list of descriptors, so the
// rest of the system never knows which format a document used.
//
// TOML needs special handling: the parser groups all tables under the
// same array-of-tables key together, which destroys the interleaving
// between different kinds. Since command order is execution order, the
// TOML front-end rescans the raw source for [[...]] headers in
// appearance order and consumes parsed tables accordingly, then
// verifies header and table counts agree for every key.
package config
