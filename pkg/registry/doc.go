// Package registry builds the dispatch table from loaded plugins and
// resolves raw descriptors to executable commands. The table is built
// once at startup and validated eagerly: a malformed plugin or a
// duplicate (kind, backend) claim fails construction, never first use.
package registry
