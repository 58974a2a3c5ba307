package registry

import (
	"sort"
	"strings"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/types"
)

// Factory maps (kind, backend) pairs to the plugins that serve them.
// It is immutable after construction; core code never knows about
// concrete command kinds.
type Factory struct {
	byHandler map[types.HandlerKey]types.Plugin
}

// NewFactory builds the dispatch table. It fails fast when a plugin has
// no name, declares zero capabilities, declares a malformed key, or two
// plugins claim the identical (kind, backend) pair; duplicates are
// never resolved by precedence, and the error names both plugins.
func NewFactory(plugins []types.Plugin) (*Factory, error) {
	logger := logging.GetLogger("registry")
	byHandler := make(map[types.HandlerKey]types.Plugin)

	for _, plugin := range plugins {
		if plugin == nil {
			return nil, errors.New(errors.ErrRegistryInvalid, "nil plugin")
		}
		name := plugin.Name()
		if name == "" {
			return nil, errors.New(errors.ErrRegistryInvalid, "plugin is missing required name")
		}

		handlers := plugin.Handlers()
		if len(handlers) == 0 {
			return nil, errors.Newf(errors.ErrRegistryInvalid,
				"plugin %s must declare at least one command handler", name)
		}

		for _, key := range handlers {
			if key.Kind == "" {
				return nil, errors.Newf(errors.ErrRegistryInvalid,
					"plugin %s declared a handler with an empty kind", name)
			}
			if other, exists := byHandler[key]; exists {
				return nil, errors.Newf(errors.ErrRegistryDuplicate,
					"duplicate handler for %s: %s and %s", key, other.Name(), name)
			}
			byHandler[key] = plugin
			logger.Trace().Str("plugin", name).Str("handler", key.String()).Msg("Registered handler")
		}
	}

	return &Factory{byHandler: byHandler}, nil
}

// Handlers returns every registered (kind, backend) pair, defaults
// first within each kind, sorted for stable diagnostics.
func (f *Factory) Handlers() []string {
	keys := make([]types.HandlerKey, 0, len(f.byHandler))
	for key := range f.byHandler {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		if (keys[i].Backend == "") != (keys[j].Backend == "") {
			return keys[i].Backend == ""
		}
		return keys[i].Backend < keys[j].Backend
	})

	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = key.String()
	}
	return out
}

// Kinds returns the distinct registered kinds, sorted.
func (f *Factory) Kinds() []string {
	seen := make(map[string]bool)
	for key := range f.byHandler {
		seen[key.Kind] = true
	}
	kinds := make([]string, 0, len(seen))
	for kind := range seen {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// PluginFor reports the plugin a descriptor would dispatch to, without
// availability checks or compilation. Used for listings.
func (f *Factory) PluginFor(kind, backend string) (types.Plugin, bool) {
	if plugin, ok := f.byHandler[types.HandlerKey{Kind: kind, Backend: backend}]; ok {
		return plugin, true
	}
	plugin, ok := f.byHandler[types.HandlerKey{Kind: kind}]
	return plugin, ok
}

// Resolve dispatches a descriptor to its handler and compiles it into
// an executable command. An exact (kind, backend) match wins; otherwise
// the (kind, default) handler serves. The availability probe runs
// strictly before compilation, so an unavailable handler never builds
// partial state.
func (f *Factory) Resolve(d types.Descriptor, ctx *types.Context) (types.Command, error) {
	if d.Kind == "" {
		return nil, errors.New(errors.ErrConfigInvalid, "command missing 'kind'")
	}

	key := types.HandlerKey{Kind: d.Kind, Backend: d.Backend}
	plugin, ok := f.byHandler[key]
	if !ok {
		plugin, ok = f.byHandler[types.HandlerKey{Kind: d.Kind}]
	}
	if !ok {
		known := "(none)"
		if handlers := f.Handlers(); len(handlers) > 0 {
			known = strings.Join(handlers, ", ")
		}
		return nil, errors.Newf(errors.ErrRegistryUnknown,
			"unknown command handler: %s (known: %s)", key, known)
	}

	if ok, reason := plugin.IsAvailable(ctx); !ok {
		if reason == "" {
			reason = "plugin is not available in this environment"
		}
		return nil, errors.Newf(errors.ErrRegistryUnavailable,
			"command handler %s is unavailable: %s", key, reason)
	}

	return plugin.Compile(d, ctx)
}
