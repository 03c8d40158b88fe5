// Package registry maps message types to handlers and query routes to
// queriers. It is populated during initialization and then sealed.
package registry

import (
	"sort"
	"sync/atomic"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/tx"
)

var (
	// ErrSealed is returned when registering after Seal.
	ErrSealed = errors.New("registry is sealed")
	// ErrAlreadyRegistered is returned for a duplicate message type or route.
	ErrAlreadyRegistered = errors.New("already registered")
)

// DecodeFunc decodes the value of an Any into a message.
type DecodeFunc func(value []byte) (sdk.Msg, error)

type route struct {
	decode  DecodeFunc
	handler sdk.Handler
}

// Registry is the lookup table of handlers and queriers. Lookups are safe
// for concurrent use once the registry is sealed.
type Registry struct {
	routes  map[string]route
	queries map[string]sdk.Querier
	sealed  atomic.Bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		routes:  map[string]route{},
		queries: map[string]sdk.Querier{},
	}
}

// RegisterMsg registers the handler for the message type T. The type URL is
// taken from T's TypeURL and values are decoded with cramberry.
func RegisterMsg[T any, PT interface {
	*T
	sdk.Msg
}](r *Registry, handler sdk.Handler) error {
	var zero T
	typeURL := PT(&zero).TypeURL()
	return r.Register(typeURL, func(value []byte) (sdk.Msg, error) {
		msg := PT(new(T))
		if err := cramberry.Unmarshal(value, msg); err != nil {
			return nil, errors.Wrapf(appcore.ErrTxDecode, "%s: %v", typeURL, err)
		}
		return msg, nil
	}, handler)
}

// Register registers a handler under typeURL.
func (r *Registry) Register(typeURL string, decode DecodeFunc, handler sdk.Handler) error {
	if r.sealed.Load() {
		return errors.Wrapf(ErrSealed, "cannot register message %s", typeURL)
	}
	if typeURL == "" || decode == nil || handler == nil {
		return errors.Errorf("invalid registration for message %q", typeURL)
	}
	if _, ok := r.routes[typeURL]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "message %s", typeURL)
	}
	r.routes[typeURL] = route{decode: decode, handler: handler}
	return nil
}

// RegisterQuery registers the querier of a module route.
func (r *Registry) RegisterQuery(name string, querier sdk.Querier) error {
	if r.sealed.Load() {
		return errors.Wrapf(ErrSealed, "cannot register query route %s", name)
	}
	if name == "" || querier == nil {
		return errors.Errorf("invalid registration for query route %q", name)
	}
	if _, ok := r.queries[name]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "query route %s", name)
	}
	r.queries[name] = querier
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() { r.sealed.Store(true) }

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool { return r.sealed.Load() }

// Route returns the handler of typeURL or an ErrUnknownRequest.
func (r *Registry) Route(typeURL string) (sdk.Handler, error) {
	rt, ok := r.routes[typeURL]
	if !ok {
		return nil, appcore.ErrUnknownRequest.Wrapf("unrecognized message type %s", typeURL)
	}
	return rt.handler, nil
}

// QueryRoute returns the querier of a module route.
func (r *Registry) QueryRoute(name string) (sdk.Querier, bool) {
	q, ok := r.queries[name]
	return q, ok
}

// DecodeMsg implements tx.MsgDecoder.
func (r *Registry) DecodeMsg(msgAny tx.Any) (sdk.Msg, error) {
	rt, ok := r.routes[msgAny.TypeURL]
	if !ok {
		return nil, appcore.ErrUnknownRequest.Wrapf("unrecognized message type %s", msgAny.TypeURL)
	}
	return rt.decode(msgAny.Value)
}

// MsgTypes returns the registered type URLs in sorted order.
func (r *Registry) MsgTypes() []string {
	out := make([]string, 0, len(r.routes))
	for typeURL := range r.routes {
		out = append(out, typeURL)
	}
	sort.Strings(out)
	return out
}
