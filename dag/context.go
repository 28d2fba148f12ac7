package dag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// ProtectedPrivatePrefix marks keys no node patch may write.
	ProtectedPrivatePrefix = "private."
	// ProtectedTmpPrefix marks keys excluded from Fingerprint.
	ProtectedTmpPrefix = "tmp."
)

// Context is the runtime state threaded through one RunDAG traversal. It is
// owned exclusively by the caller of RunDAG for the duration of that call;
// concurrent mutation of a single Context is not supported (see spec.md
// §5 — the host must serialize or use distinct contexts).
type Context struct {
	mu       sync.RWMutex
	store    map[string]any
	logger   zerolog.Logger
	reducers map[string]Reducer
}

// NewContext creates an empty Context with the given logger. Pass
// zerolog.Nop() for a silent logger.
func NewContext(logger zerolog.Logger) *Context {
	return &Context{
		store:    make(map[string]any),
		logger:   logger,
		reducers: make(map[string]Reducer),
	}
}

// Logger returns the structured logger attached to this context.
func (c *Context) Logger() *zerolog.Logger { return &c.logger }

// RegisterReducer makes a named reducer available to the "reduce" merge
// policy. Patches reference it as Policy[key] = "reduce:<name>".
func (c *Context) RegisterReducer(name string, r Reducer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reducers[name] = r
}

// Get returns the value at k and whether it was present.
func (c *Context) Get(k string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.store[k]
	return v, ok
}

// Has reports whether k is present.
func (c *Context) Has(k string) bool {
	_, ok := c.Get(k)
	return ok
}

// Set writes k=v directly, bypassing patch/policy machinery. Intended for
// host setup before traversal begins (e.g. seeding llm_service); node
// implementations must never call this — they return patches instead.
func (c *Context) Set(k string, v any, modifiedBy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[k] = v
	c.logger.Debug().Str("key", k).Str("modified_by", modifiedBy).Msg("context.set")
}

// Keys returns a sorted snapshot of all keys currently in the store.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.store))
	for k := range c.store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the full store.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.store))
	for k, v := range c.store {
		out[k] = v
	}
	return out
}

// ContextPatch is the set of mutations produced by one node execution
// (spec.md §3). Policy maps a key to a MergePolicy name; absent keys use
// LastWriteWins.
type ContextPatch struct {
	Data       map[string]any
	Policy     map[string]string
	Provenance string
	Tags       map[string]bool
}

// NewPatch constructs an empty patch with the given provenance (typically
// the node id that produced it).
func NewPatch(provenance string) *ContextPatch {
	return &ContextPatch{
		Data:       make(map[string]any),
		Policy:     make(map[string]string),
		Provenance: provenance,
		Tags:       make(map[string]bool),
	}
}

// MergeDictPatches performs the shallow right-biased union used by fan-in
// patch queuing (spec.md §4.3); it predates patch application and is
// distinct from the "merge_dict" MergePolicy applied once a patch reaches
// the store.
func MergeDictPatches(into, from *ContextPatch) *ContextPatch {
	if into == nil {
		return from
	}
	if from == nil {
		return into
	}
	out := NewPatch(into.Provenance)
	for k, v := range into.Data {
		out.Data[k] = v
	}
	for k, v := range from.Data {
		out.Data[k] = v
	}
	for k, v := range into.Policy {
		out.Policy[k] = v
	}
	for k, v := range from.Policy {
		out.Policy[k] = v
	}
	for k := range into.Tags {
		out.Tags[k] = true
	}
	for k := range from.Tags {
		out.Tags[k] = true
	}
	if from.Provenance != "" {
		out.Provenance = from.Provenance
	}
	return out
}

// ApplyPatch applies patch.Data to the store under each key's merge
// policy. Protected-namespace writes and unknown policies return
// ContextConflictError and leave the store untouched for the offending key
// (other keys in the same patch may still have been applied — callers that
// need atomicity should validate patches before building them).
func (c *Context) ApplyPatch(patch *ContextPatch) error {
	if patch == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, incoming := range patch.Data {
		if strings.HasPrefix(k, ProtectedPrivatePrefix) {
			return &ContextConflictError{Key: k, Reason: "private.* namespace is write-protected"}
		}
		policyName := patch.Policy[k]
		if policyName == "" {
			policyName = string(LastWriteWins)
		}

		existing, hadExisting := c.store[k]
		merged, err := c.mergeOne(k, policyName, existing, hadExisting, incoming)
		if err != nil {
			return err
		}
		c.store[k] = merged
	}
	return nil
}

func (c *Context) mergeOne(key, policyName string, existing any, hadExisting bool, incoming any) (any, error) {
	if strings.HasPrefix(policyName, string(Reduce)+":") {
		name := strings.TrimPrefix(policyName, string(Reduce)+":")
		reducer, ok := c.reducers[name]
		if !ok {
			return nil, &ContextConflictError{Key: key, Reason: fmt.Sprintf("no reducer registered for %q", name)}
		}
		return reducer(existing, incoming)
	}

	switch MergePolicy(policyName) {
	case LastWriteWins:
		return incoming, nil
	case FirstWriteWins:
		if hadExisting && existing != nil {
			return existing, nil
		}
		return incoming, nil
	case AppendList:
		existingSlice, eOK := toSlice(existing)
		incomingSlice, iOK := toSlice(incoming)
		if hadExisting && !eOK {
			return nil, &ContextConflictError{Key: key, Reason: "append_list requires both sides to be lists"}
		}
		if !iOK {
			return nil, &ContextConflictError{Key: key, Reason: "append_list requires both sides to be lists"}
		}
		return append(append([]any{}, existingSlice...), incomingSlice...), nil
	case MergeDict:
		existingMap, eOK := toMap(existing)
		incomingMap, iOK := toMap(incoming)
		if hadExisting && !eOK {
			return nil, &ContextConflictError{Key: key, Reason: "merge_dict requires both sides to be maps"}
		}
		if !iOK {
			return nil, &ContextConflictError{Key: key, Reason: "merge_dict requires both sides to be maps"}
		}
		out := make(map[string]any, len(existingMap)+len(incomingMap))
		for k, v := range existingMap {
			out[k] = v
		}
		for k, v := range incomingMap {
			out[k] = v
		}
		return out, nil
	default:
		return nil, &ContextConflictError{Key: key, Reason: fmt.Sprintf("unknown merge policy %q", policyName)}
	}
}

func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toMap(v any) (map[string]any, bool) {
	if v == nil {
		return map[string]any{}, true
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	return nil, false
}

// Fingerprint returns a deterministic content hash of the context, stable
// across key-order permutations, excluding "tmp.*" and "private.*" keys
// (the latter are never visible to patches but may be present via host
// Set calls). Pass include to restrict to a specific key subset (nil
// means all eligible keys).
func (c *Context) Fingerprint(include []string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var keys []string
	if include != nil {
		keys = include
	} else {
		for k := range c.store {
			keys = append(keys, k)
		}
	}

	eligible := make(map[string]any, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, ProtectedTmpPrefix) || strings.HasPrefix(k, ProtectedPrivatePrefix) {
			continue
		}
		if v, ok := c.store[k]; ok {
			eligible[k] = v
		}
	}

	// encoding/json sorts map keys when marshaling a map[string]any, which
	// gives a deterministic byte sequence independent of Go map iteration
	// order.
	b, err := json.Marshal(eligible)
	if err != nil {
		// Fall back to the sorted key list alone; values that fail to
		// marshal are rare (e.g. a raw channel) and out of scope here.
		sort.Strings(keys)
		b = []byte(strings.Join(keys, ","))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
