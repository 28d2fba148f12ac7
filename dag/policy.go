package dag

// MergePolicy names the rule used to combine an incoming patch value with
// whatever value (if any) already sits at that key.
type MergePolicy string

const (
	// LastWriteWins replaces the existing value. This is the default for
	// any key absent from a patch's Policy map.
	LastWriteWins MergePolicy = "last_write_wins"
	// FirstWriteWins keeps the existing value if present and non-nil.
	FirstWriteWins MergePolicy = "first_write_wins"
	// AppendList concatenates existing ++ incoming; both sides must be
	// slices.
	AppendList MergePolicy = "append_list"
	// MergeDict performs a shallow right-biased union of two maps.
	MergeDict MergePolicy = "merge_dict"
	// Reduce applies a caller-registered reducer function.
	Reduce MergePolicy = "reduce"
)

// Reducer merges an existing value and an incoming value under the
// "reduce" policy. Reducers are registered by name on a Context via
// RegisterReducer and referenced from ContextPatch.Policy by that name
// (e.g. Policy["score"] = "reduce:max").
type Reducer func(existing, incoming any) (any, error)
