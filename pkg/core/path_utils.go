package core

import (
	"fmt"

	"github.com/saturnines/msisdn-extractor/pkg/jsonvalue"
	"github.com/saturnines/msisdn-extractor/pkg/keypath"
)

// MissReason says why a key path did not resolve.
type MissReason string

const (
	ReasonMissingKey      MissReason = "missing_key"
	ReasonNotObject       MissReason = "not_object"
	ReasonTransformFailed MissReason = "transform_failed"
)

// PathNotFoundError describes where a key path diverged from the document.
type PathNotFoundError struct {
	Path    string
	Index   int    // zero-based segment index that could not be resolved
	Segment string // the segment at Index
	Reason  MissReason
	Found   jsonvalue.Kind // kind encountered when Reason is not_object
	Detail  string         // transform error text when Reason is transform_failed
}

func (e *PathNotFoundError) Error() string {
	switch e.Reason {
	case ReasonNotObject:
		return fmt.Sprintf("path %q: segment %d (%q) reached a %s, not an object", e.Path, e.Index, e.Segment, e.Found)
	case ReasonTransformFailed:
		return fmt.Sprintf("path %q: transform failed: %s", e.Path, e.Detail)
	default:
		return fmt.Sprintf("path %q: key %q not found at segment %d", e.Path, e.Segment, e.Index)
	}
}

// Resolve walks a dotted key path through nested objects and returns the
// value at its end. Arrays are never indexed into: reaching a segment while
// positioned on an array (or any scalar) is a miss. The input is not mutated.
func Resolve(data jsonvalue.Value, path string) (jsonvalue.Value, *PathNotFoundError) {
	if path == "" {
		return jsonvalue.Value{}, &PathNotFoundError{Path: path, Index: 0, Reason: ReasonMissingKey}
	}

	current := data
	for i, part := range keypath.Split(path) {
		if current.Kind() != jsonvalue.Object {
			return jsonvalue.Value{}, &PathNotFoundError{
				Path:    path,
				Index:   i,
				Segment: part,
				Reason:  ReasonNotObject,
				Found:   current.Kind(),
			}
		}

		next, ok := current.Get(part)
		if !ok {
			return jsonvalue.Value{}, &PathNotFoundError{
				Path:    path,
				Index:   i,
				Segment: part,
				Reason:  ReasonMissingKey,
			}
		}
		current = next
	}

	return current, nil
}
