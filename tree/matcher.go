package tree

import (
	"regexp"

	"github.com/google/uuid"
)

// Matcher selects elements of a tree
type Matcher func(e *Element) bool

// MatchKey matches the exact key, suffix included
func MatchKey(key string) Matcher {
	return func(e *Element) bool {
		return e.Key == key
	}
}

// MatchBase matches the key with or without the collection suffix
func MatchBase(key string) Matcher {
	base := BaseKey(key)
	return func(e *Element) bool {
		return BaseKey(e.Key) == base
	}
}

// MatchValue matches the base key and the primary scalar value
func MatchValue(key, value string) Matcher {
	base := BaseKey(key)
	return func(e *Element) bool {
		return BaseKey(e.Key) == base && ValueString(e.Value) == value
	}
}

// MatchElement matches one element by identity
func MatchElement(target *Element) Matcher {
	return func(e *Element) bool {
		return e == target
	}
}

// MatchID matches the element carrying id
func MatchID(id uuid.UUID) Matcher {
	return func(e *Element) bool {
		return e.ID == id
	}
}

// MatchComment matches comment elements whose text matches re
func MatchComment(re *regexp.Regexp) Matcher {
	return func(e *Element) bool {
		return BaseKey(e.Key) == CommentKey && re.MatchString(ValueString(e.Value))
	}
}

// MatchAny matches when one of ms matches
func MatchAny(ms ...Matcher) Matcher {
	return func(e *Element) bool {
		for _, m := range ms {
			if m(e) {
				return true
			}
		}
		return false
	}
}
