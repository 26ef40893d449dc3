package vm

// IsCompatible decides whether defining proposed on a property whose current
// descriptor is current (nil when the property does not exist) would be
// legal on an object with the given extensibility. current must be complete.
//
// The steps follow ES5.1 [[DefineOwnProperty]] (8.12.9) in order; later
// branches rely on the cases rejected or accepted by earlier ones.
func IsCompatible(extensible bool, current *Descriptor, proposed Descriptor) bool {
	if current == nil {
		return extensible
	}
	if proposed.IsEmpty() {
		return true
	}
	if Equivalent(*current, proposed) {
		return true
	}
	if current.configurable == FlagFalse {
		if proposed.configurable == FlagTrue {
			return false
		}
		if proposed.enumerable.IsSet() && proposed.enumerable != current.enumerable {
			return false
		}
	}
	if proposed.IsGeneric() {
		return true
	}
	if current.IsData() != proposed.IsData() {
		return current.configurable != FlagFalse
	}
	if current.IsData() && proposed.IsData() {
		if current.configurable == FlagFalse && current.writable == FlagFalse {
			if proposed.writable == FlagTrue {
				return false
			}
			if proposed.hasValue && !SameValue(proposed.value, current.value) {
				return false
			}
		}
		return true
	}
	if current.IsAccessor() && proposed.IsAccessor() {
		if current.configurable == FlagFalse {
			if proposed.hasSetter && !SameValue(proposed.setter, current.setter) {
				return false
			}
			if proposed.hasGetter && !SameValue(proposed.getter, current.getter) {
				return false
			}
		}
	}
	return true
}
