package vm

// IntegrityLevel is a position on the sealed/frozen lattice above
// non-extensible.
type IntegrityLevel uint8

const (
	IntegritySealed IntegrityLevel = iota
	IntegrityFrozen
)

func (l IntegrityLevel) String() string {
	if l == IntegrityFrozen {
		return "frozen"
	}
	return "sealed"
}

// SetIntegrityLevel prevents extensions on o and then redefines every own
// property as non-configurable (and, for frozen, data properties as
// non-writable). It works through o's internal methods, so a proxy's traps
// observe each step. A refused definition stops it with false.
func SetIntegrityLevel(o Object, level IntegrityLevel) (bool, error) {
	ok, err := o.PreventExtensions()
	if err != nil || !ok {
		return false, err
	}
	keys, err := o.OwnKeys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		d := GenericDescriptor(FlagNotSet, FlagFalse)
		if level == IntegrityFrozen {
			current, has, err := o.GetOwnProperty(k)
			if err != nil {
				return false, err
			}
			if !has {
				continue
			}
			if current.IsData() {
				d.writable = FlagFalse
			}
		}
		ok, err := o.DefineOwnProperty(k, d)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// TestIntegrityLevel reports whether o is non-extensible and every own
// property satisfies level.
func TestIntegrityLevel(o Object, level IntegrityLevel) (bool, error) {
	extensible, err := o.IsExtensible()
	if err != nil || extensible {
		return false, err
	}
	keys, err := o.OwnKeys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		d, has, err := o.GetOwnProperty(k)
		if err != nil {
			return false, err
		}
		if !has {
			continue
		}
		if d.configurable == FlagTrue {
			return false, nil
		}
		if level == IntegrityFrozen && d.IsData() && d.writable == FlagTrue {
			return false, nil
		}
	}
	return true, nil
}
