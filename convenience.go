package augeas

// SetAll sets path once per value, in order. It is a batch of single sets,
// not one atomic write: typically path is an append expression such as
// "/files/etc/group/disk/user[last()+1]", and a failure part way through
// leaves the earlier values in place.
func (s *Session) SetAll(path string, values ...string) error {
	for _, v := range values {
		if err := s.Set(path, v); err != nil {
			return err
		}
	}
	return nil
}

// Touch creates path with no value if nothing matches it yet. An existing
// node keeps its value.
func (s *Session) Touch(path string) error {
	m, err := s.Match(path)
	if err != nil {
		return err
	}
	if len(m) > 0 {
		return nil
	}
	return s.set("touch", path, nil)
}

// Clear removes the value of the node matching path, creating it when
// needed.
func (s *Session) Clear(path string) error {
	return s.set("clear", path, nil)
}

// ClearM is SetM with no value.
func (s *Session) ClearM(base, sub string) (int, error) {
	return s.setm("clearm", base, sub, nil)
}

// Exists reports whether path matches at least one node. Invalid path
// expressions are returned as errors, not as false.
func (s *Session) Exists(path string) (bool, error) {
	m, err := s.Match(path)
	if err != nil {
		return false, err
	}
	return len(m) > 0, nil
}
