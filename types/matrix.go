package types

import "fmt"

// MatrixConfig declares the axes of the job matrix. The Cartesian product of
// the axis values, minus excludes, plus includes, determines the job set.
type MatrixConfig struct {
	OS            []string      `yaml:"os"`
	PythonVersion []string      `yaml:"python-version"`
	Include       []MatrixEntry `yaml:"include,omitempty"`
	Exclude       []MatrixEntry `yaml:"exclude,omitempty"`
}

// MatrixEntry is a single (operating system, interpreter version) combination.
type MatrixEntry struct {
	OS            string `yaml:"os"`
	PythonVersion string `yaml:"python-version"`
}

// Key returns a stable identifier for the combination.
func (e MatrixEntry) Key() string {
	return e.OS + "/" + e.PythonVersion
}

func (e MatrixEntry) String() string {
	return e.Key()
}

// Validate checks that both axes are populated and that include/exclude
// entries are fully specified.
func (m *MatrixConfig) Validate() error {
	if len(m.OS) == 0 {
		return fmt.Errorf("matrix: os axis must have at least one value")
	}
	if len(m.PythonVersion) == 0 {
		return fmt.Errorf("matrix: python-version axis must have at least one value")
	}
	seen := make(map[string]bool)
	for _, os := range m.OS {
		if os == "" {
			return fmt.Errorf("matrix: os axis contains an empty value")
		}
		if seen[os] {
			return fmt.Errorf("matrix: duplicate os value %q", os)
		}
		seen[os] = true
	}
	seen = make(map[string]bool)
	for _, v := range m.PythonVersion {
		if v == "" {
			return fmt.Errorf("matrix: python-version axis contains an empty value")
		}
		if seen[v] {
			return fmt.Errorf("matrix: duplicate python-version value %q", v)
		}
		seen[v] = true
	}
	for i, e := range m.Include {
		if e.OS == "" || e.PythonVersion == "" {
			return fmt.Errorf("matrix: include entry %d must set both os and python-version", i)
		}
	}
	for i, e := range m.Exclude {
		if e.OS == "" || e.PythonVersion == "" {
			return fmt.Errorf("matrix: exclude entry %d must set both os and python-version", i)
		}
	}
	return nil
}

// Expand produces the job combinations in deterministic order: the Cartesian
// product os-major then version-minor, with excluded pairs removed and include
// entries appended (deduplicated against the product).
func (m *MatrixConfig) Expand() ([]MatrixEntry, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(m.Exclude))
	for _, e := range m.Exclude {
		excluded[e.Key()] = true
	}

	var entries []MatrixEntry
	seen := make(map[string]bool)
	for _, os := range m.OS {
		for _, v := range m.PythonVersion {
			e := MatrixEntry{OS: os, PythonVersion: v}
			if excluded[e.Key()] {
				continue
			}
			entries = append(entries, e)
			seen[e.Key()] = true
		}
	}

	for _, e := range m.Include {
		if seen[e.Key()] || excluded[e.Key()] {
			continue
		}
		entries = append(entries, e)
		seen[e.Key()] = true
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("matrix: expansion produced no jobs")
	}
	return entries, nil
}
