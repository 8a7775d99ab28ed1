package nodeid

import (
	"fmt"
	"regexp"
)

// keyRegex parses `name`, `name:variant`, `name[arg]` and `name:variant[arg]`.
var keyRegex = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)(?::([a-zA-Z0-9_.-]+))?(?:\[([^\[\]]*)\])?$`)

// isValidName checks for undesirable but technically valid names.
func isValidName(name string) bool {
	return name != "." && name != ".." && name != "-"
}

// Parse creates a Key from its canonical text form. Parsed arguments are
// always strings; a missing `[...]` suffix yields a nil argument.
func Parse(raw string) (Key, error) {
	if raw == "" {
		return Key{}, fmt.Errorf("node key cannot be empty")
	}

	matches := keyRegex.FindStringSubmatch(raw)
	if matches == nil {
		return Key{}, fmt.Errorf("invalid node key format: %q", raw)
	}

	name := matches[1]
	if !isValidName(name) {
		return Key{}, fmt.Errorf("invalid factory name: %q", name)
	}

	key := Key{Factory: FactoryKey{Name: name, Variant: matches[2]}}
	// An empty `[]` still denotes an argument, the empty string.
	if hasArg(raw) {
		key.Arg = matches[3]
	}
	return key, nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and static tables.
func MustParse(raw string) Key {
	k, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return k
}

func hasArg(raw string) bool {
	return len(raw) > 0 && raw[len(raw)-1] == ']'
}
