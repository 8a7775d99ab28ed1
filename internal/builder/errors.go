package builder

import "errors"

var (
	// ErrDuplicateNode is returned by AddNode for a key added before.
	ErrDuplicateNode = errors.New("node already added")
	// ErrUnknownFactory reports a key whose factory is not registered.
	ErrUnknownFactory = errors.New("no factory registered")
	// ErrInvalidFactoryOutput reports a factory returning no computation.
	ErrInvalidFactoryOutput = errors.New("factory returned no computation")
	// ErrAlreadyBuilding is returned when Build is called twice or AddNode
	// is called after Build.
	ErrAlreadyBuilding = errors.New("graph build already started")
)
