package common

import "fmt"

// IntegrityError marks a partially completed two-step mutation: one side of
// the owner/owned-list relation changed and the other did not. It is never a
// user input problem and must surface as a server-side failure.
type IntegrityError struct {
	Op  string
	Err error
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure during %s: %v", e.Op, e.Err)
}

func (e IntegrityError) Unwrap() error {
	return e.Err
}
