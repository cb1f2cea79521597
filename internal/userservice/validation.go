package userservice

import (
	"bloglist/internal/common"
)

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(v.CheckRuneLength(username, 3, 100), "username", "must be between 3 and 100 characters long")
}

func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	// bcrypt only reads the first 72 bytes.
	v.Check(v.CheckStringLength(password, 3, 72), "password", "must be between 3 and 72 characters long")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
