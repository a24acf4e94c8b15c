package db

import "fmt"

var ErrInvalidData = fmt.Errorf("invalid data provided")
