package exceptions

import (
	"errors"
	"strings"

	"github.com/sagernet/sing-stream/common"
)

type MultiError interface {
	Unwrap() []error
}

type multiError struct {
	errors []error
}

func (e *multiError) Error() string {
	return strings.Join(common.Map(e.errors, error.Error), " | ")
}

func (e *multiError) Unwrap() []error {
	return e.errors
}

func Errors(errors ...error) error {
	errors = common.Filter(errors, func(it error) bool {
		return it != nil
	})
	switch len(errors) {
	case 0:
		return nil
	case 1:
		return errors[0]
	}
	return &multiError{errors}
}

func IsMulti(err error, targetList ...error) bool {
	for _, target := range targetList {
		if errors.Is(err, target) {
			return true
		}
	}
	multiErr, isMulti := err.(MultiError)
	if !isMulti {
		return false
	}
	return common.All(multiErr.Unwrap(), func(it error) bool {
		return IsMulti(it, targetList...)
	})
}
