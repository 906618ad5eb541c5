package metrics

import (
	"strings"

	apperrors "github.com/tendant/simple-usermgmt/pkg/errors"
)

// Result returns the result label for err.
func Result(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(string(apperrors.GetCode(err)))
}
