package utils

import (
	"fmt"
)

// MakeError wraps err with a formatted detail message, so the result
// still satisfies errors.Is/errors.As against err.
func MakeError(err error, detailsBody string, args ...any) error {
	return fmt.Errorf("%w: "+detailsBody, append([]any{err}, args...)...)
}
