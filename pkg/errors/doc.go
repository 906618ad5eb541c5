// Package errors provides structured error handling with error codes for simple-usermgmt.
//
// Every registry and coordinator operation reports failures as an *Error carrying
// one of five codes:
//   - ErrCodeNotFound: the entity id does not resolve
//   - ErrCodeConflict: a uniqueness violation (email or role name)
//   - ErrCodeValidationFailed: required fields or password policy not met
//   - ErrCodeInvalidCredential: password verification failed
//   - ErrCodeOperationFailed: the store failed or a cascade could not complete
//
// # Basic Usage
//
//	err := errors.NotFound("user", id.String())
//	err := errors.Conflict("Email already in use")
//	err := errors.OperationFailed(dbErr, "Could not delete role")
//
//	if errors.IsCode(err, errors.ErrCodeNotFound) {
//		// Handle not found case
//	}
//
// # Result Envelope
//
// HTTP handlers never return raw errors. They convert them with ResultFrom,
// which yields {"success": false, "errors": [...]} and StatusFor, which maps
// NOT_FOUND to 404 and every other domain code to 400:
//
//	render.Status(r, errors.StatusFor(err))
//	render.JSON(w, r, errors.ResultFrom(err))
//
// An OPERATION_FAILED result means state may be inconsistent. Callers should
// re-read before retrying.
package errors
