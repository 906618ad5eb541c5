// Package utils holds small helpers shared by the registries and HTTP handlers.
//
// ValidateStruct wraps go-playground/validator and turns field errors into the
// messages placed in a failure result's "errors" list:
//
//	type createRoleRequest struct {
//		Name string `json:"name" validate:"required"`
//	}
//
//	if msgs := utils.ValidateStruct(req); msgs != nil {
//		// ["name is required"]
//	}
package utils
