package router

import (
	"os"

	"whatsapp-intake/backend/pkg/validator"
)

// AddOpenAPIValidation validates requests against the schema at schemaPath.
// Must be called before SetupRoutes.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.Error("Failed to initialize OpenAPI validator", "error", err.Error())
		return
	}

	r.UseOpenAPIValidator(v)
	r.Engine.StaticFile("/openapi.yaml", schemaPath)
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath)
}

// UseOpenAPIValidator installs an already-built validator
func (r *Router) UseOpenAPIValidator(v *validator.OpenAPIValidator) {
	r.validator = v
}
