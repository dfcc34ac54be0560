// Package openapi generates the OpenAPI 3.1 description served at
// /openapi.json.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the API description for the given base URL.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Attestly API",
			Description: "REST API for issuing, validating, and revoking event-participation certificates, gated by role-scoped API keys.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
	}

	doc.Components.Schemas["MessageResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"message": stringSchema(),
				"error":   stringSchema(),
			},
		},
	}
	doc.Components.Schemas["Key"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"keyId":       stringSchema(),
				"role":        enumSchema("admin", "issuer", "reader"),
				"isActive":    boolSchema(),
				"description": stringSchema(),
				"createdAt":   stringSchema(),
				"createdBy":   stringSchema(),
			},
		},
	}
	doc.Components.Schemas["Certificate"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"code":          stringSchema(),
				"recipientName": stringSchema(),
				"eventName":     stringSchema(),
				"eventDate":     stringSchema(),
				"issuedAt":      stringSchema(),
				"issuedBy":      stringSchema(),
				"revoked":       boolSchema(),
			},
		},
	}

	doc.Paths = openapi3.NewPaths()

	doc.Paths.Set("/api/v1/keys", &openapi3.PathItem{
		Post: operation("createKey", "Create an API key. Reader keys may be created by admin, issuer, or the bootstrap credential; issuer and admin keys only by an admin. The response includes the one-time secret.", "201"),
		Get:  operation("listKeys", "List all API keys (admin only). Secrets are never included.", "200"),
	})
	doc.Paths.Set("/api/v1/keys/{target}", &openapi3.PathItem{
		Parameters: pathParam("target", "Key id, or unique description"),
		Get:        operation("getKey", "Read a single API key (admin only).", "200"),
		Patch:      operation("updateKey", "Update role, activity, or description of a key (admin only).", "200"),
		Delete:     operation("deactivateKey", "Soft-deactivate a key (admin only). The record and its identifiers remain reserved.", "200"),
	})
	doc.Paths.Set("/api/v1/certificates", &openapi3.PathItem{
		Post: operation("issueCertificate", "Issue a certificate (admin or issuer).", "201"),
		Get:  operation("listCertificates", "List certificates (admin or issuer).", "200"),
	})
	doc.Paths.Set("/api/v1/certificates/{code}", &openapi3.PathItem{
		Parameters: pathParam("code", "Certificate code"),
		Get:        operation("getCertificate", "Read a certificate (any authenticated role).", "200"),
		Delete:     operation("revokeCertificate", "Soft-revoke a certificate (admin only).", "200"),
	})

	validate := operation("validateCertificate", "Public certificate validation lookup. Rate-limited per IP; no authentication.", "200")
	validate.Security = &openapi3.SecurityRequirements{}
	doc.Paths.Set("/api/v1/validate/{code}", &openapi3.PathItem{
		Parameters: pathParam("code", "Certificate code"),
		Get:        validate,
	})

	return doc
}

func operation(id, description, successStatus string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Description = description
	op.Responses = openapi3.NewResponses()
	op.Responses.Set(successStatus, &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription("Success"),
	})
	op.Responses.Set("default", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription("Error").
			WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/MessageResponse"}),
	})
	return op
}

func pathParam(name, description string) openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:        name,
				In:          "path",
				Required:    true,
				Description: description,
				Schema:      stringSchema(),
			},
		},
	}
}

func stringSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
}

func boolSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
}

func enumSchema(values ...string) *openapi3.SchemaRef {
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Enum: vals}}
}
