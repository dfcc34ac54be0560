package openapi

import (
	"testing"
)

func TestGenerateCoversRoutes(t *testing.T) {
	doc := Generate("http://localhost:8080")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("version: got %q", doc.OpenAPI)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("servers: got %+v", doc.Servers)
	}

	wantPaths := []string{
		"/api/v1/keys",
		"/api/v1/keys/{target}",
		"/api/v1/certificates",
		"/api/v1/certificates/{code}",
		"/api/v1/validate/{code}",
	}
	for _, p := range wantPaths {
		if doc.Paths.Value(p) == nil {
			t.Errorf("missing path %s", p)
		}
	}
}

func TestGenerateValidateIsPublic(t *testing.T) {
	doc := Generate("http://localhost:8080")

	op := doc.Paths.Value("/api/v1/validate/{code}").Get
	if op == nil {
		t.Fatal("missing GET /api/v1/validate/{code}")
	}
	// An empty (non-nil) security list overrides the document-level
	// bearerAuth requirement.
	if op.Security == nil || len(*op.Security) != 0 {
		t.Errorf("security: got %v, want empty override", op.Security)
	}
}

func TestGenerateMarshals(t *testing.T) {
	doc := Generate("http://localhost:8080")
	data, err := doc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty document")
	}
}
